package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Settings is the raw, file-shaped configuration. Values arrive as strings
// and are only trusted after NewContext has validated them; malformed
// input is rejected, never silently coerced.
type Settings struct {
	PUID        string `yaml:"puid,omitempty"`
	PGID        string `yaml:"pgid,omitempty"`
	Timezone    string `yaml:"timezone,omitempty"`
	DataRoot    string `yaml:"dataRoot,omitempty"`
	ConfigRoot  string `yaml:"configRoot,omitempty"`
	InstallRoot string `yaml:"installRoot,omitempty"`
	Domain      string `yaml:"domain,omitempty"`
	DBUser      string `yaml:"dbUser,omitempty"`
	DBPassword  string `yaml:"dbPassword,omitempty"`
}

// Context is the validated configuration threaded through generation and
// installation. It is immutable once constructed; every component receives
// it by value.
type Context struct {
	PUID        int
	PGID        int
	Timezone    string
	DataRoot    string
	ConfigRoot  string
	InstallRoot string

	// Domain is optional; empty means no reverse-proxy hostnames are
	// rendered.
	Domain string

	// Database credentials, supplied by an external secrets collaborator.
	DBUser     string
	DBPassword string
}

// NewContext validates raw settings into a Context. Every field is checked
// up front so that generation never starts from half-valid input.
func NewContext(s Settings) (Context, error) {
	puid, err := strconv.Atoi(s.PUID)
	if err != nil || puid < 0 {
		return Context{}, fmt.Errorf("invalid puid %q: must be a non-negative integer", s.PUID)
	}
	pgid, err := strconv.Atoi(s.PGID)
	if err != nil || pgid < 0 {
		return Context{}, fmt.Errorf("invalid pgid %q: must be a non-negative integer", s.PGID)
	}

	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return Context{}, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}

	for name, root := range map[string]string{
		"dataRoot":    s.DataRoot,
		"configRoot":  s.ConfigRoot,
		"installRoot": s.InstallRoot,
	} {
		if root == "" {
			return Context{}, fmt.Errorf("%s must be set", name)
		}
		if !filepath.IsAbs(root) {
			return Context{}, fmt.Errorf("%s %q must be an absolute path", name, root)
		}
	}

	if s.Domain != "" && (strings.Contains(s.Domain, "/") || strings.Contains(s.Domain, " ")) {
		return Context{}, fmt.Errorf("invalid domain %q", s.Domain)
	}

	return Context{
		PUID:        puid,
		PGID:        pgid,
		Timezone:    s.Timezone,
		DataRoot:    filepath.Clean(s.DataRoot),
		ConfigRoot:  filepath.Clean(s.ConfigRoot),
		InstallRoot: filepath.Clean(s.InstallRoot),
		Domain:      s.Domain,
		DBUser:      s.DBUser,
		DBPassword:  s.DBPassword,
	}, nil
}

// Expand resolves ${...} template references in descriptor values against
// this context. Unknown variables are an error, not an empty expansion, so
// a typo in a catalog overlay surfaces at generation time instead of
// producing a broken manifest.
func (c Context) Expand(template string) (string, error) {
	var badVar string
	expanded := os.Expand(template, func(name string) string {
		switch name {
		case "PUID":
			return strconv.Itoa(c.PUID)
		case "PGID":
			return strconv.Itoa(c.PGID)
		case "TZ":
			return c.Timezone
		case "DATA_ROOT":
			return c.DataRoot
		case "CONFIG_ROOT":
			return c.ConfigRoot
		case "DOMAIN":
			return c.Domain
		case "DB_USER":
			return c.DBUser
		case "DB_PASSWORD":
			return c.DBPassword
		default:
			if badVar == "" {
				badVar = name
			}
			return ""
		}
	})
	if badVar != "" {
		return "", fmt.Errorf("unknown template variable %q in %q", badVar, template)
	}
	return expanded, nil
}

// ServiceConfigDir returns the per-service directory under the config root
// where auxiliary configuration artifacts are written.
func (c Context) ServiceConfigDir(serviceID string) string {
	return filepath.Join(c.ConfigRoot, serviceID)
}

// ManifestPath returns the fixed, well-known location of the rendered
// manifest relative to the installation root.
func (c Context) ManifestPath() string {
	return filepath.Join(c.InstallRoot, "docker-compose.yaml")
}
