package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"stackctl/internal/catalog"
	"stackctl/internal/config"
	"stackctl/pkg/logging"
)

// AuxFile is one auxiliary configuration artifact accompanying the
// manifest. Path is relative to the owning service's config directory.
type AuxFile struct {
	ServiceID string
	Path      string
	Content   []byte
}

// auxFiles derives the auxiliary artifacts for a selection. Which artifact
// a service gets depends on its category, never on its id, so catalog
// overlays adding e.g. a second database service get the same treatment as
// the stock one.
func auxFiles(descriptors []*catalog.ServiceDescriptor, ctx config.Context) ([]AuxFile, error) {
	var files []AuxFile

	for _, d := range descriptors {
		switch d.Category {
		case catalog.CategoryProxySecurity:
			if content := accessControlPolicy(ctx); content != nil {
				files = append(files, AuxFile{
					ServiceID: d.ID,
					Path:      "access-control.yaml",
					Content:   content,
				})
			}
		case catalog.CategoryDatabase:
			files = append(files, AuxFile{
				ServiceID: d.ID,
				Path:      filepath.Join("initdb", "01-create-databases.sh"),
				Content:   databaseBootstrap(d, descriptors),
			})
		}
	}
	return files, nil
}

// accessControlPolicy renders a restrictive default policy: everything
// under the operator's domain requires one-factor authentication. Without
// a domain there is nothing to protect, so no artifact is produced.
func accessControlPolicy(ctx config.Context) []byte {
	if ctx.Domain == "" {
		return nil
	}
	var b strings.Builder
	b.WriteString("access_control:\n")
	b.WriteString("  default_policy: deny\n")
	b.WriteString("  rules:\n")
	fmt.Fprintf(&b, "    - domain: \"*.%s\"\n", ctx.Domain)
	b.WriteString("      policy: one_factor\n")
	return []byte(b.String())
}

// databaseBootstrap renders an init script creating one database per
// selected service that depends on this database-tier service. The script
// runs once on first container start via the image's init hook.
func databaseBootstrap(db *catalog.ServiceDescriptor, descriptors []*catalog.ServiceDescriptor) []byte {
	var dependents []string
	for _, d := range descriptors {
		for _, dep := range d.DependsOn {
			if dep == db.ID {
				dependents = append(dependents, d.ID)
			}
		}
	}
	sort.Strings(dependents)

	var b strings.Builder
	b.WriteString("#!/bin/sh\nset -e\n")
	for _, name := range dependents {
		// Database names follow the service id with dashes flattened.
		dbName := strings.ReplaceAll(name, "-", "_")
		fmt.Fprintf(&b, "psql -U \"$POSTGRES_USER\" -tc \"SELECT 1 FROM pg_database WHERE datname = '%s'\" | grep -q 1 || createdb -U \"$POSTGRES_USER\" %s\n", dbName, dbName)
	}
	return []byte(b.String())
}

// WriteAux materializes auxiliary artifacts under the config root, one
// subdirectory per service id. Files that already exist are left alone so
// operator edits from a prior run survive regeneration. The returned list
// names the paths actually written.
func WriteAux(files []AuxFile, ctx config.Context) ([]string, error) {
	var written []string
	for _, f := range files {
		target := filepath.Join(ctx.ServiceConfigDir(f.ServiceID), f.Path)

		if _, err := os.Stat(target); err == nil {
			logging.Debug("Generator", "Auxiliary file %s already exists, keeping it", target)
			continue
		} else if !os.IsNotExist(err) {
			return written, fmt.Errorf("checking %s: %w", target, err)
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, fmt.Errorf("creating directory for %s: %w", target, err)
		}
		if err := os.WriteFile(target, f.Content, 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", target, err)
		}
		logging.Info("Generator", "Wrote auxiliary config %s", target)
		written = append(written, target)
	}
	return written, nil
}
