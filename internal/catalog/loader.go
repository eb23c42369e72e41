package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/stackctl"
	projectConfigDir = ".stackctl"
	catalogFileName  = "catalog.yaml"
)

// catalogFile is the on-disk shape of a catalog overlay.
type catalogFile struct {
	Services []ServiceDescriptor `yaml:"services"`
}

// Load builds the effective catalog by layering the builtin descriptors,
// the user overlay (~/.config/stackctl/catalog.yaml) and the project
// overlay (./.stackctl/catalog.yaml). Overlay entries replace a builtin
// descriptor with the same id, or add a new one. The merged result is
// validated as a whole; a defective catalog is a fatal startup error.
func Load() (*Catalog, error) {
	descriptors := Builtin()

	userPath, err := getUserCatalogPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not determine user catalog path: %v\n", err)
	} else {
		descriptors, err = applyOverlay(descriptors, userPath)
		if err != nil {
			return nil, fmt.Errorf("error loading user catalog from %s: %w", userPath, err)
		}
	}

	projectPath, err := getProjectCatalogPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not determine project catalog path: %v\n", err)
	} else {
		descriptors, err = applyOverlay(descriptors, projectPath)
		if err != nil {
			return nil, fmt.Errorf("error loading project catalog from %s: %w", projectPath, err)
		}
	}

	return New(descriptors)
}

var getUserCatalogPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, catalogFileName), nil
}

var getProjectCatalogPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, catalogFileName), nil
}

// applyOverlay merges the descriptors from an overlay file (if it exists)
// into base, replacing by id. Declaration order of base is preserved;
// genuinely new services are appended.
func applyOverlay(base []ServiceDescriptor, path string) ([]ServiceDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return nil, err
	}

	var overlay catalogFile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("malformed catalog overlay: %w", err)
	}

	index := make(map[string]int, len(base))
	for i, d := range base {
		index[d.ID] = i
	}

	merged := append([]ServiceDescriptor{}, base...)
	for _, d := range overlay.Services {
		if i, ok := index[d.ID]; ok {
			merged[i] = d
		} else {
			index[d.ID] = len(merged)
			merged = append(merged, d)
		}
	}
	return merged, nil
}
