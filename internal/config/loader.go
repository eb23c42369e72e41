package config

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
	configFileName   = "config.yaml"
)

// LoadSettings layers default, user and project settings, later layers
// overriding earlier ones field by field. The result is still raw; callers
// pass it through NewContext before use.
func LoadSettings() (Settings, error) {
	settings := GetDefaultSettings()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional; report and continue.
		fmt.Fprintf(os.Stderr, "Warning: could not determine user config path: %v\n", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userSettings, err := loadSettingsFromFile(userConfigPath)
			if err != nil {
				return Settings{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			settings = mergeSettings(settings, userSettings)
		}
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not determine project config path: %v\n", err)
	} else {
		if _, err := os.Stat(projectConfigPath); !os.IsNotExist(err) {
			projectSettings, err := loadSettingsFromFile(projectConfigPath)
			if err != nil {
				return Settings{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
			}
			settings = mergeSettings(settings, projectSettings)
		}
	}

	return settings, nil
}

// LoadContext is the common entry point: layered settings, then validation.
func LoadContext() (Context, error) {
	settings, err := LoadSettings()
	if err != nil {
		return Context{}, err
	}
	return NewContext(settings)
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func loadSettingsFromFile(filePath string) (Settings, error) {
	var settings Settings
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Settings{}, err
	}
	err = yaml.Unmarshal(data, &settings)
	if err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// mergeSettings merges 'overlay' into 'base'; empty overlay fields keep
// the base value.
func mergeSettings(base, overlay Settings) Settings {
	merged := base
	if overlay.PUID != "" {
		merged.PUID = overlay.PUID
	}
	if overlay.PGID != "" {
		merged.PGID = overlay.PGID
	}
	if overlay.Timezone != "" {
		merged.Timezone = overlay.Timezone
	}
	if overlay.DataRoot != "" {
		merged.DataRoot = overlay.DataRoot
	}
	if overlay.ConfigRoot != "" {
		merged.ConfigRoot = overlay.ConfigRoot
	}
	if overlay.InstallRoot != "" {
		merged.InstallRoot = overlay.InstallRoot
	}
	if overlay.Domain != "" {
		merged.Domain = overlay.Domain
	}
	if overlay.DBUser != "" {
		merged.DBUser = overlay.DBUser
	}
	if overlay.DBPassword != "" {
		merged.DBPassword = overlay.DBPassword
	}
	return merged
}
