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
	userConfigDir    = ".config/intakectl"
	projectConfigDir = ".intakectl"
	configFileName   = "config.yaml"
)

// LoadConfig loads the intakectl configuration by layering default, user, and project settings.
func LoadConfig() (IntakectlConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// user config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userConfig, err := loadConfigFromFile(userConfigPath)
			if err != nil {
				return IntakectlConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			config = mergeConfigs(config, userConfig)
		}
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		if _, err := os.Stat(projectConfigPath); !os.IsNotExist(err) {
			projectConfig, err := loadConfigFromFile(projectConfigPath)
			if err != nil {
				return IntakectlConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
			}
			config = mergeConfigs(config, projectConfig)
		}
	}

	return config, nil
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

// loadConfigFromFile loads an IntakectlConfig from a YAML file.
func loadConfigFromFile(filePath string) (IntakectlConfig, error) {
	var config IntakectlConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return IntakectlConfig{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return IntakectlConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Zero values in
// the overlay leave the base untouched.
func mergeConfigs(base, overlay IntakectlConfig) IntakectlConfig {
	merged := base

	if overlay.IntakesRoot != "" {
		merged.IntakesRoot = overlay.IntakesRoot
	}

	if len(overlay.Engine.Command) > 0 {
		merged.Engine.Command = append([]string(nil), overlay.Engine.Command...)
	}
	if overlay.Engine.Timeout > 0 {
		merged.Engine.Timeout = overlay.Engine.Timeout
	}
	if overlay.Engine.CacheTTL > 0 {
		merged.Engine.CacheTTL = overlay.Engine.CacheTTL
	}

	if overlay.Layout.Parser != "" {
		merged.Layout.Parser = overlay.Layout.Parser
	}
	if overlay.Layout.Fields != "" {
		merged.Layout.Fields = overlay.Layout.Fields
	}
	if overlay.Layout.Tests != "" {
		merged.Layout.Tests = overlay.Layout.Tests
	}

	if overlay.Normalizer.Dialect != "" {
		merged.Normalizer.Dialect = overlay.Normalizer.Dialect
	}

	return merged
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// FormatDir returns the directory of a format below the intakes root.
func (c IntakectlConfig) FormatDir(module, format string) string {
	return filepath.Join(c.IntakesRoot, module, format)
}

// ParserPath returns the parser definition path of a format.
func (c IntakectlConfig) ParserPath(module, format string) string {
	return filepath.Join(c.FormatDir(module, format), filepath.FromSlash(c.Layout.Parser))
}

// FieldsPath returns the taxonomy file path of a format.
func (c IntakectlConfig) FieldsPath(module, format string) string {
	return filepath.Join(c.FormatDir(module, format), filepath.FromSlash(c.Layout.Fields))
}
