package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"

	FormatTable = "table"
	FormatJSON  = "json"
)

// ResolveOptions are passed through unmodified to the resolver.
type ResolveOptions struct {
	Offline  bool   // Never touch the network
	Locked   bool   // Require the lockfile to be up to date
	Frozen   bool   // Locked and offline
	ToolHome string // Ecosystem cache root override (e.g. CARGO_HOME)
}

// Settings is the optional configuration file of bom.
type Settings struct {
	Ecosystem       string   `yaml:"ecosystem"`        // cargo, golang, npm, terraform; empty = detect
	AllDependencies bool     `yaml:"all_dependencies"` // report the full transitive closure
	Color           string   `yaml:"color"`            // auto, always, never
	Format          string   `yaml:"format"`           // table, json
	Offline         bool     `yaml:"offline"`
	Locked          bool     `yaml:"locked"`
	Frozen          bool     `yaml:"frozen"`
	CargoHome       string   `yaml:"cargo_home"` // Inline, ${ENV_VAR} or path
	Exclude         []string `yaml:"exclude"`    // package names left out of the report
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Color:  ColorAuto,
		Format: FormatTable,
	}
}

// NewSettings reads and parses a configuration file, expanding environment
// variables, and fills defaults for every value left empty.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	settings := DefaultSettings()
	if unmarshalErr := yaml.Unmarshal(data, settings); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	settings.CargoHome = expandEnv(settings.CargoHome)
	if settings.Color == "" {
		settings.Color = ColorAuto
	}
	if settings.Format == "" {
		settings.Format = FormatTable
	}

	if validateErr := settings.Validate(); validateErr != nil {
		return nil, validateErr
	}
	return settings, nil
}

// FindConfigFile searches for a configuration file in the project directory
// and the standard user locations. Returns the first path found.
func FindConfigFile(projectDir string) (string, error) {
	locations := []string{projectDir, filepath.Join(projectDir, ".config")}
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		locations = append(locations, filepath.Join(homeDir, ".config"))
	}

	patterns := []string{".bom.yaml", ".bom.yml", "bom.yaml", "bom.yml"}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// Validate checks the enumerated values of the settings.
func (it *Settings) Validate() error {
	if !slices.Contains([]string{ColorAuto, ColorAlways, ColorNever}, it.Color) {
		return fmt.Errorf("color must be one of auto, always, never; got %q", it.Color)
	}
	if !slices.Contains([]string{FormatTable, FormatJSON}, it.Format) {
		return fmt.Errorf("format must be one of table, json; got %q", it.Format)
	}
	return nil
}

// ResolveOptions derives the options handed to the resolver.
func (it *Settings) ResolveOptions() ResolveOptions {
	return ResolveOptions{
		Offline:  it.Offline || it.Frozen,
		Locked:   it.Locked || it.Frozen,
		Frozen:   it.Frozen,
		ToolHome: it.CargoHome,
	}
}

// IsExcluded reports whether name was excluded in the configuration.
func (it *Settings) IsExcluded(name string) bool {
	return slices.Contains(it.Exclude, name)
}

// expandEnv replaces ${VAR} references with their environment values.
func expandEnv(raw string) string {
	if raw == "" {
		return raw
	}
	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})
}
