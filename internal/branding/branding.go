// Package branding provides compile-time identity values for the CLI.
//
// The identity lives in branding.yaml next to this file and is baked into the
// binary with //go:embed. Config file names derive from it so a fork can
// rename every on-disk artifact in one place.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	ConfigDir   string `yaml:"config_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	ProjectFile string `yaml:"project_file"`
	ToolsTable  string `yaml:"tools_table"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "mise",
			DisplayName: "mise",
			Description: "Per-project tool version manager",
			ConfigDir:   "mise",
			EnvPrefix:   "MISE",
			ProjectFile: "mise.toml",
			ToolsTable:  "tools",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "mise").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// ConfigDir returns the directory name used under the user config and data
// roots (e.g., "mise" → ~/.config/mise).
func ConfigDir() string { load(); return defaults.ConfigDir }

// EnvPrefix returns the environment variable prefix (e.g., "MISE").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// ProjectFile returns the project layer filename (e.g., "mise.toml").
func ProjectFile() string { load(); return defaults.ProjectFile }

// ToolsTable returns the fixed TOML table name holding tool pins.
func ToolsTable() string { load(); return defaults.ToolsTable }

// LocalFile returns the local override filename (e.g., "mise.local.toml").
func LocalFile() string { return EnvFile("local") }

// EnvFile returns the filename of the layer for the named environment,
// e.g., EnvFile("ci") → "mise.ci.toml".
func EnvFile(name string) string {
	base := strings.TrimSuffix(ProjectFile(), ".toml")
	return base + "." + name + ".toml"
}

// EnvVar returns a fully qualified env var name, e.g., EnvVar("ENV") → "MISE_ENV".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
