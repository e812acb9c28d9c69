// Package branding provides compile-time identity values for the CLI.
//
// branding.yaml is embedded with //go:embed; edit it to rename the binary,
// its home directory, or the workflow it triggers by default.
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
	CLIName      string `yaml:"cli_name"`
	DisplayName  string `yaml:"display_name"`
	Description  string `yaml:"description"`
	HomeDir      string `yaml:"home_dir"`
	EnvPrefix    string `yaml:"env_prefix"`
	UserAgent    string `yaml:"user_agent"`
	WorkflowFile string `yaml:"workflow_file"`
	WorkflowRef  string `yaml:"workflow_ref"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:      "manifestgen",
			DisplayName:  "Manifest Generator",
			Description:  "Build repo-tool local manifests and validate them on GitHub Actions",
			HomeDir:      ".manifestgen",
			EnvPrefix:    "MANIFESTGEN",
			UserAgent:    "Manifest-Generator",
			WorkflowFile: "test-manifest.yml",
			WorkflowRef:  "main",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "manifestgen").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".manifestgen").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "MANIFESTGEN").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// UserAgent returns the User-Agent sent to the GitHub API.
func UserAgent() string { load(); return defaults.UserAgent }

// WorkflowFile returns the default workflow file name the test command dispatches.
func WorkflowFile() string { load(); return defaults.WorkflowFile }

// WorkflowRef returns the default git ref the workflow is dispatched on.
func WorkflowRef() string { load(); return defaults.WorkflowRef }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "MANIFESTGEN_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
