package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/manifestgen/manifestgen/internal/branding"
	"github.com/manifestgen/manifestgen/internal/platform"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys understood by the config file and environment.
const (
	KeyGitHubRepo  = "github_repo"
	KeyGitHubToken = "github_token"
	KeyWorkflow    = "workflow"
	KeyRef         = "ref"
	KeyGracePeriod = "grace_period"
	KeyTimeout     = "timeout"
	KeyListen      = "listen"
	KeyAPIURL      = "api_url"
	KeyWebURL      = "web_url"
	KeyLogFormat   = "log_format"
)

const (
	defaultListen  = ":8080"
	defaultAPIURL  = "https://api.github.com/"
	defaultWebURL  = "https://github.com/"
	defaultGrace   = 2 * time.Second
	defaultTimeout = 30 * time.Second
	defaultFormat  = "json"
)

// Settings is a typed snapshot of the loaded configuration.
type Settings struct {
	GitHubRepo   string
	GitHubToken  string
	WorkflowFile string
	WorkflowRef  string
	GracePeriod  time.Duration
	Timeout      time.Duration
	Listen       string
	APIURL       string
	WebURL       string
	LogFormat    string
}

// Dir returns the path to the config directory (~/.manifestgen/).
// MANIFESTGEN_HOME overrides the location.
func Dir() string {
	if dir := os.Getenv(branding.EnvVar("HOME")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.manifestgen/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
// A missing config file is not an error; one that cannot be read or parsed is.
func Load() error {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	_ = viper.BindEnv(KeyGitHubRepo, branding.EnvVar(KeyGitHubRepo), "GITHUB_REPO")
	_ = viper.BindEnv(KeyGitHubToken, branding.EnvVar(KeyGitHubToken), "GITHUB_TOKEN")

	viper.SetDefault(KeyWorkflow, branding.WorkflowFile())
	viper.SetDefault(KeyRef, branding.WorkflowRef())
	viper.SetDefault(KeyGracePeriod, defaultGrace)
	viper.SetDefault(KeyTimeout, defaultTimeout)
	viper.SetDefault(KeyListen, defaultListen)
	viper.SetDefault(KeyAPIURL, defaultAPIURL)
	viper.SetDefault(KeyWebURL, defaultWebURL)
	viper.SetDefault(KeyLogFormat, defaultFormat)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", FilePath(), err)
	}
	return nil
}

// Current returns the settings resolved by the last Load.
func Current() Settings {
	return Settings{
		GitHubRepo:   viper.GetString(KeyGitHubRepo),
		GitHubToken:  viper.GetString(KeyGitHubToken),
		WorkflowFile: viper.GetString(KeyWorkflow),
		WorkflowRef:  viper.GetString(KeyRef),
		GracePeriod:  viper.GetDuration(KeyGracePeriod),
		Timeout:      viper.GetDuration(KeyTimeout),
		Listen:       viper.GetString(KeyListen),
		APIURL:       viper.GetString(KeyAPIURL),
		WebURL:       viper.GetString(KeyWebURL),
		LogFormat:    viper.GetString(KeyLogFormat),
	}
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// The file may hold github_token.
	if err := platform.Chmod(configFile, 0600); err != nil {
		return fmt.Errorf("securing config file: %w", err)
	}

	return nil
}

// Keys returns every known key in sorted order.
func Keys() []string {
	keys := []string{
		KeyGitHubRepo, KeyGitHubToken, KeyWorkflow, KeyRef,
		KeyGracePeriod, KeyTimeout, KeyListen, KeyAPIURL, KeyWebURL,
		KeyLogFormat,
	}
	sort.Strings(keys)
	return keys
}

// sensitivePatterns are substrings that indicate a value should be redacted.
var sensitivePatterns = []string{"TOKEN", "SECRET", "PASSWORD", "KEY", "CREDENTIAL"}

// RedactValue returns a redacted version of value if the key name contains
// a sensitive pattern (case-insensitive substring match).
// Values with 4+ chars show the first 4 chars + "***".
// Values with fewer than 4 chars are fully redacted as "***".
func RedactValue(key, value string) string {
	upper := strings.ToUpper(key)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(upper, pattern) {
			if len(value) >= 4 {
				return value[:4] + "***"
			}
			return "***"
		}
	}
	return value
}
