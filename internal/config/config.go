package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kattouf/mise/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "settings"
	fileType = "yaml"
)

// Setting keys.
const (
	KeyEnv              = "env"
	KeyGlobalConfigFile = "global_config_file"
	KeyDataDir          = "data_dir"
	KeyCacheDir         = "cache_dir"
	KeyCeilingPaths     = "ceiling_paths"
	KeyStopAtVCS        = "stop_at_vcs"
	KeyKeepEmptyConfig  = "keep_empty_config"
	KeyRemoteCacheTTL   = "remote_cache_ttl"
	KeyVerbose          = "verbose"
	KeyExperimental     = "experimental"
)

// ErrUnknownKey is returned by Set for keys that are not settings.
var ErrUnknownKey = errors.New("unknown setting")

type kind int

const (
	kindString kind = iota
	kindBool
	kindDuration
	kindPaths
)

var keys = map[string]kind{
	KeyEnv:              kindString,
	KeyGlobalConfigFile: kindString,
	KeyDataDir:          kindString,
	KeyCacheDir:         kindString,
	KeyCeilingPaths:     kindPaths,
	KeyStopAtVCS:        kindBool,
	KeyKeepEmptyConfig:  kindBool,
	KeyRemoteCacheTTL:   kindDuration,
	KeyVerbose:          kindBool,
	KeyExperimental:     kindBool,
}

// Settings is the resolved view of every setting.
type Settings struct {
	Env              string
	GlobalConfigFile string
	DataDir          string
	CacheDir         string
	CeilingPaths     []string
	StopAtVCS        bool
	KeepEmptyConfig  bool
	RemoteCacheTTL   time.Duration
	Verbose          bool
	Experimental     bool
}

// xdgDir returns $<envVar>/mise, or ~/<fallback>/mise when unset.
func xdgDir(envVar, fallback string) string {
	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, branding.ConfigDir())
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallback, branding.ConfigDir())
	}
	return filepath.Join(home, fallback, branding.ConfigDir())
}

// Dir returns the settings directory (~/.config/mise/).
func Dir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// FilePath returns the full path to the settings file.
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the settings directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the settings file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyEnv, "")
	viper.SetDefault(KeyGlobalConfigFile, filepath.Join(Dir(), "config.toml"))
	viper.SetDefault(KeyDataDir, xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")))
	viper.SetDefault(KeyCacheDir, xdgDir("XDG_CACHE_HOME", ".cache"))
	viper.SetDefault(KeyCeilingPaths, "")
	viper.SetDefault(KeyStopAtVCS, false)
	viper.SetDefault(KeyKeepEmptyConfig, false)
	viper.SetDefault(KeyRemoteCacheTTL, "24h")
	viper.SetDefault(KeyVerbose, false)
	viper.SetDefault(KeyExperimental, false)

	// Ignore error if the settings file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Keys returns every setting key, sorted.
func Keys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Get returns a setting value by key. Returns empty string if not set.
func Get(key string) string {
	if keys[key] == kindPaths {
		return strings.Join(paths(key), string(os.PathListSeparator))
	}
	return viper.GetString(key)
}

// Current returns the resolved settings.
func Current() Settings {
	return Settings{
		Env:              viper.GetString(KeyEnv),
		GlobalConfigFile: viper.GetString(KeyGlobalConfigFile),
		DataDir:          viper.GetString(KeyDataDir),
		CacheDir:         viper.GetString(KeyCacheDir),
		CeilingPaths:     paths(KeyCeilingPaths),
		StopAtVCS:        viper.GetBool(KeyStopAtVCS),
		KeepEmptyConfig:  viper.GetBool(KeyKeepEmptyConfig),
		RemoteCacheTTL:   viper.GetDuration(KeyRemoteCacheTTL),
		Verbose:          viper.GetBool(KeyVerbose),
		Experimental:     viper.GetBool(KeyExperimental),
	}
}

// paths reads a path list that may come from the settings file as a YAML
// list or from the environment as an OS path list.
func paths(key string) []string {
	var raw []string
	switch v := viper.Get(key).(type) {
	case string:
		raw = filepath.SplitList(v)
	case []any, []string:
		raw = viper.GetStringSlice(key)
	}
	var out []string
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validate checks that value parses for the key's type.
func validate(key, value string) error {
	k, ok := keys[key]
	if !ok {
		return fmt.Errorf("%w %q: valid keys are %s", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	switch k {
	case kindBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s: expected true or false, got %q", key, value)
		}
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: expected a duration such as 24h, got %q", key, value)
		}
	}
	return nil
}

// Set writes a setting and saves the settings file.
func Set(key, value string) error {
	if err := validate(key, value); err != nil {
		return err
	}
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

	return nil
}
