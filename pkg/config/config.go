// Package config loads csi settings from flags, environment, a config file
// and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/siyuan-infoblox/css-imports/pkg/urlutil"
)

// Sentinel validation errors.
var (
	ErrInvalidFormat        = errors.New("invalid output format")
	ErrInvalidConcurrency   = errors.New("concurrency must not be negative")
	ErrInvalidExternal      = errors.New("invalid externals entry")
	ErrInvalidFilterPattern = errors.New("invalid filter pattern")
)

const (
	configName      = ".csi"
	configType      = "yaml"
	envPrefix       = "CSI"
	envKeySeparator = "_"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Default configuration values.
var (
	DefaultExtensions = []string{".css", "..."}
	DefaultMainFiles  = []string{"index", "..."}
	DefaultMainFields = []string{"css", "style", "main", "..."}
)

// Config holds all csi settings.
type Config struct {
	SupportAbsoluteURL bool     `mapstructure:"support_absolute_url"`
	SupportDataURL     bool     `mapstructure:"support_data_url"`
	Externals          []string `mapstructure:"externals"`
	CSSStyleSheet      bool     `mapstructure:"css_stylesheet"`
	RootContext        string   `mapstructure:"root_context"`
	StrictResolve      bool     `mapstructure:"strict_resolve"`
	Concurrency        int      `mapstructure:"concurrency"`
	Format             string   `mapstructure:"format"`
	InPlace            bool     `mapstructure:"in_place"`
	Diff               bool     `mapstructure:"diff"`

	Extensions []string `mapstructure:"extensions"`
	MainFiles  []string `mapstructure:"main_files"`
	MainFields []string `mapstructure:"main_fields"`

	Filter FilterConfig `mapstructure:"filter"`
}

// FilterConfig drops imports by URL or media query.
type FilterConfig struct {
	Exclude      []string `mapstructure:"exclude"`       // regexps matched against the URL
	ExcludeMedia []string `mapstructure:"exclude_media"` // regexps matched against the media query
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"support-absolute-url": "support_absolute_url",
	"support-data-url":     "support_data_url",
	"externals":            "externals",
	"css-stylesheet":       "css_stylesheet",
	"root-context":         "root_context",
	"strict-resolve":       "strict_resolve",
	"concurrency":          "concurrency",
	"format":               "format",
	"in-place":             "in_place",
	"diff":                 "diff",
	"exclude":              "filter.exclude",
	"exclude-media":        "filter.exclude_media",
}

// LoadConfig loads configuration from flags, env vars, file and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(viperCfg, flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("support_absolute_url", false)
	viperCfg.SetDefault("support_data_url", false)
	viperCfg.SetDefault("externals", []string{})
	viperCfg.SetDefault("css_stylesheet", false)
	viperCfg.SetDefault("root_context", "")
	viperCfg.SetDefault("strict_resolve", false)
	viperCfg.SetDefault("concurrency", 0)
	viperCfg.SetDefault("format", FormatTable)
	viperCfg.SetDefault("in_place", false)
	viperCfg.SetDefault("diff", false)

	viperCfg.SetDefault("extensions", DefaultExtensions)
	viperCfg.SetDefault("main_files", DefaultMainFiles)
	viperCfg.SetDefault("main_fields", DefaultMainFields)

	viperCfg.SetDefault("filter.exclude", []string{})
	viperCfg.SetDefault("filter.exclude_media", []string{})
}

func bindFlags(viperCfg *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = viperCfg.BindPFlag(key, f)
	})
	return bindErr
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: %q (want %s, %s or %s)", ErrInvalidFormat, c.Format, FormatTable, FormatJSON, FormatYAML)
	}

	if c.Concurrency < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.Concurrency)
	}

	if _, err := urlutil.CompileExternals(c.Externals); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExternal, err)
	}

	for _, pattern := range append(append([]string(nil), c.Filter.Exclude...), c.Filter.ExcludeMedia...) {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidFilterPattern, pattern, err)
		}
	}

	return nil
}
