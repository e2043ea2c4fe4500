// Package config loads viewdef settings from defaults, an optional YAML file
// and VIEWDEF_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/agentic-research/viewdef/internal/ingest"
	"github.com/agentic-research/viewdef/internal/logger"
	"github.com/agentic-research/viewdef/internal/store"
	"github.com/spf13/viper"
)

const (
	configName      = ".viewdef"
	configType      = "yaml"
	envPrefix       = "VIEWDEF"
	envKeySeparator = "_"
)

// Defaults.
const (
	DefaultLogLevel         = "info"
	DefaultLogFormat        = logger.FormatConsole
	DefaultLogOutput        = "stderr"
	DefaultStoreDriver      = "file"
	DefaultStoreDSN         = "viewdef.db"
	DefaultStoreDir         = "."
	DefaultDefinitionFormat = "yaml"
	DefaultDefinitionIndent = 2

	maxIndent = 8
)

var (
	// ErrInvalidLogFormat indicates an unsupported log.format.
	ErrInvalidLogFormat = errors.New("log.format must be console or json")
	// ErrInvalidStoreDriver indicates an unsupported store.driver.
	ErrInvalidStoreDriver = errors.New("store.driver must be sqlite or file")
	// ErrMissingStoreDSN indicates the sqlite driver without a dsn.
	ErrMissingStoreDSN = errors.New("store.dsn is required for the sqlite driver")
	// ErrMissingStoreDir indicates the file driver without a directory.
	ErrMissingStoreDir = errors.New("store.dir is required for the file driver")
	// ErrInvalidFormat indicates an unsupported definition.format.
	ErrInvalidFormat = errors.New("definition.format must be json or yaml")
	// ErrInvalidIndent indicates an indent outside 0..8.
	ErrInvalidIndent = errors.New("definition.indent must be between 0 and 8")
)

// Config is the complete configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Definition DefinitionConfig `mapstructure:"definition"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Dir    string `mapstructure:"dir"`
}

type CatalogConfig struct {
	// Path of a catalog file replacing the built-in one. Empty selects the
	// built-in catalog.
	Path string `mapstructure:"path"`
}

type DefinitionConfig struct {
	Format string `mapstructure:"format"`
	Indent int    `mapstructure:"indent"`
}

// Load reads the configuration. An empty path searches ".viewdef.yaml" in
// the working directory and $HOME; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output", DefaultLogOutput)

	v.SetDefault("store.driver", DefaultStoreDriver)
	v.SetDefault("store.dsn", DefaultStoreDSN)
	v.SetDefault("store.dir", DefaultStoreDir)

	v.SetDefault("catalog.path", "")

	v.SetDefault("definition.format", DefaultDefinitionFormat)
	v.SetDefault("definition.indent", DefaultDefinitionIndent)
}

// Validate checks the invariants and returns the first error found.
func (c *Config) Validate() error {
	if !slices.Contains([]string{logger.FormatConsole, logger.FormatJSON}, c.Log.Format) {
		return ErrInvalidLogFormat
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.DSN == "" {
			return ErrMissingStoreDSN
		}
	case "file":
		if c.Store.Dir == "" {
			return ErrMissingStoreDir
		}
	default:
		return ErrInvalidStoreDriver
	}

	if _, err := ingest.ParseFormat(c.Definition.Format); err != nil {
		return ErrInvalidFormat
	}
	if c.Definition.Indent < 0 || c.Definition.Indent > maxIndent {
		return ErrInvalidIndent
	}
	return nil
}

// Format returns the validated definition format.
func (c *Config) Format() ingest.Format {
	f, _ := ingest.ParseFormat(c.Definition.Format)
	return f
}

// StoreConfig returns the parameters for store.Open.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver: c.Store.Driver,
		DSN:    c.Store.DSN,
		Dir:    c.Store.Dir,
		Format: c.Format(),
		Indent: c.Definition.Indent,
	}
}

// LoggerConfig returns the parameters for logger.New.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Format: c.Log.Format, Output: c.Log.Output}
}
