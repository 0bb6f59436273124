package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"hreq/internal/errdef"
)

const (
	// EnvPrefix prefixes every environment override, e.g. HREQ_TIMEOUT.
	EnvPrefix = "HREQ"

	configName = "config"
)

// Config is the resolved application configuration.
type Config struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	DataDir         string        `mapstructure:"data_dir"`
	MaxResponseSize int64         `mapstructure:"max_response_size"`
	Color           bool          `mapstructure:"color"`
	Highlight       bool          `mapstructure:"highlight"`
	Log             Log           `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// Log configures the application logger.
type Log struct {
	Level      string   `mapstructure:"level"`
	Writers    []string `mapstructure:"writers"`
	File       string   `mapstructure:"file"`
	MaxSizeMB  int      `mapstructure:"max_size_mb"`
	MaxBackups int      `mapstructure:"max_backups"`
}

// DefaultDataDir is ~/.hreq, or .hreq when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hreq"
	}
	return filepath.Join(home, ".hreq")
}

// New builds a viper instance with defaults and environment bindings. A
// non-empty file is used as the config file; otherwise config.yaml (or any
// supported extension) in the data directory is looked up.
func New(file string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(v.GetString("data_dir"))
	}
	return v
}

func setDefaults(v *viper.Viper) {
	dataDir := DefaultDataDir()

	v.SetDefault("timeout", "30s")
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("max_response_size", 50*1024*1024)
	v.SetDefault("color", true)
	v.SetDefault("highlight", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.writers", []string{"file"})
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}

// Load reads the config file, if there is one, and decodes the result. A
// missing default config file is not an error; a missing explicit one is.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, errdef.Wrap(errdef.CodeConfig, err, "read config")
		}
	}
	return Decode(v)
}

// Decode unmarshals the current viper state without reading any file.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, errdef.Wrap(errdef.CodeConfig, err, "decode config")
	}

	cfg.File = v.ConfigFileUsed()
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(cfg.DataDir, "hreq.log")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return errdef.New(errdef.CodeConfig, "timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxResponseSize <= 0 {
		return errdef.New(errdef.CodeConfig, "max_response_size must be positive")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errdef.New(errdef.CodeConfig, "data_dir is empty")
	}
	for _, w := range c.Log.Writers {
		switch strings.TrimSpace(w) {
		case "console", "file":
		default:
			return errdef.New(errdef.CodeConfig, "unknown log writer %q", w)
		}
	}
	return nil
}

// Watch calls onChange with the re-decoded config whenever the config file
// changes. Changes that fail to decode are passed to onError, if set.
func Watch(v *viper.Viper, onChange func(Config, fsnotify.Event), onError func(error)) {
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&fsnotify.Write != fsnotify.Write && e.Op&fsnotify.Create != fsnotify.Create {
			return
		}
		cfg, err := Decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg, e)
	})
	v.WatchConfig()
}
