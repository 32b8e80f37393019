package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "STATICS"

// Config is the daemon configuration. Every key can be set in the config
// file, as a STATICS_ prefixed environment variable (dots and dashes become
// underscores) or, for the common ones, as a flag.
type Config struct {
	Listen     string           `mapstructure:"listen"`
	Store      StoreConfig      `mapstructure:"store"`
	Schema     SchemaConfig     `mapstructure:"schema"`
	Validation ValidationConfig `mapstructure:"validation"`
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Activity   ActivityConfig   `mapstructure:"activity"`
}

type StoreConfig struct {
	Type       string      `mapstructure:"type"`
	Collection string      `mapstructure:"collection"`
	DataDir    string      `mapstructure:"data-dir"`
	Fsync      string      `mapstructure:"fsync"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

type SchemaConfig struct {
	// File is a dedicated schema document. When empty the `statics` key of
	// the main config file is used and watched for changes.
	File string `mapstructure:"file"`
}

type ValidationConfig struct {
	StrictKeys bool `mapstructure:"strict-keys"`
	CacheSize  int  `mapstructure:"cache-size"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max-size"`
	MaxBackups int    `mapstructure:"max-backups"`
	Compress   bool   `mapstructure:"compress"`
}

type HTTPConfig struct {
	AccessLog       bool          `mapstructure:"access-log"`
	ActorHeader     string        `mapstructure:"actor-header"`
	MaxBodyBytes    int64         `mapstructure:"max-body-bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type ActivityConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Channel string `mapstructure:"channel"`
	// Verbs limits logged events, e.g. [statics.created]. Empty logs all.
	Verbs []string `mapstructure:"verbs"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":7890")
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.collection", "statics")
	v.SetDefault("store.data-dir", "./data")
	v.SetDefault("store.fsync", "interval")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.prefix", "statics")
	v.SetDefault("schema.file", "")
	v.SetDefault("validation.strict-keys", false)
	v.SetDefault("validation.cache-size", 256)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size", 100)
	v.SetDefault("log.max-backups", 3)
	v.SetDefault("log.compress", false)
	v.SetDefault("http.access-log", true)
	v.SetDefault("http.actor-header", "X-Actor-ID")
	v.SetDefault("http.max-body-bytes", 1<<20)
	v.SetDefault("http.shutdown-timeout", 10*time.Second)
	v.SetDefault("activity.enabled", true)
	v.SetDefault("activity.channel", "statics")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// readConfigFile loads path when set, or looks for staticsd.{yaml,json,toml}
// in the working directory and /etc/staticsd. A missing default file is not
// an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}
	v.SetConfigName("staticsd")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/staticsd")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	switch cfg.Store.Type {
	case "memory", "pebble", "redis":
	default:
		return cfg, fmt.Errorf("store.type must be memory, pebble or redis, got %q", cfg.Store.Type)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return cfg, fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	return cfg, nil
}
