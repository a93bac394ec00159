// Package config loads the runtime configuration of a cacheaside deployment
// from the environment, optionally layered over a file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// FileEnv names the variable holding an optional config file path (yaml, json, toml or env).
const FileEnv = "CACHEASIDE_CONFIG"

type Redis struct {
	Addr         string `yaml:"addr" json:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password     string `yaml:"password" json:"password" env:"REDIS_PASSWORD"`
	DB           int    `yaml:"db" json:"db" env:"REDIS_DB" env-default:"0"`
	InstanceName string `yaml:"instance_name" json:"instance_name" env:"REDIS_INSTANCE_NAME"`
}

type Cache struct {
	AbsoluteTTL time.Duration `yaml:"absolute_ttl" json:"absolute_ttl" env:"CACHE_ABSOLUTE_TTL"`
	SlidingTTL  time.Duration `yaml:"sliding_ttl" json:"sliding_ttl" env:"CACHE_SLIDING_TTL"`
	Codec       string        `yaml:"codec" json:"codec" env:"CACHE_CODEC" env-default:"json"`
}

type Log struct {
	Level  string `yaml:"level" json:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" json:"format" env:"LOG_FORMAT" env-default:"json"`
}

type HTTP struct {
	Addr            string        `yaml:"addr" json:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type Config struct {
	Redis Redis `yaml:"redis" json:"redis"`
	Cache Cache `yaml:"cache" json:"cache"`
	Log   Log   `yaml:"log" json:"log"`
	HTTP  HTTP  `yaml:"http" json:"http"`
}

// Load reads the file named by CACHEASIDE_CONFIG, if set, then the environment.
// Environment values win over file values.
func Load() (Config, error) {
	var cfg Config
	var err error
	if path := os.Getenv(FileEnv); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Codecs lists the values accepted for Cache.Codec.
var Codecs = []string{"json", "cbor", "msgpack"}

func (c Config) Validate() error {
	if c.Cache.AbsoluteTTL < 0 || c.Cache.SlidingTTL < 0 {
		return fmt.Errorf("config: cache ttl must not be negative")
	}
	codec := strings.ToLower(c.Cache.Codec)
	for _, name := range Codecs {
		if codec == name {
			return nil
		}
	}
	return fmt.Errorf("config: unknown codec %q (want one of %s)", c.Cache.Codec, strings.Join(Codecs, ", "))
}

// EntryOptions is the facade-wide default expiration, or nil when none is configured.
func (c Cache) EntryOptions() *pr.EntryOptions {
	eo := pr.EntryOptions{Absolute: c.AbsoluteTTL, Sliding: c.SlidingTTL}
	if eo.IsZero() {
		return nil
	}
	return &eo
}

// Usage describes every supported variable.
func Usage() string {
	var cfg Config
	s, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return s
}
