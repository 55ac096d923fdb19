package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the gqlexec configuration file. Command line flags override it.
type Config struct {
	Schema        string         `yaml:"schema"`
	Fixture       string         `yaml:"fixture"`
	Introspection bool           `yaml:"introspection"`
	Server        ServerConfig   `yaml:"server"`
	Executor      ExecutorConfig `yaml:"executor"`
	OTel          OTelConfig     `yaml:"otel"`
	Log           LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	Path              string        `yaml:"path"`
	Timeout           time.Duration `yaml:"timeout"`
	Pretty            bool          `yaml:"pretty"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	CORS              []string      `yaml:"cors"`
	GraphiQL          bool          `yaml:"graphiql"`
	DocumentCacheSize int           `yaml:"document_cache_size"`
	BatchConcurrency  int           `yaml:"batch_concurrency"`
}

type ExecutorConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
	// SerialQueries runs query root fields one after another, like mutations.
	SerialQueries bool `yaml:"serial_queries"`
}

type OTelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func defaultConfig() Config {
	return Config{
		Introspection: true,
		Server: ServerConfig{
			Addr:              ":8080",
			Path:              "/graphql",
			Timeout:           10 * time.Second,
			GraphiQL:          true,
			DocumentCacheSize: 256,
			BatchConcurrency:  4,
		},
		OTel: OTelConfig{Service: "gqlexec"},
		Log:  LogConfig{Level: "info"},
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyFlags copies the flags set on the command line into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "schema":
			cfg.Schema, err = fs.GetString(f.Name)
		case "fixture":
			cfg.Fixture, err = fs.GetString(f.Name)
		case "introspection":
			cfg.Introspection, err = fs.GetBool(f.Name)
		case "addr":
			cfg.Server.Addr, err = fs.GetString(f.Name)
		case "path":
			cfg.Server.Path, err = fs.GetString(f.Name)
		case "timeout":
			cfg.Server.Timeout, err = fs.GetDuration(f.Name)
		case "pretty":
			cfg.Server.Pretty, err = fs.GetBool(f.Name)
		case "max-body-bytes":
			cfg.Server.MaxBodyBytes, err = fs.GetInt64(f.Name)
		case "cors":
			cfg.Server.CORS, err = fs.GetStringSlice(f.Name)
		case "graphiql":
			cfg.Server.GraphiQL, err = fs.GetBool(f.Name)
		case "max-concurrency":
			cfg.Executor.MaxConcurrency, err = fs.GetInt(f.Name)
		case "otel-endpoint":
			cfg.OTel.Endpoint, err = fs.GetString(f.Name)
		case "otel-service":
			cfg.OTel.Service, err = fs.GetString(f.Name)
		case "log-level":
			cfg.Log.Level, err = fs.GetString(f.Name)
		}
	})
	return err
}

func newLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
