// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads parley settings from flags and an optional YAML file.
//
// Precedence, lowest to highest: flag defaults, the YAML file, flags set on
// the command line.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/parley/internal/command"
	"github.com/holomush/parley/internal/core"
	"github.com/holomush/parley/internal/dialogue"
	"github.com/holomush/parley/internal/generation"
	"github.com/holomush/parley/internal/telemetry"
	"github.com/holomush/parley/internal/xdg"
)

// CodeInvalidConfig marks configuration that failed to load or validate.
const CodeInvalidConfig = "INVALID_CONFIG"

// Config is the full parley configuration.
type Config struct {
	Log        LogConfig        `koanf:"log"`
	Generation GenerationConfig `koanf:"generation"`
	Dialogue   DialogueConfig   `koanf:"dialogue"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Server     ServerConfig     `koanf:"server"`
}

// LogConfig controls logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// GenerationConfig controls the backend client and its worker pool.
type GenerationConfig struct {
	Endpoint       string        `koanf:"endpoint"`
	MaxRetries     int           `koanf:"max_retries"`
	RetryBackoff   time.Duration `koanf:"retry_backoff"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	Workers        int           `koanf:"workers"`
	QueueSize      int           `koanf:"queue_size"`
}

// DialogueConfig controls conversation pacing.
type DialogueConfig struct {
	DebounceWindow time.Duration `koanf:"debounce_window"`
	CommandRate    float64       `koanf:"command_rate"`
	CommandBurst   int           `koanf:"command_burst"`
}

// TelemetryConfig controls gameplay event delivery.
type TelemetryConfig struct {
	MinInterval time.Duration `koanf:"min_interval"`
}

// ServerConfig controls listeners and outbound forwarding.
type ServerConfig struct {
	CommandAddr string `koanf:"command_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	ForwardURL  string `koanf:"forward_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Format: "json", Level: "info"},
		Generation: GenerationConfig{
			Endpoint:       generation.DefaultEndpoint,
			MaxRetries:     generation.DefaultMaxRetries,
			RetryBackoff:   generation.DefaultRetryBackoff,
			RequestTimeout: generation.DefaultRequestTimeout,
			Workers:        core.DefaultPoolWorkers,
			QueueSize:      core.DefaultPoolQueueSize,
		},
		Dialogue: DialogueConfig{
			DebounceWindow: dialogue.DefaultDebounceWindow,
			CommandRate:    command.DefaultSustainedRate,
			CommandBurst:   command.DefaultBurstCapacity,
		},
		Telemetry: TelemetryConfig{MinInterval: telemetry.DefaultMinInterval},
		Server: ServerConfig{
			CommandAddr: "127.0.0.1:8765",
			MetricsAddr: "127.0.0.1:9100",
		},
	}
}

// RegisterFlags adds one flag per key to flags, named by its dotted key and
// defaulted from Default.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String("log.format", d.Log.Format, "log format (json, text)")
	flags.String("log.level", d.Log.Level, "log level (debug, info, warn, error)")
	flags.String("generation.endpoint", d.Generation.Endpoint, "generation backend tool-call URL")
	flags.Int("generation.max_retries", d.Generation.MaxRetries, "retries after the first backend attempt")
	flags.Duration("generation.retry_backoff", d.Generation.RetryBackoff, "wait between backend attempts")
	flags.Duration("generation.request_timeout", d.Generation.RequestTimeout, "per-attempt backend timeout")
	flags.Int("generation.workers", d.Generation.Workers, "concurrent backend calls")
	flags.Int("generation.queue_size", d.Generation.QueueSize, "backend calls that may wait for a worker")
	flags.Duration("dialogue.debounce_window", d.Dialogue.DebounceWindow, "window absorbing repeated interactions")
	flags.Float64("dialogue.command_rate", d.Dialogue.CommandRate, "sustained player commands per second")
	flags.Int("dialogue.command_burst", d.Dialogue.CommandBurst, "player command burst size")
	flags.Duration("telemetry.min_interval", d.Telemetry.MinInterval, "minimum gap between gameplay events")
	flags.String("server.command_addr", d.Server.CommandAddr, "command intake listen address")
	flags.String("server.metrics_addr", d.Server.MetricsAddr, "metrics and health listen address (empty disables)")
	flags.String("server.forward_url", d.Server.ForwardURL, "URL receiving forwarded commands (empty logs them)")
}

// Load reads path (or the XDG default when path is empty and that file
// exists) and then flags. An explicit path that does not exist is an error.
func Load(flags *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		if def, err := xdg.ConfigFile(); err == nil && fileExists(def) {
			path = def
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeInvalidConfig).
				With("path", path).
				Wrapf(err, "load config file")
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code(CodeInvalidConfig).Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeInvalidConfig).
			With("path", path).
			Wrapf(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	invalid := func(key string, value any, reason string) error {
		return oops.Code(CodeInvalidConfig).
			With("key", key).
			With("value", value).
			Errorf("%s: %s", key, reason)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format", c.Log.Format, "must be json or text")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", c.Log.Level, "must be debug, info, warn, or error")
	}

	if u, err := url.Parse(c.Generation.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("generation.endpoint", c.Generation.Endpoint, "must be an absolute URL")
	}
	if c.Generation.MaxRetries < 0 {
		return invalid("generation.max_retries", c.Generation.MaxRetries, "must not be negative")
	}
	if c.Generation.RetryBackoff <= 0 {
		return invalid("generation.retry_backoff", c.Generation.RetryBackoff, "must be positive")
	}
	if c.Generation.RequestTimeout <= 0 {
		return invalid("generation.request_timeout", c.Generation.RequestTimeout, "must be positive")
	}
	if c.Generation.Workers < 1 {
		return invalid("generation.workers", c.Generation.Workers, "must be at least 1")
	}
	if c.Generation.QueueSize < 1 {
		return invalid("generation.queue_size", c.Generation.QueueSize, "must be at least 1")
	}

	if c.Dialogue.DebounceWindow < 0 {
		return invalid("dialogue.debounce_window", c.Dialogue.DebounceWindow, "must not be negative")
	}
	if c.Dialogue.CommandRate <= 0 {
		return invalid("dialogue.command_rate", c.Dialogue.CommandRate, "must be positive")
	}
	if c.Dialogue.CommandBurst < 1 {
		return invalid("dialogue.command_burst", c.Dialogue.CommandBurst, "must be at least 1")
	}
	if c.Telemetry.MinInterval < 0 {
		return invalid("telemetry.min_interval", c.Telemetry.MinInterval, "must not be negative")
	}

	if c.Server.CommandAddr == "" {
		return invalid("server.command_addr", c.Server.CommandAddr, "is required")
	}
	if c.Server.ForwardURL != "" {
		if u, err := url.Parse(c.Server.ForwardURL); err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("server.forward_url", c.Server.ForwardURL, "must be an absolute URL")
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
