// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package config loads syncd/syncctl configuration from a YAML file plus
// environment overrides, grounded on orbas1-Synnergy's pkg/config loader
// and translated from its node/network shape to this module's
// store/server/sandbox shape.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the unified configuration for the syncd server and, where
// applicable, syncctl's defaults.
type Config struct {
	Store struct {
		BaseDir string `mapstructure:"base_dir"`
	} `mapstructure:"store"`

	Server struct {
		ListenAddr string `mapstructure:"listen_addr"`
		ReadOnly   bool   `mapstructure:"read_only"`
		Prefix     string `mapstructure:"prefix"`
	} `mapstructure:"server"`

	Sandbox struct {
		TimeoutMs  int      `mapstructure:"timeout_ms"`
		AllowHosts []string `mapstructure:"allow_hosts"`
	} `mapstructure:"sandbox"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// AppConfig holds the configuration loaded via Load.
var AppConfig Config

// defaults seeds every key viper will look up, so a config file or
// environment variable need only override what it cares about.
func defaults() {
	viper.SetDefault("store.base_dir", "./syncs")
	viper.SetDefault("server.listen_addr", ":8642")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("server.prefix", "/")
	viper.SetDefault("sandbox.timeout_ms", 5000)
	viper.SetDefault("sandbox.allow_hosts", []string{})
	viper.SetDefault("logging.level", "info")
}

// Load reads syncd.yaml (or env-named overlay) from the given search
// paths and environment variables prefixed SYNCD_, merging the result
// into AppConfig. A missing config file is not an error — defaults and
// environment variables still apply.
func Load(configPaths []string, env string) (*Config, error) {
	defaults()

	viper.SetConfigName("syncd")
	viper.SetConfigType("yaml")
	for _, p := range configPaths {
		viper.AddConfigPath(p)
	}
	viper.SetEnvPrefix("SYNCD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading syncd.yaml: %w", err)
		}
	}

	if env != "" {
		viper.SetConfigName("syncd." + env)
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: merging %s overlay: %w", env, err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	AppConfig = cfg
	return &cfg, nil
}
