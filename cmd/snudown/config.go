// Copyright 2024 The snudown-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the renderer and logging settings, merged from
// defaults, an optional snudown.yaml, SNUDOWN_* environment
// variables, and command-line flags (highest priority last).
type Config struct {
	Renderer    string
	Nofollow    bool
	Target      string
	EnableTOC   bool
	TOCIDPrefix string
	LogFormat   string
	LogLevel    string
}

func DefaultConfig() *Config {
	return &Config{
		Renderer:  "usertext",
		LogFormat: "pretty",
		LogLevel:  "info",
	}
}

// Load merges configuration sources into cfg.
func (cfg *Config) Load(flags *pflag.FlagSet) error {
	v := viper.New()
	v.SetDefault("renderer", cfg.Renderer)
	v.SetDefault("nofollow", cfg.Nofollow)
	v.SetDefault("target", cfg.Target)
	v.SetDefault("toc", cfg.EnableTOC)
	v.SetDefault("toc-id-prefix", cfg.TOCIDPrefix)
	v.SetDefault("log-format", cfg.LogFormat)
	v.SetDefault("log-level", cfg.LogLevel)

	v.SetConfigName("snudown")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "read config file")
		}
	}

	v.SetEnvPrefix("snudown")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return errors.Wrap(err, "bind flags")
	}

	cfg.Renderer = v.GetString("renderer")
	cfg.Nofollow = v.GetBool("nofollow")
	cfg.Target = v.GetString("target")
	cfg.EnableTOC = v.GetBool("toc")
	cfg.TOCIDPrefix = v.GetString("toc-id-prefix")
	cfg.LogFormat = v.GetString("log-format")
	cfg.LogLevel = v.GetString("log-level")
	return nil
}
