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

// Command snudown renders reddit-flavored Markdown from stdin or
// files to HTML fragments, and can validate that rendered output
// parses cleanly as HTML5.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/reddit/snudown"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		slog.Error("snudown failed", "error", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cfg := DefaultConfig()

	root := &cobra.Command{
		Use:           "snudown [file...]",
		Short:         "Render reddit-flavored Markdown to safe HTML fragments",
		Version:       snudown.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(cmd.Flags()); err != nil {
				return err
			}
			InitLogger(ParseLogFormat(cfg.LogFormat), ParseLogLevel(cfg.LogLevel))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderAll(cmd.OutOrStdout(), cfg, args)
		},
	}

	flags := root.PersistentFlags()
	flags.String("renderer", "usertext", "renderer mode: usertext, wiki, or usertext-without-links")
	flags.Bool("nofollow", false, `append rel="nofollow" to links`)
	flags.String("target", "", `append target="..." to links`)
	flags.Bool("toc", false, "emit a table of contents before the document")
	flags.String("toc-id-prefix", "", "prefix for header anchor ids")
	flags.String("log-format", "pretty", "log format: pretty, json, or text")
	flags.String("log-level", "info", "log level: debug, info, warn, or error")

	root.AddCommand(validateCommand(cfg))
	return root
}

func renderAll(w io.Writer, cfg *Config, args []string) error {
	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{"-"}
	}
	for _, name := range args {
		src, err := readInput(name)
		if err != nil {
			return err
		}
		if _, err := w.Write(renderer.Render(src)); err != nil {
			return errors.Wrap(err, "write output")
		}
	}
	return nil
}

func newRenderer(cfg *Config) (*snudown.Renderer, error) {
	mode, err := parseMode(cfg.Renderer)
	if err != nil {
		return nil, err
	}
	return snudown.NewRenderer(mode, snudown.Options{
		Nofollow:    cfg.Nofollow,
		Target:      cfg.Target,
		TOCIDPrefix: cfg.TOCIDPrefix,
		EnableTOC:   cfg.EnableTOC,
	})
}

func parseMode(name string) (snudown.Mode, error) {
	switch name {
	case "usertext":
		return snudown.ModeUsertext, nil
	case "wiki":
		return snudown.ModeWiki, nil
	case "usertext-without-links":
		return snudown.ModeUsertextWithoutLinks, nil
	default:
		return 0, errors.Errorf("unknown renderer %q", name)
	}
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		src, err := io.ReadAll(os.Stdin)
		return src, errors.Wrap(err, "read stdin")
	}
	src, err := os.ReadFile(name)
	return src, errors.Wrapf(err, "read %s", name)
}

func validateCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Render input and check the output is well-formed safe HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := newRenderer(cfg)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"-"}
			}
			failed := false
			for _, name := range args {
				src, err := readInput(name)
				if err != nil {
					return err
				}
				findings := Validate(renderer.Render(src))
				for _, f := range findings {
					slog.Error("validation finding", "input", name, "finding", f)
					failed = true
				}
				if len(findings) == 0 {
					slog.Info("output is well-formed", "input", name)
				}
			}
			if failed {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
}
