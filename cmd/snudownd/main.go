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

// Command snudownd is a small HTTP rendering service: it accepts raw
// Markdown bodies and responds with safe HTML fragments. It stands in
// for the embedding shim the C implementation exposed to its host
// runtime.
package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/lmittmann/tint"
	"github.com/spf13/viper"

	"github.com/reddit/snudown"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		TimeFormat: time.DateTime,
	})))

	v := viper.New()
	v.SetDefault("host", "0.0.0.0:8091")
	v.SetEnvPrefix("snudownd")
	v.AutomaticEnv()

	router := mux.NewRouter()
	router.HandleFunc("/render", handleRender).Methods(http.MethodPost)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok\n")
	}).Methods(http.MethodGet)

	handler := handlers.RecoveryHandler()(
		handlers.CombinedLoggingHandler(os.Stdout, router))

	host := v.GetString("host")
	slog.Info("snudownd listening", "host", host, "version", snudown.Version)
	if err := http.ListenAndServe(host, handler); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// handleRender renders the request body. Mode and link options come
// from query parameters; a fresh renderer per request keeps renders
// isolated, since a renderer is not safe for concurrent use.
func handleRender(w http.ResponseWriter, r *http.Request) {
	src, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}

	mode := snudown.ModeUsertext
	switch r.URL.Query().Get("mode") {
	case "", "usertext":
	case "wiki":
		mode = snudown.ModeWiki
	case "usertext-without-links":
		mode = snudown.ModeUsertextWithoutLinks
	default:
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}

	opts := snudown.Options{
		Nofollow:    r.URL.Query().Get("nofollow") == "1",
		Target:      r.URL.Query().Get("target"),
		TOCIDPrefix: r.URL.Query().Get("toc_id_prefix"),
		EnableTOC:   r.URL.Query().Get("toc") == "1",
	}

	renderer, err := snudown.NewRenderer(mode, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(renderer.Render(src))
}
