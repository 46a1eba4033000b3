/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log wires pathnet's slog setup: a readable console handler or
// JSON on stderr, an optional rotating JSON file, and records tagged with
// the component, operation and network they belong to.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"pathnet/internal/version"
)

// Env vars read by FromEnv.
const (
	EnvLevel  = "PNET_LOG_LEVEL"
	EnvFormat = "PNET_LOG_FORMAT"
	EnvSource = "PNET_LOG_SOURCE"
	EnvFile   = "PNET_LOG_FILE"
)

// Rotation limits for the log file.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

// Options controls Init. Level is debug|info|warn|error (default info),
// Format is console|json (default console). File enables a rotating JSON
// log next to the console output. Console defaults to stderr.
type Options struct {
	Level     string
	Format    string
	AddSource bool
	File      string
	Console   io.Writer
}

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// L returns the process logger, initializing it from the environment on
// first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l == nil {
		Init(FromEnv())
		mu.RLock()
		l = current
		mu.RUnlock()
	}
	return l
}

// Init replaces the process logger and slog.Default.
func Init(opts Options) {
	hopts := &slog.HandlerOptions{Level: parseLevel(opts.Level), AddSource: opts.AddSource}
	out := opts.Console
	if out == nil {
		out = os.Stderr
	}

	var hs fanout
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		hs = append(hs, slog.NewJSONHandler(out, hopts))
	} else {
		hs = append(hs, newConsoleHandler(out, hopts))
	}
	if f := strings.TrimSpace(opts.File); f != "" {
		w := &lj.Logger{Filename: f, MaxSize: fileMaxSizeMB, MaxBackups: fileMaxBackups, MaxAge: fileMaxAgeDays, Compress: true}
		hs = append(hs, slog.NewJSONHandler(w, hopts))
	}

	var h slog.Handler = hs
	if len(hs) == 1 {
		h = hs[0]
	}
	l := slog.New(networkTagger{h}).With(
		slog.String("app", "pathnet"),
		slog.String("ver", version.Version),
	)

	mu.Lock()
	current = l
	mu.Unlock()
	slog.SetDefault(l)
}

// FromEnv reads Options from PNET_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv(EnvLevel, "info"),
		Format:    getenv(EnvFormat, "console"),
		AddSource: strings.EqualFold(getenv(EnvSource, "false"), "true"),
		File:      os.Getenv(EnvFile),
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithComponent returns L() tagged with a component name.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// Nop returns a logger that drops every record.
func Nop() *slog.Logger { return slog.New(slog.DiscardHandler) }

type networkKey struct{}

// ContextWithNetwork tags ctx with a network name. Records logged with a
// context carrying the tag get a network attribute.
func ContextWithNetwork(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, networkKey{}, name)
}

// NetworkFromContext returns the network tag set by ContextWithNetwork.
func NetworkFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	name, ok := ctx.Value(networkKey{}).(string)
	return name, ok && name != ""
}

// networkTagger copies the context's network tag onto each record.
type networkTagger struct{ next slog.Handler }

func (n networkTagger) Enabled(ctx context.Context, l slog.Level) bool {
	return n.next.Enabled(ctx, l)
}

func (n networkTagger) Handle(ctx context.Context, r slog.Record) error {
	if name, ok := NetworkFromContext(ctx); ok {
		r = r.Clone()
		r.AddAttrs(slog.String("network", name))
	}
	return n.next.Handle(ctx, r)
}

func (n networkTagger) WithAttrs(attrs []slog.Attr) slog.Handler {
	return networkTagger{n.next.WithAttrs(attrs)}
}

func (n networkTagger) WithGroup(name string) slog.Handler {
	return networkTagger{n.next.WithGroup(name)}
}

// fanout sends every record to all handlers and reports the first error.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
