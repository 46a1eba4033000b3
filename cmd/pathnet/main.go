/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pathnet/internal/config"
	"pathnet/internal/crash"
	applog "pathnet/internal/log"
	"pathnet/internal/network"
	"pathnet/internal/telemetry"
	"pathnet/internal/version"
)

// Secrets that never go into the config file.
const (
	envAuthSecret = "PNET_AUTH_SECRET"
	envToken      = "PNET_TOKEN"
)

var errUsage = errors.New("usage")

func usage() {
	fmt.Printf("pathnet %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pathnet version                              Show version")
	fmt.Println("  pathnet validate <file>                      Schema, build and integrity check")
	fmt.Println("  pathnet stats <file>                         Node, path and length summary")
	fmt.Println("  pathnet route <file> <from> <to>             Shortest route; refs are node:<id> or <path>@<t>")
	fmt.Println("  pathnet closest <file> <x,y,z> [path]        Closest point on the network")
	fmt.Println("  pathnet plot <file> <out.pdf|out.png> [from to]  Render the XZ plane")
	fmt.Println("  pathnet index <file>                         Import into the local catalog")
	fmt.Println("  pathnet list                                 List catalog entries")
	fmt.Println("  pathnet search <query> [network]             Full-text search over the catalog")
	fmt.Println("  pathnet history <name> [keep]                List (or prune to keep) catalog snapshots")
	fmt.Println("  pathnet push <file>                          Store in Postgres")
	fmt.Println("  pathnet pull <name> <file>                   Fetch from Postgres")
	fmt.Println("  pathnet serve [file...]                      HTTP query service")
	fmt.Println("  pathnet remote list|route|closest ...        Query a running service")
}

// app carries what every command needs.
type app struct {
	cfg      config.AppConfig
	password string
	log      *slog.Logger
	subject  *crash.Subject
}

func (a *app) buildOptions() network.Options {
	return network.Options{
		BezierSamples:           a.cfg.Sampling.BezierSamples,
		ApproxSamplesPerSection: a.cfg.Sampling.ApproxSamplesPerSection,
		Strict:                  a.cfg.Route.StrictIntegrity,
		Logger:                  applog.WithComponent("network"),
	}
}

func main() {
	cfg, password, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}
	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	if tcfg.EventsURL == "" {
		tcfg.EventsURL = cfg.General.TelemetryURL
	}
	telemetry.SetDefault(tcfg)

	a := &app{cfg: cfg, password: password, log: l, subject: &crash.Subject{}}
	defer crash.Recover(a.subject)

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := args[0]
	l.Debug("start", slog.String("command", cmd), slog.Int("args", len(args)-1))
	began := time.Now()
	err := a.run(ctx, cmd, args[1:])
	telemetry.Command(cmd, time.Since(began), err)
	telemetry.Flush(ctx)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Println(err)
		usage()
		stop()
		os.Exit(2)
	default:
		l.Error("command failed", slog.String("command", cmd), slog.Any("err", err))
		fmt.Println("Error:", err)
		stop()
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "version", "--version", "-v":
		fmt.Println("pathnet", version.String())
		return nil
	case "validate":
		return a.validate(args)
	case "stats":
		return a.stats(args)
	case "route":
		return a.route(ctx, args)
	case "closest":
		return a.closest(args)
	case "plot":
		return a.plot(args)
	case "index":
		return a.index(ctx, args)
	case "list":
		return a.list(ctx)
	case "search":
		return a.search(ctx, args)
	case "history":
		return a.history(ctx, args)
	case "push":
		return a.push(ctx, args)
	case "pull":
		return a.pull(ctx, args)
	case "serve":
		return a.serve(ctx, args)
	case "remote":
		return a.remote(ctx, args)
	case "help", "-h", "--help":
		usage()
		return nil
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

func need(args []string, n int, what string) error {
	if len(args) < n {
		return fmt.Errorf("%s: %w", what, errUsage)
	}
	return nil
}
