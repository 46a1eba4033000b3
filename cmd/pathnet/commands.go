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
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pathnet/internal/backend"
	"pathnet/internal/curve"
	"pathnet/internal/export"
	"pathnet/internal/network"
	"pathnet/internal/route"
	"pathnet/internal/storage"
)

// load reads and builds a network file, registering it for crash autosave.
func (a *app) load(path string) (*network.Graph, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	doc, err := storage.Load(abs)
	if err != nil {
		return nil, err
	}
	a.subject.Path, a.subject.Doc = abs, &doc
	return network.Build(doc, a.buildOptions())
}

func (a *app) validate(args []string) error {
	if err := need(args, 1, "validate requires <file>"); err != nil {
		return err
	}
	opts := a.buildOptions()
	opts.Strict = true
	doc, err := storage.Load(args[0])
	if err != nil {
		return err
	}
	g, err := network.Build(doc, opts)
	if err != nil {
		return err
	}
	st := g.Stats()
	fmt.Printf("%s: ok (%d nodes, %d paths, %d components)\n", doc.Name, st.Nodes, st.Paths, st.Components)
	return nil
}

func (a *app) stats(args []string) error {
	if err := need(args, 1, "stats requires <file>"); err != nil {
		return err
	}
	g, err := a.load(args[0])
	if err != nil {
		return err
	}
	st := g.Stats()
	fmt.Printf("Network:    %s\n", g.Name)
	if d := g.Doc().Description; d != "" {
		fmt.Printf("About:      %s\n", d)
	}
	fmt.Printf("Nodes:      %d\n", st.Nodes)
	fmt.Printf("Paths:      %d (%d active)\n", st.Paths, st.Active)
	fmt.Printf("Components: %d\n", st.Components)
	fmt.Printf("Length:     %.3f\n", st.Length)
	for _, k := range st.KindNames() {
		fmt.Printf("  %-20s %d\n", k, st.Kinds[k])
	}
	return nil
}

func formatVec(p curve.Position) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", p.Point.X, p.Point.Y, p.Point.Z)
}

func formatPos(p curve.Position) string {
	if !p.Valid() {
		return "-"
	}
	ref := p.Path.ID() + "@" + strconv.FormatFloat(p.T, 'f', 4, 64)
	if p.Node != nil {
		ref += " [" + p.Node.ID + "]"
	}
	return ref + " " + formatVec(p)
}

// waypointRefs encodes waypoints as "<node>><path>@<t>" for the route cache.
func waypointRefs(r *route.Route) []string {
	out := make([]string, 0, len(r.Waypoints))
	for _, w := range r.Waypoints {
		out = append(out, w.Node.ID+">"+w.Path.ID()+"@"+strconv.FormatFloat(w.DepartT, 'g', -1, 64))
	}
	return out
}

func (a *app) route(ctx context.Context, args []string) error {
	if err := need(args, 3, "route requires <file> <from> <to>"); err != nil {
		return err
	}
	g, err := a.load(args[0])
	if err != nil {
		return err
	}
	from, to := args[1], args[2]
	doc := g.Doc()
	hash := storage.Hash(doc)
	dir := a.cfg.Storage.IndexDir

	if dir != "" {
		if c, ok, err := storage.LookupRoute(ctx, dir, doc.Name, hash, from, to); err != nil {
			a.log.Warn("route cache lookup failed", slog.Any("err", err))
		} else if ok {
			fmt.Printf("Route %s -> %s (cached %s)\n", from, to, c.CreatedAt.Format(time.RFC3339))
			fmt.Printf("  distance %.3f\n", c.Distance)
			for _, w := range c.Waypoints {
				fmt.Printf("  via %s\n", w)
			}
			return nil
		}
	}

	r, err := g.Route(from, to)
	if err != nil {
		return err
	}
	if r == nil {
		fmt.Printf("No route from %s to %s\n", from, to)
		return nil
	}
	fmt.Printf("Route %s -> %s\n", from, to)
	fmt.Printf("  distance %.3f\n", r.Distance)
	fmt.Printf("  start    %s\n", formatPos(r.Start))
	prev := r.Start.Path
	for _, w := range r.Waypoints {
		fmt.Printf("  via      %s: %s@%.4f -> %s@%.4f\n", w.Node.ID, prev.ID(), w.ArriveT, w.Path.ID(), w.DepartT)
		prev = w.Path
	}
	fmt.Printf("  end      %s\n", formatPos(r.End))

	if dir != "" {
		if err := a.remember(ctx, dir, g, from, to, hash, r); err != nil {
			a.log.Warn("route not cached", slog.Any("err", err))
		}
	}
	return nil
}

func (a *app) remember(ctx context.Context, dir string, g *network.Graph, from, to, hash string, r *route.Route) error {
	if _, _, err := storage.Import(ctx, dir, g.Doc(), a.subject.Path, g.Stats().Length); err != nil {
		return err
	}
	return storage.StoreRoute(ctx, dir, storage.CachedRoute{
		Network:   g.Name,
		Hash:      hash,
		From:      from,
		To:        to,
		Distance:  r.Distance,
		Waypoints: waypointRefs(r),
	})
}

func (a *app) closest(args []string) error {
	if err := need(args, 2, "closest requires <file> <x,y,z> [path]"); err != nil {
		return err
	}
	g, err := a.load(args[0])
	if err != nil {
		return err
	}
	q, err := network.ParseVec(args[1])
	if err != nil {
		return err
	}
	var pathID string
	if len(args) > 2 {
		pathID = args[2]
	}
	pos, d2, err := g.Closest(pathID, q)
	if err != nil {
		return err
	}
	if !pos.Valid() {
		fmt.Println("No active path to search")
		return nil
	}
	fmt.Printf("Closest %s\n", formatPos(pos))
	fmt.Printf("  distance %.3f\n", math.Sqrt(d2))
	return nil
}

func (a *app) plot(args []string) error {
	if err := need(args, 2, "plot requires <file> <out>"); err != nil {
		return err
	}
	g, err := a.load(args[0])
	if err != nil {
		return err
	}
	var r *route.Route
	if len(args) >= 4 {
		if r, err = g.Route(args[2], args[3]); err != nil {
			return err
		}
		if r == nil {
			a.log.Warn("no route to plot", slog.String("from", args[2]), slog.String("to", args[3]))
		}
	}
	preset := export.PresetPrint
	if strings.EqualFold(filepath.Ext(args[1]), ".png") {
		preset = export.PresetWeb
	}
	p := export.Build(g, r, export.BuildOptions{})
	if err := export.Write(p, args[1], preset); err != nil {
		return err
	}
	fmt.Println("Wrote", args[1])
	return nil
}

func (a *app) indexDir() (string, error) {
	if a.cfg.Storage.IndexDir == "" {
		return "", errors.New("storage.index_dir is not configured")
	}
	return a.cfg.Storage.IndexDir, nil
}

func (a *app) index(ctx context.Context, args []string) error {
	if err := need(args, 1, "index requires <file>"); err != nil {
		return err
	}
	dir, err := a.indexDir()
	if err != nil {
		return err
	}
	if rebuilt, err := storage.DetectAndRebuildIndex(ctx, dir); err != nil {
		return err
	} else if rebuilt {
		a.log.Warn("catalog was damaged and has been rebuilt", slog.String("dir", dir))
	}
	g, err := a.load(args[0])
	if err != nil {
		return err
	}
	e, changed, err := storage.Import(ctx, dir, g.Doc(), a.subject.Path, g.Stats().Length)
	if err != nil {
		return err
	}
	state := "unchanged"
	if changed {
		state = "updated"
	}
	fmt.Printf("Indexed %s (%s, hash %.12s)\n", e.Name, state, e.Hash)
	return nil
}

func (a *app) list(ctx context.Context) error {
	dir, err := a.indexDir()
	if err != nil {
		return err
	}
	entries, err := storage.List(ctx, dir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Catalog is empty")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-24s %4d nodes %4d paths %10.3f  %s\n", e.Name, e.Nodes, e.Paths, e.Length, e.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func (a *app) search(ctx context.Context, args []string) error {
	if err := need(args, 1, "search requires <query>"); err != nil {
		return err
	}
	dir, err := a.indexDir()
	if err != nil {
		return err
	}
	q := storage.SearchQuery{Text: args[0]}
	if len(args) > 1 {
		q.Network = args[1]
	}
	res, err := storage.Search(ctx, dir, q)
	if err != nil {
		return err
	}
	for _, r := range res {
		fmt.Printf("%s\t%s\t%s\t%s\n", r.Network, r.Kind, r.Ref, r.Text)
	}
	return nil
}

func (a *app) history(ctx context.Context, args []string) error {
	if err := need(args, 1, "history requires <name>"); err != nil {
		return err
	}
	dir, err := a.indexDir()
	if err != nil {
		return err
	}
	if len(args) > 1 {
		keep, err := strconv.Atoi(args[1])
		if err != nil || keep < 1 {
			return fmt.Errorf("keep must be a positive number: %w", errUsage)
		}
		if err := storage.PruneOldSnapshots(ctx, dir, args[0], keep); err != nil {
			return err
		}
	}
	snaps, err := storage.ListSnapshots(ctx, dir, args[0], 0)
	if err != nil {
		return err
	}
	for _, s := range snaps {
		fmt.Printf("%s  %d bytes\n", s.TS.Format(time.RFC3339), len(s.Blob))
	}
	return nil
}

func (a *app) openStore(ctx context.Context) (*backend.Store, error) {
	if a.cfg.Backend.DSN == "" {
		return nil, errors.New("backend.dsn is not configured")
	}
	return backend.Open(ctx, backend.WithPassword(a.cfg.Backend.DSN, a.cfg.Backend.User, a.password))
}

func (a *app) push(ctx context.Context, args []string) error {
	if err := need(args, 1, "push requires <file>"); err != nil {
		return err
	}
	if _, err := a.load(args[0]); err != nil {
		return err
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	m, err := st.Put(ctx, *a.subject.Doc)
	if err != nil {
		return err
	}
	fmt.Printf("Pushed %s revision %d\n", m.Name, m.Revision)
	return nil
}

func (a *app) pull(ctx context.Context, args []string) error {
	if err := need(args, 2, "pull requires <name> <file>"); err != nil {
		return err
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	doc, m, err := st.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if err := storage.Save(args[1], doc); err != nil {
		return err
	}
	fmt.Printf("Pulled %s revision %d into %s\n", m.Name, m.Revision, args[1])
	return nil
}

func (a *app) serve(ctx context.Context, args []string) error {
	opts := backend.Options{
		Addr:       a.cfg.Backend.Addr,
		AuthSecret: os.Getenv(envAuthSecret),
		Build:      a.buildOptions(),
	}
	if a.cfg.Backend.DSN != "" {
		st, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		opts.Source = st
	}
	srv := backend.NewServer(opts)
	for _, path := range args {
		doc, err := storage.Load(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := srv.Add(doc, "file"); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	a.log.Info("serving", slog.String("addr", opts.Addr), slog.Int("files", len(args)), slog.Bool("store", opts.Source != nil))
	return srv.ListenAndServe(ctx)
}

func (a *app) remote(ctx context.Context, args []string) error {
	if err := need(args, 1, "remote requires list|route|closest"); err != nil {
		return err
	}
	c := backend.NewClient(a.cfg.Backend.BaseURL, os.Getenv(envToken), a.cfg.Backend.Timeout())
	switch args[0] {
	case "list":
		infos, err := c.ListNetworks(ctx)
		if err != nil {
			return err
		}
		for _, n := range infos {
			fmt.Printf("%-24s %-6s loaded=%t paths=%d\n", n.Name, n.Source, n.Loaded, n.Paths)
		}
		return nil
	case "route":
		if err := need(args, 4, "remote route requires <name> <from> <to>"); err != nil {
			return err
		}
		res, err := c.Route(ctx, args[1], args[2], args[3])
		if err != nil {
			return err
		}
		if !res.Found {
			fmt.Printf("No route from %s to %s\n", res.From, res.To)
			return nil
		}
		fmt.Printf("Route %s -> %s\n  distance %.3f\n", res.From, res.To, res.Distance)
		for _, w := range res.Waypoints {
			fmt.Printf("  via %s -> %s@%.4f\n", w.Node, w.Path, w.DepartT)
		}
		return nil
	case "closest":
		if err := need(args, 3, "remote closest requires <name> <x,y,z> [path]"); err != nil {
			return err
		}
		q, err := network.ParseVec(args[2])
		if err != nil {
			return err
		}
		var pathID string
		if len(args) > 3 {
			pathID = args[3]
		}
		res, err := c.Closest(ctx, args[1], pathID, q)
		if err != nil {
			return err
		}
		if !res.Found {
			fmt.Println("No active path to search")
			return nil
		}
		fmt.Printf("Closest %s@%.4f distance %.3f\n", res.Position.Path, res.Position.T, res.Distance)
		return nil
	}
	return fmt.Errorf("unknown remote command %q: %w", args[0], errUsage)
}
