/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command route-sandbox draws a network in the terminal and drives a
// marker along a route between two references.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"

	"pathnet/internal/config"
	"pathnet/internal/crash"
	"pathnet/internal/curve"
	"pathnet/internal/export"
	applog "pathnet/internal/log"
	"pathnet/internal/network"
	"pathnet/internal/route"
	"pathnet/internal/storage"
)

const defaultSpeed = 4.0 // world units per second

// tour tracks the marker's progress along a route.
type tour struct {
	r     *route.Route
	stops []float64 // distance from the start at each waypoint
	dist  float64
	next  int
	speed float64
}

func newTour(r *route.Route, speed float64) *tour {
	t := &tour{r: r, speed: speed}
	legs := r.Legs()
	acc := 0.0
	for i := 0; i < len(legs)-1; i++ {
		acc += legs[i].Length()
		t.stops = append(t.stops, acc)
	}
	return t
}

func (t *tour) done() bool { return t.dist >= t.r.Distance }

func (t *tour) restart() { t.dist, t.next = 0, 0 }

// advance moves the marker by dt and returns its position and the
// indices of waypoints passed on the way.
func (t *tour) advance(dt time.Duration) (curve.Position, []int) {
	t.dist = min(t.r.Distance, t.dist+t.speed*dt.Seconds())
	var passed []int
	for t.next < len(t.stops) && t.stops[t.next] <= t.dist {
		passed = append(passed, t.next)
		t.next++
	}
	return t.r.PointAtDistance(t.dist), passed
}

func usage() {
	fmt.Println("Usage: route-sandbox <file> <from> <to> [speed]")
	fmt.Println("  refs are node:<id> or <path>@<t>; keys: space pause, r restart, +/- speed, q quit")
}

func main() {
	cfg, _, cfgErr := config.Load()
	applog.Init(applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, File: cfg.Logging.File})
	l := applog.WithComponent("sandbox")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}
	subj := &crash.Subject{}
	defer crash.Recover(subj)

	if len(os.Args) < 4 {
		usage()
		os.Exit(2)
	}
	speed := defaultSpeed
	if len(os.Args) > 4 {
		v, err := strconv.ParseFloat(os.Args[4], 64)
		if err != nil || v <= 0 {
			usage()
			os.Exit(2)
		}
		speed = v
	}

	doc, err := storage.Load(os.Args[1])
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	subj.Path, subj.Doc = os.Args[1], &doc
	g, err := network.Build(doc, network.Options{
		BezierSamples:           cfg.Sampling.BezierSamples,
		ApproxSamplesPerSection: cfg.Sampling.ApproxSamplesPerSection,
		Strict:                  cfg.Route.StrictIntegrity,
	})
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	r, err := g.Route(os.Args[2], os.Args[3])
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if r == nil {
		fmt.Printf("No route from %s to %s\n", os.Args[2], os.Args[3])
		os.Exit(1)
	}

	snd, audioErr := newAudio()
	if audioErr != nil {
		l.Warn("audio disabled", slog.Any("err", audioErr))
	}
	defer snd.close()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer screen.Fini()

	run(screen, export.Build(g, r, export.BuildOptions{}), newTour(r, speed), snd)
}

func run(screen tcell.Screen, p export.Plot, t *tour, snd *audio) {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go screen.ChannelEvents(events, quit)
	defer close(quit)

	const frame = 33 * time.Millisecond
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	w, h := screen.Size()
	gr := newGrid(p, w, h)
	paused := false
	pos := t.r.Start
	last := time.Now()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q':
					return
				case ev.Rune() == ' ':
					paused = !paused
				case ev.Rune() == 'r':
					t.restart()
					pos = t.r.Start
				case ev.Rune() == '+':
					t.speed *= 1.5
				case ev.Rune() == '-':
					t.speed /= 1.5
				}
			case *tcell.EventResize:
				w, h = screen.Size()
				gr = newGrid(p, w, h)
				screen.Sync()
			}
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if !paused && !t.done() {
				var passed []int
				pos, passed = t.advance(dt)
				for _, i := range passed {
					snd.waypoint(i)
				}
			}
			screen.Clear()
			drawPlot(screen, gr, p)
			if x, y := gr.cell(export.Point{X: pos.Point.X, Y: pos.Point.Z}); gr.inside(x, y) {
				screen.SetContent(x, y, '@', nil, styleMarker)
			}
			status := fmt.Sprintf(" %s  %.2f / %.2f  on %s@%.3f  speed %.1f", p.Title, t.dist, t.r.Distance, pos.Path.ID(), pos.T, t.speed)
			if paused {
				status += "  [paused]"
			}
			drawText(screen, 0, h-1, status, styleStatus)
			screen.Show()
		}
	}
}
