/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type sink struct {
	mu      sync.Mutex
	events  [][]byte
	crashes [][]byte
}

func (s *sink) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	record := func(dst *[][]byte) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			s.mu.Lock()
			*dst = append(*dst, b)
			s.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}
	}
	mux.HandleFunc("/events", record(&s.events))
	mux.HandleFunc("/crash", record(&s.crashes))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (s *sink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events), len(s.crashes)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTrackAndUploadCrash(t *testing.T) {
	var s sink
	srv := s.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected enabled client")
	}

	c.Track("route", map[string]any{"found": true})
	c.Flush(context.Background())
	waitFor(t, func() bool { n, _ := s.counts(); return n > 0 })

	s.mu.Lock()
	raw := s.events[0]
	s.mu.Unlock()
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if ev.Name != "route" || ev.TS == "" || ev.Props["found"] != true {
		t.Fatalf("unexpected event %+v", ev)
	}

	c.UploadCrash([]byte("STACK"))
	waitFor(t, func() bool { _, n := s.counts(); return n > 0 })
}

func TestDisabledClientSendsNothing(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL, CrashURL: srv.URL})
	defer c.Close()
	c.Track("ignored", nil)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL})
	defer c2.Close()
	c2.Track("", nil)
	c2.Flush(nil)

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestSendFailuresAreSwallowed(t *testing.T) {
	c := New(Config{OptIn: true, EventsURL: "http://127.0.0.1:1/events", CrashURL: "http://127.0.0.1:1/crash", Timeout: 50 * time.Millisecond, DebugLogging: true})
	defer c.Close()
	c.Track("err", nil)
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
	time.Sleep(100 * time.Millisecond)
}

func TestFromEnvAndDefaultClient(t *testing.T) {
	var s sink
	srv := s.server(t)
	t.Setenv(EnvOptIn, "yes")
	t.Setenv(EnvEventsURL, srv.URL+"/events")
	t.Setenv(EnvCrashURL, "")
	t.Setenv(EnvTimeoutMs, "250")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.Timeout != 250*time.Millisecond || cfg.CrashURL != "" {
		t.Fatalf("FromEnv: %+v", cfg)
	}
	SetDefault(cfg)
	t.Cleanup(func() { SetDefault(Config{}) })
	if !Enabled() {
		t.Fatalf("default client should be enabled")
	}
	Command("route", 3*time.Millisecond, errors.New("x"))
	Flush(context.Background())
	waitFor(t, func() bool { n, _ := s.counts(); return n > 0 })

	s.mu.Lock()
	raw := s.events[0]
	s.mu.Unlock()
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Props["command"] != "route" || ev.Props["ok"] != false {
		t.Fatalf("unexpected command event %+v", ev)
	}
}
