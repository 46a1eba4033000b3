/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pathnet/internal/curve"
	"pathnet/internal/domain"
	applog "pathnet/internal/log"
	"pathnet/internal/metrics"
	"pathnet/internal/network"
	"pathnet/internal/version"
)

// Source provides networks that are not loaded yet. *Store implements it.
type Source interface {
	Get(ctx context.Context, name string) (domain.Network, Meta, error)
	List(ctx context.Context) ([]Meta, error)
	Ping(ctx context.Context) error
}

type routeLogger interface {
	LogRoute(ctx context.Context, network, from, to string, found bool, distance float64, took time.Duration) error
}

// Options configures the query service.
type Options struct {
	Addr string
	// AuthSecret enables bearer-token auth on /api when non-empty.
	AuthSecret string
	Build      network.Options
	Source     Source
	Logger     *slog.Logger
}

// loaded is a built network. Curves cache derived geometry on read, so
// queries against one graph are serialized.
type loaded struct {
	mu     sync.Mutex
	g      *network.Graph
	source string
	meta   *Meta
}

// Server answers route and closest-point queries over HTTP.
type Server struct {
	opts Options
	log  *slog.Logger

	mu   sync.RWMutex
	nets map[string]*loaded
}

// NewServer creates a server without networks.
func NewServer(opts Options) *Server {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("backend")
	}
	if opts.Build.Logger == nil {
		opts.Build.Logger = l
	}
	return &Server{opts: opts, log: l, nets: map[string]*loaded{}}
}

// Add builds doc and serves it under its name, replacing any previous
// network of that name.
func (s *Server) Add(doc domain.Network, source string) error {
	g, err := network.Build(doc, s.opts.Build)
	if err != nil {
		return err
	}
	s.put(&loaded{g: g, source: source})
	return nil
}

func (s *Server) put(n *loaded) {
	s.mu.Lock()
	s.nets[n.g.Name] = n
	metrics.NetworksLoaded.Set(float64(len(s.nets)))
	s.mu.Unlock()
	s.log.Info("network loaded", slog.String("network", n.g.Name), slog.String("source", n.source))
}

// lookup returns a loaded network, pulling it from the source on first use.
func (s *Server) lookup(ctx context.Context, name string) (*loaded, error) {
	s.mu.RLock()
	n, ok := s.nets[name]
	s.mu.RUnlock()
	if ok {
		return n, nil
	}
	if s.opts.Source == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	doc, meta, err := s.opts.Source.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	g, err := network.Build(doc, s.opts.Build)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	n = &loaded{g: g, source: "store", meta: &meta}
	s.put(n)
	return n, nil
}

// Handler returns the HTTP routes of the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", instrument("healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	mux.Handle("GET /readyz", instrument("readyz", s.handleReady))
	mux.Handle("GET /version", instrument("version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pathnet " + version.String()))
	}))
	mux.Handle("GET /metrics", promhttp.Handler())

	api := func(name string, h http.HandlerFunc) http.Handler {
		if s.opts.AuthSecret != "" {
			h = withAuth(s.opts.AuthSecret, h)
		}
		return instrument(name, h)
	}
	if s.opts.AuthSecret != "" {
		mux.Handle("POST /api/auth/token", instrument("token", s.handleToken))
	}
	mux.Handle("GET /api/networks", api("networks", s.handleList))
	mux.Handle("GET /api/networks/{name}", api("network", s.handleNetwork))
	mux.Handle("GET /api/networks/{name}/route", api("route", s.handleRoute))
	mux.Handle("GET /api/networks/{name}/closest", api("closest", s.handleClosest))
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.opts.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("query service listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Source != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Source.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	list := make([]NetworkInfo, 0, len(s.nets))
	have := map[string]bool{}
	for name, n := range s.nets {
		n.mu.Lock()
		info := describe(n.g, n.source)
		n.mu.Unlock()
		if n.meta != nil {
			info.Revision = n.meta.Revision
			info.UpdatedAt = &n.meta.UpdatedAt
		}
		list = append(list, info)
		have[name] = true
	}
	s.mu.RUnlock()
	if s.opts.Source != nil {
		metas, err := s.opts.Source.List(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		for _, m := range metas {
			if have[m.Name] {
				continue
			}
			m := m
			list = append(list, NetworkInfo{Name: m.Name, Description: m.Description, Source: "store", Revision: m.Revision, UpdatedAt: &m.UpdatedAt})
		}
	}
	sortInfos(list)
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	n, ok := s.network(w, r)
	if !ok {
		return
	}
	n.mu.Lock()
	info := describe(n.g, n.source)
	n.mu.Unlock()
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	n, ok := s.network(w, r)
	if !ok {
		return
	}
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, errors.New("from and to are required"))
		return
	}
	ctx := applog.ContextWithNetwork(r.Context(), n.g.Name)
	started := time.Now()
	n.mu.Lock()
	rt, err := n.g.Route(from, to)
	resp := RouteResponse{Network: n.g.Name, From: from, To: to}
	if err == nil {
		EncodeRoute(&resp, rt)
	}
	n.mu.Unlock()
	took := time.Since(started)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, curve.ErrIntegrity) {
			status = http.StatusInternalServerError
		}
		s.log.WarnContext(ctx, "route failed", slog.String("from", from), slog.String("to", to), slog.Any("err", err))
		writeError(w, status, err)
		return
	}
	s.log.DebugContext(ctx, "route answered", slog.String("from", from), slog.String("to", to), slog.Bool("found", resp.Found), slog.Float64("distance", resp.Distance))
	if rl, ok := s.opts.Source.(routeLogger); ok {
		if err := rl.LogRoute(ctx, n.g.Name, from, to, resp.Found, resp.Distance, took); err != nil {
			s.log.WarnContext(ctx, "route log failed", slog.Any("err", err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClosest(w http.ResponseWriter, r *http.Request) {
	n, ok := s.network(w, r)
	if !ok {
		return
	}
	q, err := network.ParseVec(r.URL.Query().Get("point"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n.mu.Lock()
	pos, d2, err := n.g.Closest(r.URL.Query().Get("path"), q)
	n.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp := ClosestResponse{Network: n.g.Name, Found: pos.Valid(), Position: EncodePosition(pos)}
	if resp.Found {
		resp.Distance = math.Sqrt(d2)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) network(w http.ResponseWriter, r *http.Request) (*loaded, bool) {
	n, err := s.lookup(r.Context(), r.PathValue("name"))
	switch {
	case err == nil:
		return n, true
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		s.log.Error("load network failed", slog.String("network", r.PathValue("name")), slog.Any("err", err))
		writeError(w, http.StatusBadGateway, err)
	}
	return nil, false
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument counts requests per handler and status code.
func instrument(name string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		metrics.HTTPRequests.WithLabelValues(name, strconv.Itoa(rec.code)).Inc()
	})
}
