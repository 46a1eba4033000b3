/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package metrics holds the Prometheus collectors shared by the route
// finder, the storage index and the HTTP service. Collectors register with
// the default registry, so promhttp.Handler exposes them without wiring.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Route search outcomes.
const (
	ResultFound       = "found"
	ResultUnreachable = "unreachable"
	ResultInvalid     = "invalid"
	ResultError       = "error"
)

var (
	// RouteSearches counts FindRoute calls by outcome.
	RouteSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathnet_route_searches_total",
		Help: "Route searches by result",
	}, []string{"result"})

	// RouteDuration tracks route search latency.
	RouteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathnet_route_search_duration_seconds",
		Help:    "Route search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~80ms
	})

	// RouteExpanded tracks how many curve visits a search made.
	RouteExpanded = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathnet_route_search_expanded",
		Help:    "Curves expanded per route search",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 500, 1000},
	})

	// RoutePruned counts branches cut by the distance bound.
	RoutePruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathnet_route_search_pruned_total",
		Help: "Branches pruned by the best-distance bound",
	})

	// ClosestQueries counts network-wide closest-point queries.
	ClosestQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathnet_closest_queries_total",
		Help: "Network-wide closest point queries by target",
	}, []string{"target"}) // "point" or "ray"

	// RouteCache counts sqlite route cache lookups.
	RouteCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathnet_route_cache_lookups_total",
		Help: "Route cache lookups by outcome",
	}, []string{"outcome"}) // "hit" or "miss"

	// HTTPRequests counts API requests by handler and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathnet_http_requests_total",
		Help: "HTTP requests by handler and status",
	}, []string{"handler", "code"})

	// NetworksLoaded reports how many networks the service holds.
	NetworksLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pathnet_networks_loaded",
		Help: "Networks currently loaded by the service",
	})
)

// ObserveRoute records one finished route search.
func ObserveRoute(result string, took time.Duration, expanded, pruned int) {
	RouteSearches.WithLabelValues(result).Inc()
	RouteDuration.Observe(took.Seconds())
	RouteExpanded.Observe(float64(expanded))
	RoutePruned.Add(float64(pruned))
}
