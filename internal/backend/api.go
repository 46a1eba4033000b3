/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"sort"
	"time"

	"pathnet/internal/curve"
	"pathnet/internal/network"
	"pathnet/internal/route"
)

// PositionJSON is the wire form of a curve position.
type PositionJSON struct {
	Path    string     `json:"path"`
	T       float64    `json:"t"`
	Node    string     `json:"node,omitempty"`
	Point   [3]float64 `json:"point"`
	Forward [3]float64 `json:"forward"`
	Up      [3]float64 `json:"up"`
	Width   float64    `json:"width"`
}

// WaypointJSON is one curve switch of a route.
type WaypointJSON struct {
	Node    string  `json:"node"`
	Path    string  `json:"path"`
	ArriveT float64 `json:"arrive_t"`
	DepartT float64 `json:"depart_t"`
}

// RouteResponse answers GET /api/networks/{name}/route.
type RouteResponse struct {
	Network   string         `json:"network"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Found     bool           `json:"found"`
	Distance  float64        `json:"distance"`
	Start     *PositionJSON  `json:"start,omitempty"`
	End       *PositionJSON  `json:"end,omitempty"`
	Waypoints []WaypointJSON `json:"waypoints"`
}

// ClosestResponse answers GET /api/networks/{name}/closest.
type ClosestResponse struct {
	Network  string        `json:"network"`
	Found    bool          `json:"found"`
	Distance float64       `json:"distance"`
	Position *PositionJSON `json:"position,omitempty"`
}

// NetworkInfo summarizes a network for listings.
type NetworkInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Source      string         `json:"source"`
	Loaded      bool           `json:"loaded"`
	Nodes       int            `json:"nodes,omitempty"`
	Paths       int            `json:"paths,omitempty"`
	Active      int            `json:"active,omitempty"`
	Components  int            `json:"components,omitempty"`
	Length      float64        `json:"length,omitempty"`
	Kinds       map[string]int `json:"kinds,omitempty"`
	Revision    int64          `json:"revision,omitempty"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
}

// EncodePosition converts a valid position; invalid ones become nil.
func EncodePosition(p curve.Position) *PositionJSON {
	if !p.Valid() {
		return nil
	}
	out := &PositionJSON{
		Path:    p.Path.ID(),
		T:       p.T,
		Point:   [3]float64{p.Point.X, p.Point.Y, p.Point.Z},
		Forward: [3]float64{p.Forward.X, p.Forward.Y, p.Forward.Z},
		Up:      [3]float64{p.Up.X, p.Up.Y, p.Up.Z},
		Width:   p.Width,
	}
	if p.Node != nil {
		out.Node = p.Node.ID
	}
	return out
}

// EncodeRoute fills the route part of a response; nil means not found.
func EncodeRoute(resp *RouteResponse, r *route.Route) {
	resp.Waypoints = []WaypointJSON{}
	if r == nil {
		return
	}
	resp.Found = true
	resp.Distance = r.Distance
	resp.Start = EncodePosition(r.Start)
	resp.End = EncodePosition(r.End)
	for _, w := range r.Waypoints {
		resp.Waypoints = append(resp.Waypoints, WaypointJSON{Node: w.Node.ID, Path: w.Path.ID(), ArriveT: w.ArriveT, DepartT: w.DepartT})
	}
}

func describe(g *network.Graph, source string) NetworkInfo {
	st := g.Stats()
	return NetworkInfo{
		Name:        g.Name,
		Description: g.Doc().Description,
		Source:      source,
		Loaded:      true,
		Nodes:       st.Nodes,
		Paths:       st.Paths,
		Active:      st.Active,
		Components:  st.Components,
		Length:      st.Length,
		Kinds:       st.Kinds,
	}
}

func sortInfos(list []NetworkInfo) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}
