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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pathnet/internal/vector"
)

// Client talks to a running query service.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a client. A trailing slash on baseURL is ignored.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("server %s %s: %s: %s", method, u.Path, resp.Status, e.Error)
		}
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// ListNetworks returns the networks the service knows about.
func (c *Client) ListNetworks(ctx context.Context) ([]NetworkInfo, error) {
	var list []NetworkInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/networks", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Network returns statistics of one network.
func (c *Client) Network(ctx context.Context, name string) (*NetworkInfo, error) {
	var info NetworkInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/networks/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Route asks for the shortest route between two references.
func (c *Client) Route(ctx context.Context, name, from, to string) (*RouteResponse, error) {
	var resp RouteResponse
	q := url.Values{"from": {from}, "to": {to}}
	if err := c.doJSON(ctx, http.MethodGet, "/api/networks/"+url.PathEscape(name)+"/route", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Closest asks for the position nearest to p, optionally scoped to the
// curves reachable from path.
func (c *Client) Closest(ctx context.Context, name, path string, p vector.Vec3) (*ClosestResponse, error) {
	var resp ClosestResponse
	q := url.Values{"point": {fmt.Sprintf("%g,%g,%g", p.X, p.Y, p.Z)}}
	if path != "" {
		q.Set("path", path)
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/networks/"+url.PathEscape(name)+"/closest", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
