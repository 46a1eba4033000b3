/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func diff(want, got any, opts ...cmp.Option) string {
	return cmp.Diff(want, got, opts...)
}

func TestSchemaIsValidJSON(t *testing.T) {
	var v map[string]any
	if err := json.Unmarshal(Schema(), &v); err != nil {
		t.Fatalf("embedded schema is not JSON: %v", err)
	}
	if v["title"] == nil {
		t.Fatalf("schema has no title")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		format Format
		src    string
		ok     bool
	}{
		{"minimal yaml", FormatYAML, "name: n\nversion: 1\nnodes: []\npaths: []\n", true},
		{"full yaml", FormatYAML, `
name: n
version: 1
nodes:
  - {id: a, position: [0, 0, 0]}
  - {id: b, position: [1, 0, 0]}
paths:
  - id: p
    kind: approximated_bezier
    looping: true
    active: false
    samples: 4
    nodes:
      - {node: a, up: [0, 0, 1], width: 1.5, out: [0.5, 0, 0]}
      - {node: b, in: [-0.5, 0, 0]}
`, true},
		{"json", FormatJSON, `{"name":"n","version":1,"nodes":[{"id":"a","position":[1,2,3]}],"paths":[]}`, true},
		{"missing name", FormatYAML, "version: 1\nnodes: []\npaths: []\n", false},
		{"unknown kind", FormatYAML, "name: n\nversion: 1\nnodes: []\npaths: [{id: p, kind: spline, nodes: [{node: a}]}]\n", false},
		{"empty path", FormatYAML, "name: n\nversion: 1\nnodes: []\npaths: [{id: p, kind: linear, nodes: []}]\n", false},
		{"short position", FormatJSON, `{"name":"n","version":1,"nodes":[{"id":"a","position":[1,2]}],"paths":[]}`, false},
		{"negative width", FormatYAML, "name: n\nversion: 1\nnodes: []\npaths: [{id: p, kind: linear, nodes: [{node: a, width: -1}]}]\n", false},
		{"extra field", FormatJSON, `{"name":"n","version":1,"nodes":[],"paths":[],"colour":"red"}`, false},
		{"broken json", FormatJSON, `{"name":`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate([]byte(tc.src), tc.format)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrSchema) {
				t.Fatalf("expected ErrSchema, got %v", err)
			}
		})
	}
}
