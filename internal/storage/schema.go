/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/network.schema.json
var networkSchema []byte

// ErrSchema marks a document that does not conform to the network schema.
var ErrSchema = errors.New("document does not match schema")

var schemaLoader = gojsonschema.NewBytesLoader(networkSchema)

// Schema returns the embedded JSON schema for network documents.
func Schema() []byte { return append([]byte(nil), networkSchema...) }

// Validate checks raw document bytes against the network schema. YAML input
// is decoded to generic values first so both formats share one schema.
func Validate(data []byte, format Format) error {
	var doc gojsonschema.JSONLoader
	switch format {
	case FormatJSON:
		if !json.Valid(data) {
			return fmt.Errorf("%w: invalid JSON", ErrSchema)
		}
		doc = gojsonschema.NewBytesLoader(data)
	default:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("%w: %v", ErrSchema, err)
		}
		doc = gojsonschema.NewGoLoader(v)
	}
	result, err := gojsonschema.Validate(schemaLoader, doc)
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}
