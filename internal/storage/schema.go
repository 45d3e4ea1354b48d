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
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed drawing.schema.json
var manifestSchemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// ErrInvalidManifest wraps every manifest validation failure.
var ErrInvalidManifest = errors.New("invalid manifest")

// ManifestSchema returns the embedded JSON schema for drawing.json.
func ManifestSchema() []byte { return append([]byte(nil), manifestSchemaJSON...) }

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(manifestSchemaJSON))
	})
	return schema, schemaErr
}

// ValidateManifest checks data against the embedded schema and verifies that
// shape IDs are unique. Shapes with a missing position or size are allowed.
func ValidateManifest(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("load manifest schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
	}
	var ids struct {
		Shapes []struct {
			ID string `json:"id"`
		} `json:"shapes"`
	}
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	seen := make(map[string]struct{}, len(ids.Shapes))
	for _, s := range ids.Shapes {
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate shape id %q", ErrInvalidManifest, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}
