/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"os"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

func TestManifestConformsToSchema(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, sampleDrawing("Schema Test"))
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}

	data, err := os.ReadFile(ph.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(ManifestSchema())
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("manifest does not conform to schema")
	}
}

func TestValidateManifestRejects(t *testing.T) {
	cases := map[string]string{
		"not json":       `{ nope`,
		"missing id":     `{"name":"n","grid":{"size":20},"shapes":[]}`,
		"shape no id":    `{"id":"d","name":"n","grid":{"size":20},"shapes":[{"kind":"pump"}]}`,
		"bad position":   `{"id":"d","name":"n","grid":{"size":20},"shapes":[{"id":"a","position":{"x":"1","y":2}}]}`,
		"negative grid":  `{"id":"d","name":"n","grid":{"size":-1},"shapes":[]}`,
		"bad discipline": `{"id":"d","name":"n","metadata":{"discipline":"culinary"},"grid":{"size":20},"shapes":[]}`,
		"duplicate ids":  `{"id":"d","name":"n","grid":{"size":20},"shapes":[{"id":"a"},{"id":"a"}]}`,
	}
	for name, doc := range cases {
		err := ValidateManifest([]byte(doc))
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		if !errors.Is(err, ErrInvalidManifest) {
			t.Fatalf("%s: expected ErrInvalidManifest, got %v", name, err)
		}
	}
}

func TestValidateManifestAcceptsMinimal(t *testing.T) {
	if err := ValidateManifest([]byte(`{"id":"d","name":"","grid":{"size":0},"shapes":[]}`)); err != nil {
		t.Fatalf("minimal manifest rejected: %v", err)
	}
}
