/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SearchQuery describes a shape search.
// Text is matched as prefix terms (all must match) against kind, label and prop values.
// Kinds restricts results to the given symbol kinds; DrawingID to one drawing.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text      string
	Kinds     []string
	DrawingID string
	Limit     int
	Offset    int
}

// ShapeHit is a single indexed shape matching a query. X/Y/W/H are only
// meaningful when HasBounds is set.
type ShapeHit struct {
	DrawingID string
	ShapeID   string
	Kind      string
	Label     string
	HasBounds bool
	X, Y      float64
	W, H      float64
}

// ParseQuery splits a raw query string into free text and "kind:<k>" filters.
func ParseQuery(raw string) SearchQuery {
	var q SearchQuery
	var text []string
	for _, tok := range strings.Fields(raw) {
		if k, ok := strings.CutPrefix(strings.ToLower(tok), "kind:"); ok {
			if k != "" {
				q.Kinds = append(q.Kinds, k)
			}
			continue
		}
		text = append(text, tok)
	}
	q.Text = strings.Join(text, " ")
	return q
}

// ftsExpr turns free text into an FTS5 expression of quoted prefix terms.
func ftsExpr(text string) string {
	var terms []string
	for _, tok := range strings.Fields(text) {
		tok = strings.ReplaceAll(tok, `"`, "")
		if tok == "" {
			continue
		}
		terms = append(terms, `"`+tok+`"*`)
	}
	return strings.Join(terms, " ")
}

// SearchShapes runs a raw query (see ParseQuery) against an open index.
func SearchShapes(ctx context.Context, db *sql.DB, query string, limit int) ([]ShapeHit, error) {
	q := ParseQuery(query)
	q.Limit = limit
	return searchDB(ctx, db, q)
}

// Search opens the project's index and runs q.
func Search(ctx context.Context, projectRoot string, q SearchQuery) ([]ShapeHit, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]ShapeHit, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	var args []any
	var sb strings.Builder
	sb.WriteString("SELECT s.drawing_id, s.shape_id, s.kind, s.label, s.x, s.y, s.w, s.h\n")
	if expr := ftsExpr(q.Text); expr != "" {
		sb.WriteString("FROM fts_shapes JOIN shapes s ON fts_shapes.rowid = s.row_id\n")
		sb.WriteString("WHERE fts_shapes MATCH ?\n")
		args = append(args, expr)
	} else {
		sb.WriteString("FROM shapes s\nWHERE 1=1\n")
	}
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND lower(s.kind) IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range q.Kinds {
			args = append(args, strings.ToLower(strings.TrimSpace(k)))
		}
	}
	if id := strings.TrimSpace(q.DrawingID); id != "" {
		sb.WriteString(" AND s.drawing_id = ?\n")
		args = append(args, id)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	sb.WriteString("ORDER BY s.drawing_id, s.label, s.shape_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []ShapeHit
	for rows.Next() {
		var h ShapeHit
		var x, y, w, ht sql.NullFloat64
		if err := rows.Scan(&h.DrawingID, &h.ShapeID, &h.Kind, &h.Label, &x, &y, &w, &ht); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if x.Valid && y.Valid && w.Valid && ht.Valid {
			h.HasBounds = true
			h.X, h.Y, h.W, h.H = x.Float64, y.Float64, w.Float64, ht.Float64
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := strings.Builder{}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	return b.String()
}
