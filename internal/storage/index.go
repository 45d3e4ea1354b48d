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
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"godiagram/internal/domain"
	applog "godiagram/internal/log"
	"godiagram/internal/metrics"
	"godiagram/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-project ephemeral/index data under the project root.
	IndexDirName  = ".gdg"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the project's embedded index database file.
func IndexPath(projectRoot string) string {
	return filepath.Join(projectRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-project SQLite index exists at .gdg/index.sqlite,
// opens the database, enables WAL mode, and ensures the meta/version tables exist.
// The returned *sql.DB is ready for use. Callers may close it when no longer needed.
func InitOrOpenIndex(projectRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", projectRoot),
	)
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	if err := os.MkdirAll(filepath.Join(projectRoot, IndexDirName), 0o755); err != nil {
		l.Error("create .gdg dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .gdg dir: %w", err)
	}

	path := IndexPath(projectRoot)
	// SQLite URIs want forward slashes.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep the stored schema; runMigrations moves it forward
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// written by a newer build; never downgrade
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// kind lookups and per-drawing snapshot listing
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_shapes_kind ON shapes(kind);`,
				`CREATE INDEX IF NOT EXISTS idx_snapshots_drawing_ts ON snapshots(drawing_id, ts);`,
			}
			if err := migrate(ctx, db, next, stmts); err != nil {
				return err
			}
			// Best-effort FTS optimize (outside the tx)
			_, _ = db.ExecContext(ctx, `INSERT INTO fts_shapes(fts_shapes) VALUES('optimize')`)
		}
		cur = next
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB, next int, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", next, err)
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d stmt failed: %w", next, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %d update version: %w", next, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d commit: %w", next, err)
	}
	return nil
}

// ensureIndexSchema creates core index tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// One row per shape; x/y/w/h are NULL for malformed shapes.
		`CREATE TABLE IF NOT EXISTS shapes (
			row_id     INTEGER PRIMARY KEY,
			drawing_id TEXT    NOT NULL,
			shape_id   TEXT    NOT NULL,
			kind       TEXT    NOT NULL DEFAULT '',
			label      TEXT    NOT NULL DEFAULT '',
			x          REAL,
			y          REAL,
			w          REAL,
			h          REAL,
			text       TEXT    NOT NULL DEFAULT '',
			UNIQUE(drawing_id, shape_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_shapes_drawing ON shapes(drawing_id);`,
		`CREATE INDEX IF NOT EXISTS idx_shapes_kind ON shapes(kind);`,

		// Contentless FTS5 index fed from shapes via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_shapes USING fts5(
			text,
			content='',
			tokenize = 'unicode61'
		);`,

		// Persisted history checkpoints (see snapshots.go).
		`CREATE TABLE IF NOT EXISTS snapshots (
			id         INTEGER PRIMARY KEY,
			drawing_id TEXT    NOT NULL,
			label      TEXT    NOT NULL DEFAULT '',
			ts         TEXT    NOT NULL,
			blob       BLOB    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_drawing_ts ON snapshots(drawing_id, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS shapes_ai AFTER INSERT ON shapes BEGIN
			INSERT INTO fts_shapes(rowid, text) VALUES (new.row_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS shapes_ad AFTER DELETE ON shapes BEGIN
			INSERT INTO fts_shapes(fts_shapes, rowid, text) VALUES ('delete', old.row_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS shapes_au AFTER UPDATE OF text ON shapes BEGIN
			INSERT INTO fts_shapes(fts_shapes, rowid, text) VALUES ('delete', old.row_id, old.text);
			INSERT INTO fts_shapes(rowid, text) VALUES (new.row_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// searchText is the token stream indexed for a shape: kind, label and prop values.
func searchText(s domain.Shape) string {
	parts := make([]string, 0, 2+len(s.Props))
	if k := strings.TrimSpace(s.Kind); k != "" {
		parts = append(parts, k)
	}
	if lb := strings.TrimSpace(s.Label); lb != "" {
		parts = append(parts, lb)
	}
	keys := make([]string, 0, len(s.Props))
	for k := range s.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := strings.TrimSpace(s.Props[k]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// IndexDrawing replaces every indexed row of the drawing with its current
// shapes and returns the number of rows written.
func IndexDrawing(ctx context.Context, db *sql.DB, d domain.Drawing) (int, error) {
	if db == nil {
		return 0, errors.New("nil db")
	}
	if strings.TrimSpace(d.ID) == "" {
		return 0, errors.New("drawing id is required")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shapes WHERE drawing_id = ?;`, d.ID); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("clear shapes: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO shapes(drawing_id, shape_id, kind, label, x, y, w, h, text) VALUES(?,?,?,?,?,?,?,?,?);`)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	n := 0
	for _, s := range d.Shapes {
		var x, y, w, h sql.NullFloat64
		if r, ok := s.Bounds(); ok {
			x = sql.NullFloat64{Float64: r.X, Valid: true}
			y = sql.NullFloat64{Float64: r.Y, Valid: true}
			w = sql.NullFloat64{Float64: r.W, Valid: true}
			h = sql.NullFloat64{Float64: r.H, Valid: true}
		}
		if _, err := ins.ExecContext(ctx, d.ID, s.ID, s.Kind, s.Label, x, y, w, h, searchText(s)); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert shape %s: %w", s.ID, err)
		}
		n++
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
		"indexed_at:"+d.ID, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("update meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// BuildIndexIfEmpty ensures the DB exists and indexes the drawing when it has no rows yet.
func BuildIndexIfEmpty(ctx context.Context, projectRoot string, d domain.Drawing) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	var cnt int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shapes WHERE drawing_id = ?;`, d.ID).Scan(&cnt); err != nil {
		return fmt.Errorf("check shapes count: %w", err)
	}
	if cnt > 0 {
		return nil
	}
	_, err = IndexDrawing(ctx, db, d)
	return err
}

// UpdateIndex re-indexes the drawing in the project's index.
func UpdateIndex(ctx context.Context, projectRoot string, d domain.Drawing) (n int, err error) {
	defer func(start time.Time) { metrics.DefaultRegistry().RecordStorage("index", start, err) }(time.Now())
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return IndexDrawing(ctx, db, d)
}

// RebuildIndex drops and recreates the shape tables and re-indexes the drawing.
// meta/version and persisted snapshots are preserved.
func RebuildIndex(ctx context.Context, projectRoot string, d domain.Drawing) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TRIGGER IF EXISTS shapes_ai;",
		"DROP TRIGGER IF EXISTS shapes_ad;",
		"DROP TRIGGER IF EXISTS shapes_au;",
		"DROP TABLE IF EXISTS shapes;",
		"DROP TABLE IF EXISTS fts_shapes;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	_, err = IndexDrawing(ctx, db, d)
	return err
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds the index if needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, projectRoot string, d domain.Drawing) (bool, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_check")
	path := IndexPath(projectRoot)
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		l.Warn("index unusable, rebuilding", slog.Any("err", err))
		backupIndexFile(path)
		removeIndexFiles(path)
		if rbErr := RebuildIndex(ctx, projectRoot, d); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM shapes LIMIT 1;`); err != nil {
			needs = true
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	l.Warn("index failed integrity check, rebuilding")
	backupIndexFile(path)
	removeIndexFiles(path)
	if err := RebuildIndex(ctx, projectRoot, d); err != nil {
		return false, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup in .gdg/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// removeIndexFiles deletes the database and its WAL side files.
func removeIndexFiles(indexPath string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(indexPath + suffix)
	}
}
