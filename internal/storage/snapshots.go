/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"godiagram/internal/undo"
)

// tsLayout is fixed width so that text ordering matches time ordering.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(drawing_id, label, ts, blob) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT label, ts, blob FROM snapshots WHERE drawing_id = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT label, ts, blob FROM snapshots WHERE drawing_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE drawing_id = ? AND id NOT IN (
	SELECT id FROM snapshots WHERE drawing_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// SaveSnapshot persists a history checkpoint of a drawing. A zero TS is
// stamped with the current time.
func SaveSnapshot(ctx context.Context, ph *ProjectHandle, s undo.Snapshot) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	if strings.TrimSpace(s.DrawingID) == "" {
		return errors.New("snapshot drawing id is required")
	}
	if s.TS.IsZero() {
		s.TS = time.Now()
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	blob := s.Blob
	if blob == nil {
		blob = []byte{}
	}
	_, err = db.ExecContext(ctx, insertSnapshotSQL, s.DrawingID, s.Label, s.TS.UTC().Format(tsLayout), blob)
	return err
}

// LatestSnapshot returns the newest checkpoint of a drawing; ok is false when there is none.
func LatestSnapshot(ctx context.Context, ph *ProjectHandle, drawingID string) (undo.Snapshot, bool, error) {
	if ph == nil {
		return undo.Snapshot{}, false, errors.New("nil ProjectHandle")
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return undo.Snapshot{}, false, err
	}
	defer func() { _ = db.Close() }()
	var label, tsStr string
	var blob []byte
	err = db.QueryRowContext(ctx, selectLatestSnapshotSQL, drawingID).Scan(&label, &tsStr, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return undo.Snapshot{}, false, nil
	}
	if err != nil {
		return undo.Snapshot{}, false, err
	}
	// a bad timestamp still leaves a usable blob
	ts, _ := time.Parse(tsLayout, tsStr)
	return undo.Snapshot{DrawingID: drawingID, Label: label, Blob: blob, TS: ts}, true, nil
}

// ListSnapshots returns up to limit most recent checkpoints, newest first.
func ListSnapshots(ctx context.Context, ph *ProjectHandle, drawingID string, limit int) ([]undo.Snapshot, error) {
	if ph == nil {
		return nil, errors.New("nil ProjectHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listSnapshotsSQL, drawingID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []undo.Snapshot
	for rows.Next() {
		var label, tsStr string
		var blob []byte
		if err := rows.Scan(&label, &tsStr, &blob); err != nil {
			return nil, err
		}
		ts, _ := time.Parse(tsLayout, tsStr)
		out = append(out, undo.Snapshot{DrawingID: drawingID, Label: label, Blob: blob, TS: ts})
	}
	return out, rows.Err()
}

// PruneSnapshots keeps at most keepLast checkpoints for the drawing and deletes older ones.
func PruneSnapshots(ctx context.Context, ph *ProjectHandle, drawingID string, keepLast int) (int64, error) {
	if ph == nil {
		return 0, errors.New("nil ProjectHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldSnapshotsSQL, drawingID, drawingID, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
