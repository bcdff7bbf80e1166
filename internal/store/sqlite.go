/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	applog "socialstudio/internal/log"
	"socialstudio/internal/version"
)

// sqliteSchema is bumped together with a new step in migrateSQLite.
const sqliteSchema = 2

// tsLayout has a fixed width so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite keeps documents in a local database file. Subscriptions see the
// writes made through the same *SQLite value.
type SQLite struct {
	db   *sql.DB
	path string
	hub  *hub
	log  *slog.Logger
}

// OpenSQLite opens or creates the database at path, enables WAL and brings
// the schema up to date.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "sqlite_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		l.Error("migrate failed", slog.Any("err", err))
		return nil, err
	}
	s := &SQLite{db: db, path: path, log: applog.WithComponent("store").With(slog.String("driver", DriverSQLite))}
	s.hub = newHub(s.List, s.log)
	l.Info("store ready")
	return s, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS version (
		id         INTEGER PRIMARY KEY CHECK(id=1),
		schema     INTEGER NOT NULL,
		app        TEXT,
		updated_at TEXT NOT NULL
	);`); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, updated_at) VALUES(1, 0, ?, ?)`, version.String(), now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	}
	steps := map[int][]string{
		1: {`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		);`},
		2: {`CREATE INDEX IF NOT EXISTS idx_documents_recent ON documents(collection, updated_at DESC);`},
	}
	for cur < sqliteSchema {
		next := cur + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range steps[next] {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, app=?, updated_at=? WHERE id=1`, next, version.String(), now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

func (s *SQLite) Put(ctx context.Context, collection, id string, data []byte) error {
	if err := checkDoc(collection, id, data); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		collection, id, string(data), time.Now().UTC().Format(tsLayout))
	if err != nil {
		return s.wrap(err)
	}
	s.hub.notify(collection)
	return nil
}

func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection=? AND id=?`, collection, id)
	if err != nil {
		return s.wrap(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.hub.notify(collection)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data, updated_at FROM documents WHERE collection=? ORDER BY updated_at DESC, id`, collection)
	if err != nil {
		return nil, s.wrap(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.log.Warn("rows close", slog.Any("err", err))
		}
	}()
	out := []Document{}
	for rows.Next() {
		var (
			d       Document
			data, t string
		)
		if err := rows.Scan(&d.ID, &data, &t); err != nil {
			return nil, err
		}
		d.Data = []byte(data)
		if d.UpdatedAt, err = time.Parse(tsLayout, t); err != nil {
			return nil, fmt.Errorf("document %s/%s: bad timestamp %q", collection, d.ID, t)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLite) Subscribe(collection string, l Listener) (Subscription, error) {
	if err := s.Ping(context.Background()); err != nil {
		return nil, err
	}
	return s.hub.subscribe(collection, l), nil
}

func (s *SQLite) Ping(ctx context.Context) error { return s.wrap(s.db.PingContext(ctx)) }

// Close ends all subscriptions and closes the database.
func (s *SQLite) Close() error {
	s.hub.closeAll()
	return s.db.Close()
}

func (s *SQLite) wrap(err error) error {
	if err != nil && strings.Contains(err.Error(), "database is closed") {
		return ErrClosed
	}
	return err
}
