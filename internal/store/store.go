/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store is the remote document store: JSON documents addressed by
// collection path and id, with collection subscriptions that deliver the
// full current contents after every change.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// ErrClosed is returned by every call on a closed store.
	ErrClosed = errors.New("store closed")
	// ErrInvalidDocument is returned for empty paths or non-JSON payloads.
	ErrInvalidDocument = errors.New("invalid document")
)

// Document is one stored JSON document.
type Document struct {
	ID        string
	Data      []byte
	UpdatedAt time.Time
}

// Listener receives collection snapshots. OnSnapshot always carries the
// complete collection, never a diff.
type Listener interface {
	OnSnapshot(docs []Document)
	OnError(err error)
}

// Funcs adapts two functions to Listener. Nil functions are skipped.
type Funcs struct {
	Snapshot func(docs []Document)
	Error    func(err error)
}

func (f Funcs) OnSnapshot(docs []Document) {
	if f.Snapshot != nil {
		f.Snapshot(docs)
	}
}

func (f Funcs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// Subscription is released with Unsubscribe. Further calls are no-ops.
type Subscription interface {
	Unsubscribe()
}

// Remote is implemented by every driver.
type Remote interface {
	// Put creates or replaces the document.
	Put(ctx context.Context, collection, id string, data []byte) error
	// Delete removes the document; a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Document, error)
	// Subscribe delivers the current contents right away and again after
	// every change to the collection.
	Subscribe(collection string, l Listener) (Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a driver.
type Options struct {
	Driver string
	// Path is the sqlite database file.
	Path string
	// DSN is the postgres connection string.
	DSN string
}

// Open returns the driver named by o.Driver.
func Open(ctx context.Context, o Options) (Remote, error) {
	switch strings.ToLower(strings.TrimSpace(o.Driver)) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, o.Path)
	case DriverPostgres, "pg", "pgx":
		return OpenPostgres(ctx, o.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", o.Driver)
	}
}

func checkDoc(collection, id string, data []byte) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: %s/%s is not JSON", ErrInvalidDocument, collection, id)
	}
	return nil
}

func checkKey(collection, id string) error {
	if strings.TrimSpace(collection) == "" || strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: collection and id are required", ErrInvalidDocument)
	}
	return nil
}
