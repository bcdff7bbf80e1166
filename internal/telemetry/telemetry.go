/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends anonymous, opt-in usage events and crash reports.
// Nothing leaves the machine unless telemetry is enabled and an endpoint is
// configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "socialstudio/internal/log"
	"socialstudio/internal/version"
)

// Event names emitted by the application. Properties never carry scene
// content or project names.
const (
	EventSessionStarted  = "session_started"
	EventProjectSaved    = "project_saved"
	EventExported        = "exported"
	EventTemplateApplied = "template_applied"
)

// Config controls the client. Events are POSTed as JSON batches to
// Endpoint+"/events" and crash reports to Endpoint+"/crash".
type Config struct {
	Enabled   bool
	Endpoint  string
	Timeout   time.Duration
	BatchSize int
	Debug     bool
}

// FromEnv reads SST_TELEMETRY_ENABLED, SST_TELEMETRY_ENDPOINT,
// SST_TELEMETRY_TIMEOUT_MS and SST_TELEMETRY_DEBUG.
func FromEnv() Config {
	cfg := Config{
		Enabled:  parseBool(os.Getenv("SST_TELEMETRY_ENABLED")),
		Endpoint: strings.TrimSpace(os.Getenv("SST_TELEMETRY_ENDPOINT")),
		Debug:    os.Getenv("SST_TELEMETRY_DEBUG") != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv("SST_TELEMETRY_TIMEOUT_MS"))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Event is one usage record.
type Event struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

type batch struct {
	Events []Event `json:"events"`
}

// Client queues events and sends them from one goroutine. The queue is
// bounded; events are dropped when it is full or a send fails.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan Event
	pending atomic.Int64
	once    sync.Once
	closed  chan struct{}
	done    chan struct{}
}

// New starts a client. A disabled client starts no goroutine.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan Event, 64),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	if c.Enabled() {
		go c.loop()
	} else {
		close(c.done)
	}
	return c
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.Enabled && c.cfg.Endpoint != "" }

// Event queues a named event. Safe on a nil or disabled client.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	ev := Event{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	if len(props) > 0 {
		ev.Props = make(map[string]any, len(props))
		for k, v := range props {
			ev.Props[k] = v
		}
	}
	c.pending.Add(1)
	select {
	case c.q <- ev:
	default:
		c.pending.Add(-1)
	}
}

// Flush waits until queued events are sent, ctx ends or the client closes.
func (c *Client) Flush(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-t.C:
		}
	}
}

// Close stops the sender. Queued events are discarded.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.closed) })
	<-c.done
}

func (c *Client) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.closed:
			return
		case ev := <-c.q:
			evs := []Event{ev}
		fill:
			for len(evs) < c.cfg.BatchSize {
				select {
				case ev := <-c.q:
					evs = append(evs, ev)
				default:
					break fill
				}
			}
			c.send(evs)
			c.pending.Add(-int64(len(evs)))
		}
	}
}

func (c *Client) send(evs []Event) {
	buf, err := json.Marshal(batch{Events: evs})
	if err != nil {
		return
	}
	if err := c.post(context.Background(), "/events", "application/json", buf); err != nil {
		if c.cfg.Debug {
			c.log.Debug("telemetry send failed", slog.Int("events", len(evs)), slog.Any("err", err))
		}
		return
	}
	if c.cfg.Debug {
		c.log.Debug("telemetry batch sent", slog.Int("events", len(evs)))
	}
}

// UploadCrash posts a crash report and waits for the answer, bounded by the
// client timeout. It is a no-op when telemetry is disabled.
func (c *Client) UploadCrash(report []byte) error {
	if !c.Enabled() {
		return nil
	}
	return c.post(context.Background(), "/crash", "text/plain; charset=utf-8", report)
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry %s: status %d", path, resp.StatusCode)
	}
	return nil
}
