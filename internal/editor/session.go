/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor runs one editing session: the live scene graph, its render
// engine mirror, selection, undo and the project, upload and generation
// flows that feed the graph.
package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"socialstudio/internal/blob"
	"socialstudio/internal/cloudsync"
	"socialstudio/internal/domain"
	"socialstudio/internal/export"
	"socialstudio/internal/genai"
	applog "socialstudio/internal/log"
	"socialstudio/internal/preset"
	"socialstudio/internal/project"
	"socialstudio/internal/render"
	"socialstudio/internal/scene"
	"socialstudio/internal/store"
	"socialstudio/internal/templates"
	"socialstudio/internal/textlayout"
	"socialstudio/internal/undo"
	"socialstudio/internal/vector"
)

var (
	ErrClosed      = errors.New("editor session closed")
	ErrNotReady    = errors.New("render engine not ready")
	ErrNoSelection = errors.New("no active object")
)

// Level grades a Notice.
type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notice is a user-visible message about an outcome that did not stop the
// session.
type Notice struct {
	Level   Level
	Op      string
	Message string
	Err     error
	At      time.Time
}

// View receives UI updates. The session never calls it while holding its
// lock, so a view may call back into the session.
type View interface {
	Refresh()
	Notify(n Notice)
	SceneChanged(e scene.Event)
	ProjectsChanged(projects []domain.ProjectRecord)
	UploadsChanged(uploads []domain.Upload)
}

// NopView ignores every update. Embed it to implement part of View.
type NopView struct{}

func (NopView) Refresh()                               {}
func (NopView) Notify(Notice)                          {}
func (NopView) SceneChanged(scene.Event)               {}
func (NopView) ProjectsChanged([]domain.ProjectRecord) {}
func (NopView) UploadsChanged([]domain.Upload)         {}

// Usage receives anonymous usage events. *telemetry.Client implements it.
type Usage interface {
	Event(name string, props map[string]any)
}

type nopUsage struct{}

func (nopUsage) Event(string, map[string]any) {}

// Identity names the project being edited. An empty ID is an unsaved
// design.
type Identity struct {
	ID   string
	Name string
}

// Options wires a session. Nil fields get working defaults: built-in
// presets and brand, an in-memory engine and store, the built-in templates
// and a raster exporter. Without Blobs or Generator, uploads and
// generation fail with a notice.
type Options struct {
	Presets   *preset.Registry
	Brand     *preset.Brand
	Engine    render.Engine
	Remote    store.Remote
	UserID    string
	Templates *templates.Registry
	Codec     project.Codec
	Blobs     blob.Store
	Generator genai.Generator
	Exporter  *export.Exporter
	Measurer  vector.TextMeasurer
	Snap      vector.SnapOptions
	History   undo.Config
	// Frame is the refresh coalescing period.
	Frame time.Duration
	View  View
	Usage Usage
	Clock func() time.Time
	// IDs generates object ids.
	IDs func() string
}

const maxNotices = 64

// Session serialises every mutation of the graph behind one mutex. Engine
// events and store snapshots arrive on other goroutines; engine events are
// queued and applied by whoever holds the lock next.
type Session struct {
	log       *slog.Logger
	now       func() time.Time
	view      View
	uid       string
	engine    render.Engine
	remote    store.Remote
	ownRemote bool
	ser       *project.Serializer
	sync      *cloudsync.Controller
	templates *templates.Registry
	blobs     blob.Store
	gen       genai.Generator
	exporter  *export.Exporter
	usage     Usage
	measure   vector.TextMeasurer
	snap      vector.SnapOptions
	history   *undo.History
	refresh   *RefreshCoalescer

	mu      sync.Mutex
	graph   *scene.Graph
	ident   Identity
	histKey string
	notices []Notice
	outbox  []func(View)

	qmu   sync.Mutex
	queue []scene.Event

	closed      atomic.Bool
	done        chan struct{}
	once        sync.Once
	unsubEngine func()
}

// New builds a session and opens its store subscriptions.
func New(opts Options) (*Session, error) {
	s := &Session{
		log:       applog.WithComponent("editor"),
		now:       opts.Clock,
		view:      opts.View,
		uid:       opts.UserID,
		engine:    opts.Engine,
		remote:    opts.Remote,
		templates: opts.Templates,
		blobs:     opts.Blobs,
		gen:       opts.Generator,
		exporter:  opts.Exporter,
		usage:     opts.Usage,
		measure:   opts.Measurer,
		snap:      opts.Snap,
		history:   undo.New(opts.History),
		histKey:   uuid.NewString(),
		done:      make(chan struct{}),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.view == nil {
		s.view = NopView{}
	}
	if s.usage == nil {
		s.usage = nopUsage{}
	}
	if s.uid == "" {
		s.uid = "local"
	}
	if s.engine == nil {
		s.engine = render.NewMemoryEngine()
	}
	if s.remote == nil {
		s.remote, s.ownRemote = store.NewMemory(), true
	}
	if s.templates == nil {
		s.templates = templates.NewRegistry()
	}
	if s.exporter == nil {
		s.exporter = export.New(render.NewRasterizer(nil, render.SourceLoader{}), export.Options{})
	}
	if s.measure == nil {
		s.measure = textlayout.NewLayouter(nil)
	}
	if s.snap.Threshold <= 0 {
		s.snap = vector.DefaultSnap
	}
	presets := opts.Presets
	if presets == nil {
		presets = preset.Builtin()
	}
	brand := preset.DefaultBrand()
	if opts.Brand != nil {
		brand = *opts.Brand
	}
	ser, err := project.NewSerializer(presets, opts.Codec)
	if err != nil {
		return nil, err
	}
	ser.SetClock(s.now)
	s.ser = ser

	s.refresh = NewRefreshCoalescer(opts.Frame, func() {
		if !s.closed.Load() {
			s.view.Refresh()
		}
	})
	gopts := []scene.Option{scene.WithRefresher(s.refresh)}
	if opts.IDs != nil {
		gopts = append(gopts, scene.WithIDs(opts.IDs))
	}
	s.graph = scene.New(presets, brand, gopts...)
	s.log = s.log.With(slog.String("uid", s.uid))

	s.unsubEngine = s.engine.Subscribe(scene.ListenerFunc(s.enqueue))
	s.sync = cloudsync.New(s.remote, s.uid, observer{s})
	if err := s.sync.Start(); err != nil {
		s.unsubEngine()
		return nil, fmt.Errorf("start sync: %w", err)
	}
	s.log.Info("session started")
	return s, nil
}

// Close unsubscribes from the store exactly once, disposes the engine and
// drops every callback that arrives afterwards. It is safe to call more
// than once.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.refresh.Stop()
		s.sync.Close()
		s.unsubEngine()

		s.mu.Lock()
		err = s.engine.Dispose()
		s.outbox = nil
		s.mu.Unlock()
		s.qmu.Lock()
		s.queue = nil
		s.qmu.Unlock()

		if s.ownRemote {
			if cerr := s.remote.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		s.log.Info("session closed")
	})
	return err
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool { return s.closed.Load() }

// Identity returns the project being edited.
func (s *Session) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ident
}

// State returns a copy of the graph content.
func (s *Session) State() scene.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.State()
}

// Objects returns the objects bottom to top.
func (s *Session) Objects() []domain.SceneObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Objects()
}

// Active returns the object property edits apply to.
func (s *Session) Active() (domain.SceneObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Active()
}

// Preset returns the canvas preset.
func (s *Session) Preset() domain.Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Preset()
}

// Brand returns the brand kit offered by the property panel.
func (s *Session) Brand() preset.Brand { return s.graph.Brand() }

// Presets returns the preset table.
func (s *Session) Presets() *preset.Registry { return s.graph.Presets() }

// Templates returns the template registry.
func (s *Session) Templates() *templates.Registry { return s.templates }

// Projects returns the synced project list, newest first.
func (s *Session) Projects() []domain.ProjectRecord { return s.sync.Projects() }

// Uploads returns the synced upload gallery, newest first.
func (s *Session) Uploads() []domain.Upload { return s.sync.Uploads() }

// Notices returns the most recent notices, oldest first.
func (s *Session) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notice(nil), s.notices...)
}

// Refresher exposes the refresh coalescer, mainly to flush it.
func (s *Session) Refresher() *RefreshCoalescer { return s.refresh }

func (s *Session) lock() error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	return nil
}

// unlock applies queued engine events, releases the lock and then delivers
// view updates. Events queued by a goroutine that lost the TryLock race are
// picked up by the loop.
func (s *Session) unlock() {
	for {
		s.drainLocked()
		out := s.outbox
		s.outbox = nil
		s.mu.Unlock()
		for _, f := range out {
			f(s.view)
		}
		if !s.queued() || !s.mu.TryLock() {
			return
		}
	}
}

func (s *Session) enqueue(e scene.Event) {
	if s.closed.Load() {
		return
	}
	s.qmu.Lock()
	s.queue = append(s.queue, e)
	s.qmu.Unlock()
	if s.mu.TryLock() {
		s.unlock()
	}
}

func (s *Session) queued() bool {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return len(s.queue) > 0
}

func (s *Session) drainLocked() {
	for {
		s.qmu.Lock()
		q := s.queue
		s.queue = nil
		s.qmu.Unlock()
		if len(q) == 0 || s.closed.Load() {
			return
		}
		for _, e := range q {
			if e.Kind == scene.ObjectModified {
				for _, id := range e.IDs {
					s.pullLocked(id)
				}
			}
			s.emitLocked(e)
		}
	}
}

// pullLocked copies a direct manipulation made in the engine into the
// graph. Edits that break an object invariant are reverted in the engine.
func (s *Session) pullLocked(id string) {
	eo, ok := s.engine.Object(id)
	if !ok {
		return
	}
	cur, ok := s.graph.Object(id)
	if !ok || cur == eo {
		return
	}
	before := s.encodeLocked()
	if _, err := s.graph.Update(id, func(o *domain.SceneObject) { *o = eo }); err != nil {
		_ = s.engine.Update(cur)
		s.noticeLocked(Warning, "modify", "Alteração inválida foi desfeita.", err)
		return
	}
	s.recordLocked(before)
}

func (s *Session) emitLocked(e scene.Event) {
	s.graph.Selection().HandleEvent(e)
	s.post(func(v View) { v.SceneChanged(e) })
}

func (s *Session) post(f func(View)) { s.outbox = append(s.outbox, f) }

func (s *Session) noticeLocked(level Level, op, msg string, err error) Notice {
	n := Notice{Level: level, Op: op, Message: msg, Err: err, At: s.now()}
	l := applog.WithOperation(s.log, op)
	switch level {
	case Error:
		l.Error(msg, slog.Any("err", err))
	case Warning:
		l.Warn(msg, slog.Any("err", err))
	default:
		l.Info(msg)
	}
	s.notices = append(s.notices, n)
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
	s.post(func(v View) { v.Notify(n) })
	return n
}

// notice records a notice from outside the lock.
func (s *Session) notice(level Level, op, msg string, err error) {
	if s.lock() != nil {
		return
	}
	s.noticeLocked(level, op, msg, err)
	s.unlock()
}

func (s *Session) readyLocked() error {
	select {
	case <-s.engine.Ready():
		return nil
	default:
		return ErrNotReady
	}
}

// syncEngineLocked replaces the engine scene with the graph and restores
// the selection.
func (s *Session) syncEngineLocked() error {
	w, h := s.graph.Size()
	if err := s.engine.SetCanvas(w, h, s.graph.Background()); err != nil {
		return err
	}
	if err := s.engine.Load(render.DocumentOf(s.graph.State())); err != nil {
		return err
	}
	if id := s.graph.Selection().Active(); id != "" {
		return s.engine.SetActive(id)
	}
	return nil
}

func (s *Session) encodeLocked() []byte {
	b, err := json.Marshal(s.graph.State())
	if err != nil {
		s.log.Warn("snapshot for undo failed", slog.Any("err", err))
		return nil
	}
	return b
}

func (s *Session) recordLocked(before []byte) {
	if before == nil {
		return
	}
	s.history.Record(undo.Snapshot{Key: s.histKey, Blob: before, TS: s.now()})
}

// resetIdentityLocked starts a fresh history for a different design.
func (s *Session) resetIdentityLocked(id Identity) {
	s.history.Forget(s.histKey)
	s.histKey = uuid.NewString()
	s.ident = id
}

// observer forwards store snapshots to the view.
type observer struct{ s *Session }

func (o observer) ProjectsChanged(p []domain.ProjectRecord) {
	if !o.s.closed.Load() {
		o.s.view.ProjectsChanged(p)
	}
}

func (o observer) UploadsChanged(u []domain.Upload) {
	if !o.s.closed.Load() {
		o.s.view.UploadsChanged(u)
	}
}

func (o observer) SyncFailed(err error) {
	o.s.notice(Warning, "sync", "Erro na sincronização com a nuvem.", err)
}
