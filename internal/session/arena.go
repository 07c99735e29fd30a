// Package session keeps rule contexts alive between requests.
//
// An Arena owns many sessions keyed by opaque identifiers. Each Session
// holds one rules.Context behind a read/write lock: reads may run
// concurrently while updates are applied to a copy and committed only when
// they succeed. With a snapshot store configured, every committed state is
// written through before it becomes visible and closed sessions are removed
// from the store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/louisbranch/rulesheet/internal/core/rules"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
	"github.com/louisbranch/rulesheet/internal/platform/id"
	"github.com/louisbranch/rulesheet/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/louisbranch/rulesheet/internal/session"

// Arena holds the live sessions of one process.
type Arena struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
	store    storage.SnapshotStore
	now      func() time.Time
}

// Option configures an Arena.
type Option func(*Arena)

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Arena) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTracerProvider sets the tracer provider; the global provider is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Arena) {
		if tp != nil {
			a.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithStore persists session snapshots to store.
func WithStore(store storage.SnapshotStore) Option {
	return func(a *Arena) {
		a.store = store
	}
}

// NewArena returns an empty arena.
func NewArena(cfg Config, opts ...Option) *Arena {
	a := &Arena{
		sessions: map[string]*Session{},
		cfg:      cfg.normalized(),
		logger:   slog.Default(),
		tracer:   otel.GetTracerProvider().Tracer(instrumentationName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Create starts a session with an empty context.
func (a *Arena) Create(ctx context.Context) (*Session, error) {
	return a.add(ctx, "session.Create", rules.NewContext(rules.WithLimits(a.cfg.Limits)))
}

// Import starts a session from a context in its JSON wire form.
func (a *Arena) Import(ctx context.Context, data []byte) (*Session, error) {
	c := rules.NewContext(rules.WithLimits(a.cfg.Limits))
	if err := c.UnmarshalJSON(data); err != nil {
		a.logger.WarnContext(ctx, "session import rejected", "error", err)
		return nil, err
	}
	return a.add(ctx, "session.Import", c)
}

func (a *Arena) add(ctx context.Context, spanName string, c *rules.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := a.tracer.Start(ctx, spanName)
	defer span.End()

	sid, err := id.NewID()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate id")
		return nil, apperrors.Wrap(apperrors.CodeInvalidState, "generate session id", err)
	}
	span.SetAttributes(attribute.String("session.id", sid))

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkLimit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session limit")
		return nil, err
	}
	if err := a.save(ctx, sid, 0, c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save snapshot")
		return nil, err
	}
	s := &Session{id: sid, rules: c, arena: a}
	a.sessions[sid] = s
	a.logger.InfoContext(ctx, "session created", "session", sid, "sessions", len(a.sessions))
	return s, nil
}

// Restore loads a session from the snapshot store. A session that is
// already live is returned as is.
func (a *Arena) Restore(ctx context.Context, sid string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := a.tracer.Start(ctx, "session.Restore", trace.WithAttributes(attribute.String("session.id", sid)))
	defer span.End()

	if !id.Valid(sid) {
		return nil, notFound(sid)
	}
	if s, err := a.Get(sid); err == nil {
		return s, nil
	}
	if a.store == nil {
		return nil, notFound(sid)
	}
	snap, err := a.store.GetSnapshot(ctx, sid)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound(sid)
	}
	if err != nil {
		err = storageError("load session "+sid, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "load snapshot")
		return nil, err
	}
	c := rules.NewContext(rules.WithLimits(a.cfg.Limits))
	if err := c.UnmarshalJSON(snap.Context); err != nil {
		a.logger.ErrorContext(ctx, "stored session is unreadable", "session", sid, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode snapshot")
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sessions[sid]; ok {
		return s, nil
	}
	if err := a.checkLimit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session limit")
		return nil, err
	}
	s := &Session{id: sid, rules: c, version: snap.Version, arena: a}
	a.sessions[sid] = s
	a.logger.InfoContext(ctx, "session restored", "session", sid, "version", snap.Version)
	return s, nil
}

// checkLimit requires a.mu to be held.
func (a *Arena) checkLimit(ctx context.Context) error {
	if len(a.sessions) < a.cfg.MaxSessions {
		return nil
	}
	a.logger.WarnContext(ctx, "session limit reached", "limit", a.cfg.MaxSessions)
	return apperrors.WithMetadata(apperrors.CodeSessionLimit,
		"session limit of "+strconv.Itoa(a.cfg.MaxSessions)+" reached",
		map[string]string{apperrors.MetaLimit: strconv.Itoa(a.cfg.MaxSessions)})
}

func (a *Arena) save(ctx context.Context, sid string, version uint64, c *rules.Context) error {
	if a.store == nil {
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return storageError("encode session "+sid, err)
	}
	snap := storage.Snapshot{SessionID: sid, Version: version, Context: data, UpdatedAt: a.now()}
	if err := a.store.PutSnapshot(ctx, snap); err != nil {
		a.logger.ErrorContext(ctx, "save session snapshot", "session", sid, "error", err)
		return storageError("save session "+sid, err)
	}
	return nil
}

// Get returns the session with the given id.
func (a *Arena) Get(sid string) (*Session, error) {
	if !id.Valid(sid) {
		return nil, notFound(sid)
	}
	a.mu.RLock()
	s, ok := a.sessions[sid]
	a.mu.RUnlock()
	if !ok {
		return nil, notFound(sid)
	}
	return s, nil
}

// Close discards the session with the given id and its snapshot.
func (a *Arena) Close(ctx context.Context, sid string) error {
	a.mu.Lock()
	s, ok := a.sessions[sid]
	delete(a.sessions, sid)
	n := len(a.sessions)
	a.mu.Unlock()
	if !ok {
		return notFound(sid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	a.logger.InfoContext(ctx, "session closed", "session", sid, "sessions", n)
	if a.store == nil {
		return nil
	}
	if err := a.store.DeleteSnapshot(ctx, sid); err != nil && !errors.Is(err, storage.ErrNotFound) {
		a.logger.ErrorContext(ctx, "delete session snapshot", "session", sid, "error", err)
		return storageError("delete session "+sid, err)
	}
	return nil
}

// Len returns the number of live sessions.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// IDs returns the live session ids, sorted.
func (a *Arena) IDs() []string {
	a.mu.RLock()
	out := make([]string, 0, len(a.sessions))
	for sid := range a.sessions {
		out = append(out, sid)
	}
	a.mu.RUnlock()
	slices.Sort(out)
	return out
}

func storageError(msg string, err error) error {
	return apperrors.Wrap(apperrors.CodeStorage, msg, err)
}

func notFound(sid string) error {
	return apperrors.WithMetadata(apperrors.CodeSessionNotFound, "session "+sid+" not found",
		map[string]string{apperrors.MetaSession: sid})
}
