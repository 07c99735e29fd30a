package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/louisbranch/rulesheet/internal/core/rules"
	"github.com/louisbranch/rulesheet/internal/core/tag"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Session guards one rules.Context: one writer or many readers.
type Session struct {
	id      string
	mu      sync.RWMutex
	rules   *rules.Context
	version uint64
	arena   *Arena
	closed  bool
}

func (s *Session) ID() string {
	return s.id
}

// Version counts committed updates.
func (s *Session) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Read runs fn with shared access to the context. fn must not modify it.
// Read and Update fail with SESSION_NOT_FOUND once the session is closed.
func (s *Session) Read(ctx context.Context, fn func(*rules.Context) error) error {
	ctx, span := s.start(ctx, "session.Read")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return s.fail(span, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return s.fail(span, notFound(s.id))
	}
	if err := fn(s.rules); err != nil {
		return s.fail(span, err)
	}
	return nil
}

// Update runs fn against a copy of the context and commits the copy only
// when fn returns nil and the snapshot, if any, is stored.
func (s *Session) Update(ctx context.Context, fn func(*rules.Context) error) error {
	ctx, span := s.start(ctx, "session.Update")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return s.fail(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.fail(span, notFound(s.id))
	}
	draft := s.rules.Clone()
	if err := fn(draft); err != nil {
		s.arena.logger.WarnContext(ctx, "session update rejected", "session", s.id, "error", err)
		return s.fail(span, err)
	}
	if err := s.arena.save(ctx, s.id, s.version+1, draft); err != nil {
		return s.fail(span, err)
	}
	s.rules = draft
	s.version++
	span.SetAttributes(attribute.Int64("session.version", int64(s.version)))
	s.arena.logger.DebugContext(ctx, "session updated", "session", s.id, "version", s.version)
	return nil
}

// GetValue resolves t with modifiers applied.
func (s *Session) GetValue(ctx context.Context, t tag.Tag) (float32, error) {
	var v float32
	err := s.Read(ctx, func(c *rules.Context) error {
		var err error
		v, err = c.GetValue(t)
		return err
	})
	return v, err
}

// Evaluate resolves ref.
func (s *Session) Evaluate(ctx context.Context, ref rules.Reference) (rules.Result, error) {
	var out rules.Result
	err := s.Read(ctx, func(c *rules.Context) error {
		var err error
		out, err = c.Evaluate(ref)
		return err
	})
	return out, err
}

// Export returns the context in its JSON wire form.
func (s *Session) Export(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.Read(ctx, func(c *rules.Context) error {
		var err error
		data, err = json.Marshal(c)
		return err
	})
	return data, err
}

func (s *Session) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.arena.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("session.id", s.id)))
}

func (s *Session) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
