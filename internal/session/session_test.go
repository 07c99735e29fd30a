package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/louisbranch/rulesheet/internal/core/rules"
	"github.com/louisbranch/rulesheet/internal/core/tag"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestArena(t *testing.T, cfg Config) (*Arena, *tracetest.SpanRecorder, *bytes.Buffer) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewArena(cfg, WithLogger(logger), WithTracerProvider(tp)), recorder, &logs
}

func tg(s string) tag.Tag { return tag.MustParse(s) }

func TestCreateGetClose(t *testing.T) {
	arena, _, logs := newTestArena(t, DefaultConfig())
	ctx := context.Background()

	s, err := arena.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := arena.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("expected session back, got %v (%v)", got, err)
	}
	if arena.Len() != 1 || arena.IDs()[0] != s.ID() {
		t.Fatalf("unexpected ids %v", arena.IDs())
	}
	if err := arena.Close(ctx, s.ID()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := arena.Get(s.ID()); !apperrors.HasCode(err, apperrors.CodeSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := arena.Close(ctx, s.ID()); !apperrors.HasCode(err, apperrors.CodeSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := arena.Get("not-an-id"); !apperrors.HasCode(err, apperrors.CodeSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(logs.String(), "session created") || !strings.Contains(logs.String(), "session closed") {
		t.Fatalf("expected lifecycle logs, got %q", logs.String())
	}
}

func TestSessionLimit(t *testing.T) {
	arena, recorder, _ := newTestArena(t, Config{MaxSessions: 1})
	ctx := context.Background()
	if _, err := arena.Create(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := arena.Create(ctx); !apperrors.HasCode(err, apperrors.CodeSessionLimit) {
		t.Fatalf("expected session limit, got %v", err)
	}
	spans := recorder.Ended()
	if last := spans[len(spans)-1]; last.Name() != "session.Create" || last.Status().Code != codes.Error {
		t.Fatalf("expected failed create span, got %s %v", last.Name(), last.Status())
	}
}

func TestUpdateCommitsOnlyOnSuccess(t *testing.T) {
	arena, _, logs := newTestArena(t, DefaultConfig())
	ctx := context.Background()
	s, _ := arena.Create(ctx)

	err := s.Update(ctx, func(c *rules.Context) error {
		c.InsertAttribute(rules.Attribute{Name: tg("atr.1"), Value: 1212.23})
		c.InsertConditional(rules.MustConditional("always", "true"))
		c.InsertModifier(rules.Modifier{Name: tg("m"), Target: tg("atr.1"), Condition: tg("always"), Change: rules.BasicValue{Value: 1}})
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.Version() != 1 {
		t.Fatalf("expected version 1, got %d", s.Version())
	}

	boom := errors.New("boom")
	err = s.Update(ctx, func(c *rules.Context) error {
		c.InsertAttribute(rules.Attribute{Name: tg("atr.1"), Value: 0})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s.Version() != 1 {
		t.Fatalf("failed update must not bump version, got %d", s.Version())
	}

	v, err := s.GetValue(ctx, tg("atr.1"))
	if err != nil || v != 1213.23 {
		t.Fatalf("expected 1213.23, got %v (%v)", v, err)
	}
	if !strings.Contains(logs.String(), "session update rejected") {
		t.Fatalf("expected rejection log, got %q", logs.String())
	}
}

func TestEvaluateAndExportImport(t *testing.T) {
	arena, _, _ := newTestArena(t, DefaultConfig())
	ctx := context.Background()
	s, _ := arena.Create(ctx)
	_ = s.Update(ctx, func(c *rules.Context) error {
		c.InsertAttribute(rules.Attribute{Name: tg("atr.1"), Value: 1212.23})
		c.InsertEquation(rules.MustEquation("test.eq", "atr.1 + 3"))
		c.AddStateTag(tg("status.ready"))
		return nil
	})

	ref, _ := rules.ParseReference("equation:test.eq")
	res, err := s.Evaluate(ctx, ref)
	if err != nil || res.Number != 1215.23 {
		t.Fatalf("expected 1215.23, got %+v (%v)", res, err)
	}

	data, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	copied, err := arena.Import(ctx, data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if copied.ID() == s.ID() {
		t.Fatal("import must create a new session")
	}
	res, err = copied.Evaluate(ctx, ref)
	if err != nil || res.Number != 1215.23 {
		t.Fatalf("expected 1215.23 after import, got %+v (%v)", res, err)
	}

	if _, err := arena.Import(ctx, []byte(`{"state_tags":{}}`)); !apperrors.HasCode(err, apperrors.CodeMalformedJSON) {
		t.Fatalf("expected malformed json, got %v", err)
	}
	if arena.Len() != 2 {
		t.Fatalf("rejected import must not add a session, have %d", arena.Len())
	}
}

func TestReadRecordsSpans(t *testing.T) {
	arena, recorder, _ := newTestArena(t, DefaultConfig())
	ctx := context.Background()
	s, _ := arena.Create(ctx)

	if _, err := s.Evaluate(ctx, rules.Reference{Kind: rules.KindEquation, Path: tg("missing")}); !apperrors.HasCode(err, apperrors.CodeDoesNotExist) {
		t.Fatalf("expected does not exist, got %v", err)
	}
	var read sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == "session.Read" {
			read = span
		}
	}
	if read == nil {
		t.Fatal("expected a session.Read span")
	}
	if read.Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", read.Status())
	}
	found := false
	for _, attr := range read.Attributes() {
		if string(attr.Key) == "session.id" && attr.Value.AsString() == s.ID() {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session.id attribute, got %v", read.Attributes())
	}
}

func TestCancelledContext(t *testing.T) {
	arena, _, _ := newTestArena(t, DefaultConfig())
	s, _ := arena.Create(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Read(ctx, func(*rules.Context) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if _, err := arena.Create(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestConcurrentReadsAndUpdates(t *testing.T) {
	arena, _, _ := newTestArena(t, DefaultConfig())
	ctx := context.Background()
	s, _ := arena.Create(ctx)
	_ = s.Update(ctx, func(c *rules.Context) error {
		c.InsertConditional(rules.MustConditional("always", "true"))
		return nil
	})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, func(c *rules.Context) error {
				c.InsertModifier(rules.Modifier{
					Name:      tg("m." + string(rune('a'+i))),
					Target:    tg("total"),
					Condition: tg("always"),
					Change:    rules.BasicValue{Value: 1},
				})
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			if _, err := s.GetValue(ctx, tg("total")); err != nil {
				t.Errorf("get value: %v", err)
			}
		}()
	}
	wg.Wait()

	v, err := s.GetValue(ctx, tg("total"))
	if err != nil || v != 8 {
		t.Fatalf("expected 8, got %v (%v)", v, err)
	}
	if s.Version() != 9 {
		t.Fatalf("expected version 9, got %d", s.Version())
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RULESHEET_MAX_SESSIONS", "3")
	t.Setenv("RULESHEET_MAX_DEPTH", "7")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MaxSessions != 3 || cfg.Limits.MaxDepth != 7 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
