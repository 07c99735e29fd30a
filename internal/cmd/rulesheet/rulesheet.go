// Package rulesheet implements the rulesheet command: load a rule context,
// optionally adjust its state tags, and print the value of each reference.
package rulesheet

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/louisbranch/rulesheet/internal/core/formula"
	"github.com/louisbranch/rulesheet/internal/core/rules"
	"github.com/louisbranch/rulesheet/internal/core/tag"
	"github.com/louisbranch/rulesheet/internal/platform/config"
	"github.com/louisbranch/rulesheet/internal/platform/otel"
	"github.com/louisbranch/rulesheet/internal/session"
	"github.com/louisbranch/rulesheet/internal/storage/sqlite"
)

const serviceName = "rulesheet"

// Config holds rulesheet command configuration.
type Config struct {
	ContextFile string `env:"CONTEXT_FILE"`
	DBPath      string `env:"DB_PATH"`
	SessionID   string `env:"SESSION_ID"`
	Format      string `env:"FORMAT" envDefault:"text"`
	Verbose     bool   `env:"VERBOSE"`
	States      []string
	Refs        []string
}

type listFlag struct {
	values *[]string
}

func (l listFlag) String() string {
	if l.values == nil {
		return ""
	}
	return strings.Join(*l.values, ",")
}

func (l listFlag) Set(v string) error {
	*l.values = append(*l.values, v)
	return nil
}

// ParseConfig reads RULESHEET_* variables, then flags. Remaining arguments
// are references such as "equation:attack.bonus".
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.ContextFile, "context", cfg.ContextFile, "path to a context JSON file, - for stdin")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to a SQLite session store")
	fs.StringVar(&cfg.SessionID, "session", cfg.SessionID, "restore this session from the store")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format: text or json")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable debug logging")
	fs.Var(listFlag{values: &cfg.States}, "state", "add a state tag before evaluating (repeatable)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Refs = fs.Args()
	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.Format != "text" && cfg.Format != "json" {
		return fmt.Errorf("unknown format %q", cfg.Format)
	}
	if cfg.SessionID != "" && cfg.DBPath == "" {
		return errors.New("session restore requires a store path")
	}
	if cfg.SessionID == "" && cfg.ContextFile == "" {
		return errors.New("context file or session id is required")
	}
	if cfg.SessionID != "" && cfg.ContextFile != "" {
		return errors.New("context file and session id are mutually exclusive")
	}
	return nil
}

// Run executes the rulesheet command.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	refs := make([]rules.Reference, 0, len(cfg.Refs))
	for _, arg := range cfg.Refs {
		ref, err := rules.ParseReference(arg)
		if err != nil {
			return fmt.Errorf("reference %q: %w", arg, err)
		}
		refs = append(refs, ref)
	}
	states := make([]tag.Tag, 0, len(cfg.States))
	for _, s := range cfg.States {
		t, err := tag.Parse(s)
		if err != nil {
			return fmt.Errorf("state %q: %w", s, err)
		}
		states = append(states, t)
	}

	shutdown, err := otel.Setup(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() { _ = shutdown(context.WithoutCancel(ctx)) }()

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	sessionCfg, err := session.LoadConfig()
	if err != nil {
		return err
	}
	opts := []session.Option{session.WithLogger(logger)}
	if cfg.DBPath != "" {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()
		opts = append(opts, session.WithStore(store))
	}
	arena := session.NewArena(sessionCfg, opts...)

	s, err := open(ctx, arena, cfg, in)
	if err != nil {
		return err
	}
	if len(states) > 0 {
		if err := s.Update(ctx, func(c *rules.Context) error {
			for _, t := range states {
				c.AddStateTag(t)
			}
			return nil
		}); err != nil {
			return err
		}
	}

	results := make([]result, 0, len(refs))
	for _, ref := range refs {
		r, err := s.Evaluate(ctx, ref)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", ref, err)
		}
		results = append(results, newResult(ref, r))
	}

	var persisted string
	if cfg.DBPath != "" {
		persisted = s.ID()
	}
	return write(out, cfg.Format, persisted, results)
}

func open(ctx context.Context, arena *session.Arena, cfg Config, in io.Reader) (*session.Session, error) {
	if cfg.SessionID != "" {
		return arena.Restore(ctx, cfg.SessionID)
	}
	data, err := readContext(cfg.ContextFile, in)
	if err != nil {
		return nil, err
	}
	return arena.Import(ctx, data)
}

func readContext(path string, in io.Reader) ([]byte, error) {
	if path == "-" {
		if in == nil {
			return nil, errors.New("stdin is not available")
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context: %w", err)
	}
	return data, nil
}

type result struct {
	Ref   string `json:"ref"`
	Value any    `json:"value"`
}

func newResult(ref rules.Reference, r rules.Result) result {
	if r.Kind == formula.KindBool {
		return result{Ref: ref.String(), Value: r.Bool}
	}
	return result{Ref: ref.String(), Value: r.Number}
}

func write(out io.Writer, format, sessionID string, results []result) error {
	if format == "json" {
		doc := struct {
			Session string   `json:"session,omitempty"`
			Results []result `json:"results"`
		}{Session: sessionID, Results: results}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	if sessionID != "" {
		if _, err := fmt.Fprintf(out, "session %s\n", sessionID); err != nil {
			return err
		}
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(out, "%s = %v\n", r.Ref, r.Value); err != nil {
			return err
		}
	}
	return nil
}
