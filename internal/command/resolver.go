package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lumen/internal/logger"
	"lumen/internal/report"
)

var (
	// ErrGenerative marks a failed fallback call. It is reported to the user
	// with a retry option, never shown as an empty report.
	ErrGenerative = errors.New("report generation failed")
	// ErrGenerativeTimeout is a generative failure caused by the deadline.
	ErrGenerativeTimeout = fmt.Errorf("%w: timed out", ErrGenerative)
)

type Status string

const (
	StatusIdle              Status = "idle"
	StatusResolving         Status = "resolving"
	StatusMatched           Status = "matched"
	StatusNoMatch           Status = "no-match"
	StatusGenerativeFailure Status = "generative-failure"
	StatusCanceled          Status = "canceled"
)

type Result struct {
	Status Status
	Intent Intent
	Err    error
}

func matched(i Intent) Result { return Result{Status: StatusMatched, Intent: i} }

// Generator produces a report for a free-text query. It is the external
// summarization collaborator behind the fallback path.
type Generator interface {
	Generate(ctx context.Context, query string) (report.Spec, error)
}

type GeneratorFunc func(ctx context.Context, query string) (report.Spec, error)

func (f GeneratorFunc) Generate(ctx context.Context, query string) (report.Spec, error) {
	return f(ctx, query)
}

const DefaultGenerativeTimeout = 20 * time.Second

// GenerativeMatcher is always the last link of the chain and the only
// asynchronous one.
type GenerativeMatcher struct {
	gen     Generator
	timeout time.Duration
}

func NewGenerativeMatcher(gen Generator, timeout time.Duration) *GenerativeMatcher {
	if timeout <= 0 {
		timeout = DefaultGenerativeTimeout
	}
	return &GenerativeMatcher{gen: gen, timeout: timeout}
}

// MatchAsync starts generation and returns a channel that yields exactly one
// Result. The channel is buffered so an abandoned request never blocks.
func (g *GenerativeMatcher) MatchAsync(ctx context.Context, in Input) <-chan Result {
	out := make(chan Result, 1)
	query := strings.TrimSpace(in.Text)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		spec, err := g.gen.Generate(ctx, query)
		out <- classify(ctx, query, spec, err)
	}()
	return out
}

func classify(ctx context.Context, query string, spec report.Spec, err error) Result {
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return Result{Status: StatusGenerativeFailure, Err: fmt.Errorf("%w: %v", ErrGenerativeTimeout, err)}
	case errors.Is(err, context.Canceled):
		return Result{Status: StatusCanceled, Err: err}
	default:
		return Result{Status: StatusGenerativeFailure, Err: fmt.Errorf("%w: %v", ErrGenerative, err)}
	}
	if spec.Renderable() == 0 {
		return Result{Status: StatusNoMatch}
	}
	intent := ReportIntent{Query: query, Spec: spec}
	if verr := intent.Validate(); verr != nil {
		return Result{Status: StatusGenerativeFailure, Err: fmt.Errorf("%w: %w", ErrGenerative, verr)}
	}
	return matched(intent)
}

// Resolution is either settled (Pending == nil) or waiting on the
// generative path.
type Resolution struct {
	Result  Result
	Pending <-chan Result
}

func (r Resolution) Async() bool { return r.Pending != nil }

// Wait blocks until the resolution settles or ctx ends.
func (r Resolution) Wait(ctx context.Context) Result {
	if r.Pending == nil {
		return r.Result
	}
	select {
	case res := <-r.Pending:
		return res
	case <-ctx.Done():
		return Result{Status: StatusCanceled, Err: ctx.Err()}
	}
}

type Resolver struct {
	matchers []Matcher
	fallback *GenerativeMatcher
	logger   *slog.Logger
}

// NewResolver builds a resolver over the given chain. fallback may be nil,
// in which case unmatched input resolves to no-match.
func NewResolver(matchers []Matcher, fallback *GenerativeMatcher, l *slog.Logger) *Resolver {
	return &Resolver{matchers: matchers, fallback: fallback, logger: logger.OrDefault(l)}
}

// Resolve runs the deterministic chain synchronously. The generative
// fallback is started only after every matcher declined, so the two paths
// never race.
func (r *Resolver) Resolve(ctx context.Context, in Input) Resolution {
	if strings.TrimSpace(in.Text) == "" && strings.TrimSpace(in.Code) == "" {
		return Resolution{Result: Result{Status: StatusNoMatch}}
	}
	for _, m := range r.matchers {
		intent, ok := m.Match(in)
		if !ok {
			continue
		}
		if err := intent.Validate(); err != nil {
			r.logger.Debug("matcher produced invalid intent", "error", err)
			continue
		}
		return Resolution{Result: matched(intent)}
	}
	if r.fallback == nil || strings.TrimSpace(in.Text) == "" {
		return Resolution{Result: Result{Status: StatusNoMatch}}
	}
	r.logger.Debug("no deterministic match, generating report", "query", in.Text)
	return Resolution{Pending: r.fallback.MatchAsync(ctx, in)}
}
