package generation

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/leap-learning/leap-server/pkg/gemini"
	"github.com/leap-learning/leap-server/pkg/metrics"
	"github.com/leap-learning/leap-server/pkg/tracing"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Gateway wraps the text model with bounded retry on overload. It holds no
// per-call state and is safe for concurrent use.
type Gateway struct {
	client      gemini.Client
	maxAttempts int
	baseDelay   time.Duration
	sleep       SleepFunc
	logger      *slog.Logger
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithMaxAttempts sets the total number of calls made for one prompt.
func WithMaxAttempts(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the unit of the exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.baseDelay = d
		}
	}
}

// WithSleep replaces the backoff sleeper. Tests use it to record delays.
func WithSleep(fn SleepFunc) Option {
	return func(g *Gateway) {
		if fn != nil {
			g.sleep = fn
		}
	}
}

// NewGateway builds a gateway around client.
func NewGateway(client gemini.Client, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		client:      client,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		sleep:       sleepContext,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Generate sends prompt to the model. A 503 response is retried with delays of
// baseDelay*2^attempt; every other failure is returned at once.
func (g *Gateway) Generate(ctx context.Context, prompt string) (res *gemini.Result, err error) {
	ctx, span := tracing.Start(ctx, "generation.Generate", attribute.Int("prompt.length", len(prompt)))
	defer func() { tracing.End(span, err) }()

	return g.generate(ctx, prompt)
}

func (g *Gateway) generate(ctx context.Context, prompt string) (*gemini.Result, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &GenerationError{Attempts: attempt - 1, Err: err}
		}

		res, err := g.client.Generate(ctx, prompt)
		if err == nil {
			metrics.RecordGeneration("ok")
			return res, nil
		}

		status := gemini.StatusCode(err)
		if status != http.StatusServiceUnavailable {
			metrics.RecordGeneration("error")
			return nil, &GenerationError{Status: status, Attempts: attempt, Err: err}
		}

		metrics.RecordGeneration("overloaded")
		if attempt >= g.maxAttempts {
			g.logger.WarnContext(ctx, "generation service overloaded, giving up",
				slog.Int("attempts", attempt),
			)
			return nil, &GenerationError{Status: status, Attempts: attempt, Err: err}
		}

		delay := g.baseDelay << attempt
		g.logger.WarnContext(ctx, "generation service overloaded, retrying",
			slog.Int("attempt", attempt),
			slog.Int("maxAttempts", g.maxAttempts),
			slog.Duration("delay", delay),
		)
		if err := g.sleep(ctx, delay); err != nil {
			return nil, &GenerationError{Attempts: attempt, Err: err}
		}
	}
}
