package alerting

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Result reports the outcome of one delivery request.
type Result struct {
	OK       bool
	Detail   string
	Attempts int
}

// Options tune the delivery retry loop.
type Options struct {
	// Retries is the base number of retries after the first attempt.
	Retries int
	// Backoff is the fixed sleep between attempts. Fixed rather than
	// exponential: the budget is small and the caller is an HTTP handler
	// that should not stall for long.
	Backoff time.Duration
	// WarmupWindow grants one extra retry while process uptime is below
	// it; transient failures cluster right after start while outbound
	// connections are cold.
	WarmupWindow time.Duration
}

// Engine sends de-duplicated messages with bounded retries. A nil notifier
// means credentials were never configured; delivery then short-circuits
// without any network call.
type Engine struct {
	notifier  Notifier
	opts      Options
	startedAt time.Time
	logger    zerolog.Logger

	now func() time.Time
}

// NewEngine constructs a delivery engine anchored at the current instant
// for warmup accounting.
func NewEngine(notifier Notifier, opts Options, logger zerolog.Logger) *Engine {
	return &Engine{
		notifier:  notifier,
		opts:      opts,
		startedAt: time.Now(),
		logger:    logger.With().Str("component", "delivery").Logger(),
		now:       time.Now,
	}
}

// Deliver attempts to send text until it succeeds or the retry budget is
// exhausted. The backoff sleep honours ctx cancellation; an abandoned loop
// returns the last failure and leaves any dedup reservation in place.
func (e *Engine) Deliver(ctx context.Context, text string) Result {
	if e.notifier == nil {
		return Result{OK: false, Detail: "telegram not configured", Attempts: 0}
	}

	budget := e.opts.Retries
	if e.now().Sub(e.startedAt) < e.opts.WarmupWindow {
		budget++
	}

	var lastErr error
	for attempt := 1; attempt <= budget+1; attempt++ {
		err := e.notifier.Send(ctx, text)
		if err == nil {
			e.logger.Info().Int("attempt", attempt).Msg("delivered")
			return Result{OK: true, Detail: "sent", Attempts: attempt}
		}

		lastErr = err
		e.logger.Warn().Err(err).Int("attempt", attempt).Int("budget", budget+1).Msg("delivery attempt failed")

		if attempt > budget {
			break
		}
		if !e.sleep(ctx) {
			return Result{OK: false, Detail: lastErr.Error(), Attempts: attempt}
		}
	}

	return Result{OK: false, Detail: lastErr.Error(), Attempts: budget + 1}
}

func (e *Engine) sleep(ctx context.Context) bool {
	if e.opts.Backoff <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(e.opts.Backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
