package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"alert-relay/internal/alerting"
	"alert-relay/internal/dedup"
	"alert-relay/internal/extract"
	"alert-relay/internal/storage"
	"alert-relay/internal/telemetry"
)

// Outcome kinds, terminal on first applicable branch.
const (
	OutcomeTelemetryLogged  = "telemetry_logged"
	OutcomeSkippedEmpty     = "skipped_empty"
	OutcomeSkippedDuplicate = "skipped_duplicate"
	OutcomeDelivered        = "delivered"
	OutcomeDeliveryFailed   = "delivery_failed"
)

// Outcome is the terminal classification of one inbound alert.
type Outcome struct {
	Kind     string
	Detail   string
	Attempts int
}

// Relay orchestrates extraction, telemetry persistence, de-duplication,
// and delivery for each inbound alert. Telemetry capture and heartbeat
// classification always run before any delivery decision, so they cannot
// be skipped by a delivery failure.
type Relay struct {
	store   *telemetry.Store
	deduper *dedup.Deduper
	engine  *alerting.Engine
	audit   storage.DeliveryLog
	logger  zerolog.Logger

	now func() time.Time
}

// New constructs a Relay. audit may be nil when no database is configured.
func New(store *telemetry.Store, deduper *dedup.Deduper, engine *alerting.Engine, audit storage.DeliveryLog, logger zerolog.Logger) *Relay {
	return &Relay{
		store:   store,
		deduper: deduper,
		engine:  engine,
		audit:   audit,
		logger:  logger.With().Str("component", "relay").Logger(),
		now:     time.Now,
	}
}

// Process runs the per-request state machine and returns its terminal
// outcome. No failure inside propagates as an error: a malformed alert or
// a failed persistence must never take down the relay for the next one.
func (r *Relay) Process(ctx context.Context, in extract.Inbound) Outcome {
	alert := extract.Extract(in)
	clean, frag, hasTelemetry := telemetry.Split(alert)

	var rec telemetry.Record
	if hasTelemetry {
		rec = telemetry.NewRecord(frag, r.now())
		if err := r.store.Append(rec); err != nil {
			r.logger.Error().Err(err).Msg("telemetry persistence failed")
		}
	}

	if hasTelemetry && rec.IsHeartbeat() {
		return r.finish(ctx, alert, Outcome{Kind: OutcomeTelemetryLogged, Detail: rec.Event})
	}

	if clean == "" {
		return r.finish(ctx, alert, Outcome{Kind: OutcomeSkippedEmpty})
	}

	if !r.deduper.ShouldSend(clean) {
		return r.finish(ctx, clean, Outcome{Kind: OutcomeSkippedDuplicate})
	}

	res := r.engine.Deliver(ctx, clean)
	out := Outcome{Detail: res.Detail, Attempts: res.Attempts}
	if res.OK {
		out.Kind = OutcomeDelivered
	} else {
		out.Kind = OutcomeDeliveryFailed
	}
	return r.finish(ctx, clean, out)
}

// finish records the outcome in the audit store when one is configured.
// Audit failures are logged and never change the outcome.
func (r *Relay) finish(ctx context.Context, text string, out Outcome) Outcome {
	r.logger.Info().
		Str("outcome", out.Kind).
		Int("attempts", out.Attempts).
		Msg("alert processed")

	if r.audit != nil {
		rec := storage.DeliveryRecord{
			Fingerprint: dedup.Fingerprint(text),
			Outcome:     out.Kind,
			Detail:      out.Detail,
			Attempts:    out.Attempts,
			TextChars:   len(text),
		}
		if _, err := r.audit.InsertDelivery(ctx, rec); err != nil {
			r.logger.Error().Err(err).Msg("failed to audit outcome")
		}
	}
	return out
}
