// Package dispatch implements the scheduled-message dispatch cycle: select
// due pending messages, attempt delivery once per message, and transition
// each to a terminal sent or failed status.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/sungwon/heartpost/internal/metrics"
	"github.com/sungwon/heartpost/internal/provider"
	"github.com/sungwon/heartpost/internal/storage"
)

// Report aggregates the outcome of one dispatch cycle.
type Report struct {
	Total  int      `json:"total"`
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

// Engine runs dispatch cycles. Each cycle is stateless; everything it knows
// between invocations lives in the message store.
type Engine struct {
	queries   storage.Querier
	provider  provider.Provider
	batchSize int
	log       zerolog.Logger
	clock     func() time.Time
}

// NewEngine creates a dispatch engine processing at most batchSize messages
// per cycle.
func NewEngine(queries storage.Querier, p provider.Provider, batchSize int, log zerolog.Logger) *Engine {
	return &Engine{
		queries:   queries,
		provider:  p,
		batchSize: batchSize,
		log:       log,
		clock:     time.Now,
	}
}

// Run executes one dispatch cycle and returns its report. A failure to read
// the due batch is fatal to the cycle and returns a non-nil error with no
// report. Per-message delivery and persistence failures never abort the
// batch; they are reflected in the report, logs, and metrics instead.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	now := e.clock().UTC()
	cycleStart := time.Now()

	due, err := e.queries.FindDueMessages(ctx, storage.FindDueMessagesParams{
		Now:   now,
		Limit: e.batchSize,
	})
	if err != nil {
		metrics.DispatchCyclesTotal.WithLabelValues("storage_error").Inc()
		e.log.Error().Err(err).Msg("failed to select due messages")
		return nil, fmt.Errorf("select due messages: %w", err)
	}

	metrics.DispatchBatchSize.Observe(float64(len(due)))

	report := &Report{
		Total:  len(due),
		Errors: []string{},
	}

	for i := range due {
		e.processMessage(ctx, &due[i], now, report)
	}

	metrics.DispatchCyclesTotal.WithLabelValues("completed").Inc()
	metrics.DispatchCycleDuration.Observe(time.Since(cycleStart).Seconds())

	e.log.Info().
		Int("total", report.Total).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Msg("dispatch cycle completed")

	return report, nil
}

// processMessage attempts delivery of a single due message and persists the
// outcome under a pending-only conditional update.
func (e *Engine) processMessage(ctx context.Context, msg *storage.DueMessage, now time.Time, report *Report) {
	providerMsg := &provider.Message{
		ID:          msg.ID.String(),
		To:          msg.RecipientEmail,
		ToName:      textValue(msg.RecipientName),
		Subject:     msg.Subject,
		Body:        msg.Body,
		ReplyTo:     msg.OwnerEmail,
		ReplyToName: textValue(msg.OwnerName),
	}

	providerName := e.provider.GetName()

	sendStart := time.Now()
	result, sendErr := e.provider.Send(ctx, providerMsg)
	metrics.DeliveryDuration.WithLabelValues(providerName).Observe(time.Since(sendStart).Seconds())

	if sendErr != nil {
		metrics.DeliveryErrorsTotal.
			WithLabelValues(providerName, fmt.Sprintf("%t", provider.IsPermanent(sendErr))).
			Inc()
		e.log.Error().Err(sendErr).
			Str("provider", providerName).
			Stringer("message_id", msg.ID).
			Msg("provider send failed")
		e.recordFailure(ctx, msg, sendErr, report)
		return
	}

	updated, err := e.queries.MarkMessageSent(ctx, storage.MarkMessageSentParams{
		ID:     msg.ID,
		SentAt: now,
	})
	if err != nil {
		// The mail went out but the outcome write failed. The message stays
		// pending and will be selected again; the delivery is counted so the
		// report reflects what actually happened on the wire.
		metrics.DispatchStatusWriteFailuresTotal.Inc()
		e.log.Error().Err(err).
			Stringer("message_id", msg.ID).
			Msg("failed to persist sent status")
		report.Sent++
		return
	}
	if !updated {
		// Another cycle transitioned this message first; it owns the
		// success. Do not count it twice.
		metrics.DispatchConflictsTotal.Inc()
		e.log.Warn().
			Stringer("message_id", msg.ID).
			Msg("message no longer pending, concurrent cycle won")
		return
	}

	metrics.DispatchMessagesTotal.WithLabelValues("sent").Inc()
	report.Sent++

	e.log.Info().
		Str("provider", providerName).
		Stringer("message_id", msg.ID).
		Str("provider_message_id", result.ProviderMessageID).
		Msg("scheduled message delivered")
}

// recordFailure marks the message terminally failed and appends a
// per-message error note to the cycle report.
func (e *Engine) recordFailure(ctx context.Context, msg *storage.DueMessage, sendErr error, report *Report) {
	updated, err := e.queries.MarkMessageFailed(ctx, storage.MarkMessageFailedParams{
		ID:    msg.ID,
		Cause: sendErr.Error(),
	})
	if err != nil {
		metrics.DispatchStatusWriteFailuresTotal.Inc()
		e.log.Error().Err(err).
			Stringer("message_id", msg.ID).
			Msg("failed to persist failed status")
	} else if !updated {
		metrics.DispatchConflictsTotal.Inc()
		e.log.Warn().
			Stringer("message_id", msg.ID).
			Msg("message no longer pending, skipping failure record")
		return
	}

	metrics.DispatchMessagesTotal.WithLabelValues("failed").Inc()
	report.Failed++
	report.Errors = append(report.Errors, fmt.Sprintf("message %s: %s", msg.ID, sendErr.Error()))
}

func textValue(t pgtype.Text) string {
	if t.Valid {
		return t.String
	}
	return ""
}
