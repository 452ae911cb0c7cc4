package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
	"github.com/citadelle/account-security-service/internal/ports"
)

// DispatcherWorker drains the notification queue and hands entries to the
// per-channel senders. Queue writes are transactional with the triggering
// action; delivery happens here, decoupled and retried.
type DispatcherWorker struct {
	logger    *slog.Logger
	queue     ports.NotificationRepository
	senders   map[domain.NotificationChannel]ports.ChannelSender
	interval  time.Duration
	batchSize int
	claimTTL  time.Duration
	baseDelay time.Duration
	nowFn     func() time.Time
}

// NewDispatcherWorker constructs the dispatch loop with sane defaults.
func NewDispatcherWorker(
	logger *slog.Logger,
	queue ports.NotificationRepository,
	senders map[domain.NotificationChannel]ports.ChannelSender,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
) *DispatcherWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	return &DispatcherWorker{
		logger:    logger,
		queue:     queue,
		senders:   senders,
		interval:  interval,
		batchSize: batchSize,
		claimTTL:  claimTTL,
		baseDelay: 30 * time.Second,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the periodic dispatch loop until context cancellation.
func (w *DispatcherWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "dispatch iteration failed",
				"module", "notify.dispatcher_worker",
				"layer", "adapter",
				"operation", "dispatch_process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *DispatcherWorker) processOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	now := w.nowFn()
	entries, err := w.queue.ClaimDue(ctx, w.batchSize, claimToken, now.Add(w.claimTTL), now)
	if err != nil {
		return err
	}

	sent := 0
	rescheduled := 0
	failed := 0
	for _, entry := range entries {
		at := w.nowFn()
		sender, ok := w.senders[entry.Channel]
		if !ok {
			failed++
			_ = w.queue.MarkFailed(ctx, entry.EntryID, claimToken, fmt.Sprintf("no sender for channel %s", entry.Channel), at)
			continue
		}

		if err := sender.Send(ctx, entry); err != nil {
			attemptsAfterFailure := entry.AttemptCount + 1
			if attemptsAfterFailure >= entry.MaxAttempts {
				failed++
				w.logger.ErrorContext(ctx, "notification delivery exhausted",
					"module", "notify.dispatcher_worker",
					"layer", "adapter",
					"operation", "deliver_notification",
					"outcome", "failure",
					"entry_id", entry.EntryID,
					"notification_type", entry.Type,
					"channel", entry.Channel,
					"attempt_count", attemptsAfterFailure,
					"error", err,
				)
				_ = w.queue.MarkFailed(ctx, entry.EntryID, claimToken, err.Error(), at)
				continue
			}

			rescheduled++
			w.logger.WarnContext(ctx, "notification delivery failed; retry scheduled",
				"module", "notify.dispatcher_worker",
				"layer", "adapter",
				"operation", "deliver_notification",
				"outcome", "failure",
				"entry_id", entry.EntryID,
				"notification_type", entry.Type,
				"channel", entry.Channel,
				"attempt_count", attemptsAfterFailure,
				"error", err,
			)
			_ = w.queue.Reschedule(ctx, entry.EntryID, claimToken, err.Error(), at.Add(w.backoff(attemptsAfterFailure)), at)
			continue
		}
		sent++
		_ = w.queue.MarkSent(ctx, entry.EntryID, claimToken, at)
	}
	if len(entries) > 0 {
		w.logger.InfoContext(ctx, "notification batch processed",
			"module", "notify.dispatcher_worker",
			"layer", "adapter",
			"operation", "dispatch_process_once",
			"outcome", "success",
			"batch_size", len(entries),
			"sent_count", sent,
			"rescheduled_count", rescheduled,
			"failed_count", failed,
		)
	}
	return nil
}

// backoff doubles the base delay per attempt, capped at ten minutes.
func (w *DispatcherWorker) backoff(attempt int) time.Duration {
	delay := w.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return delay
}
