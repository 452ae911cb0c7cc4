package notify

import (
	"context"
	"log/slog"

	"github.com/citadelle/account-security-service/internal/domain"
)

// LogSender writes deliveries to the structured log instead of an external
// transport. It backs channels that have no real sender configured, which
// keeps local and test runs working end to end.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log-backed channel sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, entry domain.NotificationQueueEntry) error {
	s.logger.InfoContext(ctx, "notification delivered to log",
		"module", "notify.log_sender",
		"layer", "adapter",
		"operation", "send",
		"outcome", "success",
		"entry_id", entry.EntryID,
		"tenant_id", entry.TenantID,
		"notification_type", entry.Type,
		"channel", entry.Channel,
		"priority", entry.Priority,
		"payload_bytes", len(entry.Payload),
	)
	return nil
}
