package ports

import (
	"context"

	"github.com/citadelle/account-security-service/internal/domain"
)

// ChannelSender delivers one queue entry over a concrete transport. Actual
// email/SMS/webhook implementations live outside this repository; the
// dispatcher only needs the attempt outcome.
type ChannelSender interface {
	Send(ctx context.Context, entry domain.NotificationQueueEntry) error
}
