package notification

import (
	"context"

	"github.com/whilber-ai/alert-engine/internal/models"
)

// Sender delivers one notification on one channel. Implementations talk to
// external transports (SMTP, chat bot API, push service, webhook targets);
// the engine depends only on this contract.
//
// A sender returns models.ErrChannelUnavailable (possibly wrapped) when the
// subscriber has no usable address for the channel; that outcome is recorded
// and never retried.
type Sender interface {
	Send(ctx context.Context, sub models.Subscriber, n models.Notification) error
}
