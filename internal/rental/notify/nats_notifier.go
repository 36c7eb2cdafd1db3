package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/otprent/rental-gateway/internal/rental/domain"
)

// eventPublisher is what NATSNotifier needs from the message broker.
type eventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSNotifier publishes transition events as JSON on
// "rental.events.<type>". Publish failures are logged and dropped: the
// sink must never feed back into state transitions.
type NATSNotifier struct {
	publisher eventPublisher
	logger    *slog.Logger
}

func NewNATSNotifier(publisher eventPublisher, logger *slog.Logger) *NATSNotifier {
	return &NATSNotifier{
		publisher: publisher,
		logger:    logger.With("component", "nats_notifier"),
	}
}

func (n *NATSNotifier) Notify(ctx context.Context, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to marshal rental event", "event_id", event.ID, "error", err)
		return
	}

	subject := "rental.events." + string(event.Type)
	if err := n.publisher.Publish(ctx, subject, data); err != nil {
		n.logger.WarnContext(ctx, "failed to publish rental event",
			"event_id", event.ID, "subject", subject, "error", err)
		return
	}
	n.logger.InfoContext(ctx, "rental event published",
		"event_id", event.ID, "subject", subject, "request_id", event.RequestID)
}
