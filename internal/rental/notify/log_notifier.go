package notify

import (
	"context"
	"log/slog"

	"github.com/otprent/rental-gateway/internal/rental/domain"
)

// LogNotifier reports transition events to the log only. Used when the
// service runs without a message broker.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "log_notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, event domain.Event) {
	switch event.Type {
	case domain.EventOTPReceived:
		n.logger.InfoContext(ctx, "OTP received", "request_id", event.RequestID, "code", event.Code)
	case domain.EventRentalExpired:
		n.logger.InfoContext(ctx, "rental expired", "request_id", event.RequestID)
	default:
		n.logger.InfoContext(ctx, "rental event", "request_id", event.RequestID, "type", event.Type)
	}
}
