package notification

import (
	"context"
	"log/slog"
)

const (
	// KindOTP carries a login code to a mobile number.
	KindOTP = "otp"
	// KindServiceRequest tells a customer or engineer about a request update.
	KindServiceRequest = "service_request"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
	// Secret marks a body carrying a code, such as a happy code.
	Secret bool
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger. OTP and secret bodies
// are only logged when ShowSecrets is set.
type LoggerNotifier struct {
	logger      *slog.Logger
	ShowSecrets bool
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	body := message.Body
	if (message.Kind == KindOTP || message.Secret) && !n.ShowSecrets {
		body = "[redacted]"
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", body)
	return nil
}
