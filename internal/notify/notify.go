// Package notify sends attendee notifications. Delivery itself is outside this
// service; the bundled sender only records what would have been sent.
package notify

import (
	"context"
	"log/slog"
)

// Kinds of notification the service emits.
const (
	KindRegistrationReceived  = "registration.received"
	KindRegistrationConfirmed = "registration.confirmed"
	KindRegistrationWaitlist  = "registration.waitlisted"
	KindRegistrationCancelled = "registration.cancelled"
	KindCertificateIssued     = "certificate.issued"
	KindCertificateRevoked    = "certificate.revoked"
	KindEventCancelled        = "event.cancelled"
)

// Message is one outgoing notification.
type Message struct {
	Kind    string
	To      string
	Subject string
	Data    map[string]string
}

// Sender delivers messages. Implementations must honour ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes every message to a structured log.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a LogSender writing to logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "notification",
		"kind", msg.Kind, "to", msg.To, "subject", msg.Subject, "data", msg.Data)
	return nil
}
