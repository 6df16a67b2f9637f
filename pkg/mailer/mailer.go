package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Message is a template-keyed outbound email.
type Message struct {
	Template string
	ToName   string
	ToEmail  string
	Data     map[string]string
}

// Mailer delivers a single message. Implementations must be safe for
// concurrent use; callers treat delivery as best-effort.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Console logs rendered messages instead of delivering them. Used in
// development and as the fallback when no provider is configured.
type Console struct {
	logger *zap.Logger
}

// NewConsole builds the console mailer.
func NewConsole(logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{logger: logger}
}

// Send renders the template and writes it to the log.
func (m *Console) Send(_ context.Context, msg Message) error {
	rendered, err := Render(msg)
	if err != nil {
		return err
	}
	m.logger.Sugar().Infow("mail (console)",
		"template", msg.Template,
		"to", msg.ToEmail,
		"subject", rendered.Subject,
		"body", rendered.Text,
	)
	return nil
}
