package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/techlyn/academy-api/pkg/jobs"
	"github.com/techlyn/academy-api/pkg/mailer"
)

// NotificationService fans payment lifecycle emails out through the
// background queue. Delivery is best-effort: a full queue or a failing
// provider never surfaces to the request that triggered the mail.
type NotificationService struct {
	queue  *jobs.Queue
	mailer mailer.Mailer
	logger *zap.Logger
}

// NewNotificationService constructs the service and its queue.
func NewNotificationService(m mailer.Mailer, logger *zap.Logger, opts jobs.Options) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{mailer: m, logger: logger}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, opts)
	return s
}

// Start begins background delivery.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Welcome greets a freshly registered user.
func (s *NotificationService) Welcome(toName, toEmail, role string) {
	s.enqueue(mailer.Message{
		Template: mailer.TemplateWelcome,
		ToName:   toName,
		ToEmail:  toEmail,
		Data: map[string]string{
			"name": toName,
			"role": role,
		},
	})
}

// PasswordReset mails a reset link to the account owner.
func (s *NotificationService) PasswordReset(toName, toEmail, resetLink string) {
	s.enqueue(mailer.Message{
		Template: mailer.TemplatePasswordReset,
		ToName:   toName,
		ToEmail:  toEmail,
		Data: map[string]string{
			"name":       toName,
			"reset_link": resetLink,
		},
	})
}

// PaymentSubmitted notifies a student that their payment is under review.
func (s *NotificationService) PaymentSubmitted(toName, toEmail, courseTitle string, amount float64) {
	s.enqueue(mailer.Message{
		Template: mailer.TemplatePaymentSubmitted,
		ToName:   toName,
		ToEmail:  toEmail,
		Data: map[string]string{
			"name":   toName,
			"course": courseTitle,
			"amount": fmt.Sprintf("%.2f", amount),
		},
	})
}

// PaymentDecided notifies a student of the payment review outcome.
func (s *NotificationService) PaymentDecided(approved bool, toName, toEmail, courseTitle string) {
	template := mailer.TemplatePaymentRejected
	if approved {
		template = mailer.TemplatePaymentApproved
	}
	s.enqueue(mailer.Message{
		Template: template,
		ToName:   toName,
		ToEmail:  toEmail,
		Data: map[string]string{
			"name":   toName,
			"course": courseTitle,
		},
	})
}

func (s *NotificationService) enqueue(msg mailer.Message) {
	task := jobs.Task{
		ID:      uuid.NewString(),
		Kind:    msg.Template,
		Payload: msg,
	}
	if err := s.queue.Enqueue(task); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("template", msg.Template),
			zap.String("to", msg.ToEmail),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) deliver(ctx context.Context, task jobs.Task) error {
	msg, ok := task.Payload.(mailer.Message)
	if !ok {
		s.logger.Error("dropping notification with unexpected payload", zap.String("task_id", task.ID))
		return nil
	}
	return s.mailer.Send(ctx, msg)
}
