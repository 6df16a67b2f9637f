package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Sendgrid delivers mail through the SendGrid v3 API.
type Sendgrid struct {
	key  string
	from *sgmail.Email
}

var _ Mailer = (*Sendgrid)(nil)

// NewSendgrid builds the SendGrid mailer.
func NewSendgrid(key, fromName, fromEmail string) *Sendgrid {
	return &Sendgrid{
		key:  key,
		from: sgmail.NewEmail(fromName, fromEmail),
	}
}

// Send renders and delivers a single message.
func (m *Sendgrid) Send(ctx context.Context, msg Message) error {
	rendered, err := Render(msg)
	if err != nil {
		return err
	}

	p := sgmail.NewPersonalization()
	p.Subject = rendered.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(
		sgmail.NewContent("text/plain", rendered.Text),
		sgmail.NewContent("text/html", rendered.HTML),
	)

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(v3)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
