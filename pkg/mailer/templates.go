package mailer

import "fmt"

// Template names understood by Render. Callers key notifications by these.
const (
	TemplateWelcome          = "welcome"
	TemplatePasswordReset    = "password_reset"
	TemplatePaymentSubmitted = "payment_submitted"
	TemplatePaymentApproved  = "payment_approved"
	TemplatePaymentRejected  = "payment_rejected"
)

// Rendered holds the subject and bodies produced for a message.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Render resolves a message's template into subject and bodies.
func Render(msg Message) (Rendered, error) {
	name := msg.Data["name"]
	if name == "" {
		name = msg.ToName
	}
	course := msg.Data["course"]

	switch msg.Template {
	case TemplateWelcome:
		role := msg.Data["role"]
		if role == "" {
			role = "student"
		}
		text := fmt.Sprintf(
			"Hello %s,\n\nWelcome to Techylyn Academy! Your account has been created "+
				"and you have joined as a %s.\n\n"+
				"We believe in learning by doing. Browse the course catalog, pick a "+
				"course and start building.\n\n"+
				"The Techylyn Academy Team", name, role)
		return Rendered{
			Subject: fmt.Sprintf("Welcome to Techylyn Academy, %s!", name),
			Text:    text,
			HTML:    htmlBody(text),
		}, nil
	case TemplatePasswordReset:
		link := msg.Data["reset_link"]
		text := fmt.Sprintf(
			"Hello %s,\n\nWe received a request to reset your Techylyn Academy account "+
				"password. Open the link below to choose a new password:\n\n%s\n\n"+
				"The link expires in 1 hour. If you did not request this, ignore this email.\n\n"+
				"The Techylyn Academy Support Team", name, link)
		return Rendered{
			Subject: "Your Techylyn Academy password reset request",
			Text:    text,
			HTML:    htmlBody(text),
		}, nil
	case TemplatePaymentSubmitted:
		text := fmt.Sprintf(
			"Hello %s,\n\nWe received your bank transfer details for %s. "+
				"Our team will verify the payment and confirm your enrollment shortly.\n\n"+
				"The Techylyn Academy Team", name, course)
		return Rendered{
			Subject: fmt.Sprintf("Payment received - %s enrollment pending verification", course),
			Text:    text,
			HTML:    htmlBody(text),
		}, nil
	case TemplatePaymentApproved:
		text := fmt.Sprintf(
			"Hello %s,\n\nYour payment for %s has been approved and verified. "+
				"You now have full access to all course materials.\n\n"+
				"Happy learning!\nThe Techylyn Academy Team", name, course)
		return Rendered{
			Subject: fmt.Sprintf("Payment approved - access your %s course", course),
			Text:    text,
			HTML:    htmlBody(text),
		}, nil
	case TemplatePaymentRejected:
		support := msg.Data["support"]
		if support == "" {
			support = "support@techylynacademy.com"
		}
		text := fmt.Sprintf(
			"Hello %s,\n\nWe were unable to verify your payment for %s. "+
				"Please contact %s with your payment reference and transaction details.\n\n"+
				"The Techylyn Academy Support Team", name, course, support)
		return Rendered{
			Subject: fmt.Sprintf("Payment issue - %s enrollment", course),
			Text:    text,
			HTML:    htmlBody(text),
		}, nil
	default:
		return Rendered{}, fmt.Errorf("unknown mail template %q", msg.Template)
	}
}

func htmlBody(text string) string {
	return fmt.Sprintf("<div style=\"font-family: Arial, sans-serif; white-space: pre-line;\">%s</div>", text)
}
