// Package mail delivers contact form submissions through SendGrid.
package mail

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Kerhoff/chcemmat/internal/models"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

const contactTemplate = "contact.gohtml"

// Config holds the SendGrid credentials and addresses
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
	ToEmail   string
}

// Sender is the part of the SendGrid client the mailer uses
type Sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer renders and sends emails
type Mailer struct {
	cli  Sender
	from *mail.Email
	to   *mail.Email
	tmpl *template.Template
	now  func() time.Time
}

type contactData struct {
	Subject string
	Name    string
	Email   string
	Phone   string
	Message string
	SentAt  string
}

// New creates a mailer backed by the SendGrid API
func New(c *Config) (*Mailer, error) {
	return NewWithSender(c, sendgrid.NewSendClient(c.APIKey))
}

// NewWithSender creates a mailer that sends through cli
func NewWithSender(c *Config, cli Sender) (*Mailer, error) {
	if c.APIKey == "" || c.FromEmail == "" || c.ToEmail == "" {
		return nil, fmt.Errorf("incomplete mail config: api key, from and to addresses are required")
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/"+contactTemplate)
	if err != nil {
		return nil, fmt.Errorf("error parsing template '%s': %w", contactTemplate, err)
	}

	return &Mailer{
		cli:  cli,
		from: mail.NewEmail(c.FromName, c.FromEmail),
		to:   mail.NewEmail("", c.ToEmail),
		tmpl: tmpl,
		now:  time.Now,
	}, nil
}

// SendContact emails a contact form submission to the site owner with the
// sender as reply-to. It returns the SendGrid message id.
func (m *Mailer) SendContact(ctx context.Context, msg models.ContactMessage) (string, error) {
	data := contactData{
		Subject: fmt.Sprintf("Kontaktný formulár: %s", msg.Name),
		Name:    msg.Name,
		Email:   msg.Email,
		Message: msg.Message,
		SentAt:  m.now().Format("02.01.2006 15:04"),
	}
	if msg.Phone != nil {
		data.Phone = *msg.Phone
	}

	body := &strings.Builder{}
	if err := m.tmpl.Execute(body, data); err != nil {
		return "", fmt.Errorf("error executing template: %w", err)
	}

	email := mail.NewSingleEmail(m.from, data.Subject, m.to, plainText(data), body.String())
	email.SetReplyTo(mail.NewEmail(msg.Name, msg.Email))

	resp, err := m.cli.SendWithContext(ctx, email)
	if err != nil {
		return "", fmt.Errorf("error sending email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("sendgrid rejected email: status %d: %s", resp.StatusCode, resp.Body)
	}

	return messageID(resp), nil
}

func plainText(d contactData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meno: %s\nEmail: %s\n", d.Name, d.Email)
	if d.Phone != "" {
		fmt.Fprintf(&b, "Telefón: %s\n", d.Phone)
	}
	fmt.Fprintf(&b, "\n%s\n", d.Message)
	return b.String()
}

func messageID(resp *rest.Response) string {
	for k, v := range resp.Headers {
		if strings.EqualFold(k, "X-Message-Id") && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
