package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("adapters/notify")

type EmailOptions struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	To       []string
	Subject  string
}

// EmailTransport envoie les notifications par SMTP. Toujours prêt.
type EmailTransport struct {
	opts  EmailOptions
	ready chan struct{}
	send  func(m *email.Email, addr string, auth smtp.Auth) error
}

func NewEmailTransport(opts EmailOptions) *EmailTransport {
	ready := make(chan struct{})
	close(ready)
	return &EmailTransport{
		opts:  opts,
		ready: ready,
		send:  func(m *email.Email, addr string, auth smtp.Auth) error { return m.Send(addr, auth) },
	}
}

func (t *EmailTransport) Name() string { return "email" }

func (t *EmailTransport) Ready() <-chan struct{} { return t.ready }

func (t *EmailTransport) Send(ctx context.Context, text string) error {
	_, span := tracer.Start(ctx, "EmailTransport.Send")
	defer span.End()

	mail := t.message(text)
	addr := fmt.Sprintf("%s:%d", t.opts.SMTPHost, t.opts.SMTPPort)

	var auth smtp.Auth
	if t.opts.Username != "" {
		auth = smtp.PlainAuth("", t.opts.Username, t.opts.Password, t.opts.SMTPHost)
	}
	err := t.send(mail, addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = t.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

func (t *EmailTransport) message(text string) *email.Email {
	mail := email.NewEmail()
	from := t.opts.From
	if from == "" {
		from = t.opts.Username
	}
	mail.From = fmt.Sprintf("Anime Watch <%s>", from)
	mail.To = append([]string(nil), t.opts.To...)
	mail.Subject = t.opts.Subject
	mail.Text = []byte(text)
	return mail
}
