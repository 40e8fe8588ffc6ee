package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const DefaultSendGridHost = "https://api.sendgrid.com"

type SendGridMailer struct {
	apiKey string
	host   string
}

func NewSendGridMailer(apiKey, host string) *SendGridMailer {
	if host == "" {
		host = DefaultSendGridHost
	}
	return &SendGridMailer{apiKey: strings.TrimSpace(apiKey), host: strings.TrimRight(host, "/")}
}

func (c *SendGridMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if c.apiKey == "" {
		return errors.New("sendgrid api key is empty")
	}
	if from == "" || to == "" {
		return errors.New("mail from/to address is empty")
	}

	message := mail.NewSingleEmail(
		mail.NewEmail("BigMove", from),
		subject,
		mail.NewEmail("", to),
		body,
		fmt.Sprintf("<pre>%s</pre>", body),
	)

	req := sendgrid.GetRequest(c.apiKey, "/v3/mail/send", c.host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
	}

	slog.InfoContext(ctx, "mail sent", "status", resp.StatusCode, "to", to, "subject", subject)
	return nil
}
