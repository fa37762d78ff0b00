package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridConfig configures the SendGrid provider.
type SendGridConfig struct {
	APIKey    string
	Host      string
	FromEmail string
	FromName  string
}

// SendGrid sends email through the SendGrid v3 API.
type SendGrid struct {
	key  string
	host string
	from *sgmail.Email
}

// NewSendGrid creates a SendGrid provider.
func NewSendGrid(cfg SendGridConfig) (*SendGrid, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		host = sendgridHost
	}
	fromEmail := cfg.FromEmail
	if fromEmail == "" {
		fromEmail = "noreply@leap.local"
	}
	return &SendGrid{
		key:  cfg.APIKey,
		host: host,
		from: sgmail.NewEmail(cfg.FromName, fromEmail),
	}, nil
}

func (s *SendGrid) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	if msg.Text != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	for _, a := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

// Send delivers msg and returns the X-Message-Id SendGrid assigned.
func (s *SendGrid) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := s.do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: status %d: %s", ErrRejected, res.StatusCode, strings.TrimSpace(res.Body))
	}

	for name, values := range res.Headers {
		if strings.EqualFold(name, "X-Message-Id") && len(values) > 0 {
			return values[0], nil
		}
	}
	return "", nil
}

// do is sendgrid.MakeRequest with the request bound to ctx.
func (s *SendGrid) do(ctx context.Context, req rest.Request) (*rest.Response, error) {
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, err
	}
	httpRes, err := sendgrid.DefaultClient.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(httpRes)
}
