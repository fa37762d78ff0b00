package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"time"
)

// Client sends email over SMTP.
type Client struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
	secure   bool
	now      func() time.Time
}

// NewClient creates a new SMTP email client. With secure set the connection
// uses implicit TLS, otherwise STARTTLS is used when the server offers it.
func NewClient(host, port, username, password, from, fromName string, secure bool) *Client {
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		secure:   secure,
		now:      time.Now,
	}
}

func (c *Client) sender() string {
	from := c.from
	if from == "" {
		from = "noreply@leap.local"
	}
	return (&mail.Address{Name: c.fromName, Address: from}).String()
}

// Send delivers msg and returns the Message-ID it was sent with.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	from := c.sender()
	messageID := newMessageID(from)
	body, err := buildMIME(from, messageID, msg, c.now())
	if err != nil {
		return "", fmt.Errorf("build message: %w", err)
	}

	if err := c.deliver(ctx, msg.To, body); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	return messageID, nil
}

func (c *Client) deliver(ctx context.Context, to string, body []byte) error {
	addr := net.JoinHostPort(c.host, c.port)

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	var conn net.Conn
	var err error
	if c.secure {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: c.host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if !c.secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: c.host}); err != nil {
				return err
			}
		}
	}
	if c.username != "" {
		if err := client.Auth(smtp.PlainAuth("", c.username, c.password, c.host)); err != nil {
			return err
		}
	}

	envelopeFrom := c.from
	if envelopeFrom == "" {
		envelopeFrom = "noreply@leap.local"
	}
	if err := client.Mail(envelopeFrom); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
