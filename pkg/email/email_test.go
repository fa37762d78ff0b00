package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage(t *testing.T) Message {
	t.Helper()
	msg, err := CertificateMessage(CertificateDetails{
		CertificateID: "cert-1",
		UserName:      "Ada <Lovelace>",
		UserEmail:     "ada@example.com",
		CourseName:    "Go: Basics",
		Issued:        time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		PDF:           []byte("%PDF-1.4 fake"),
	})
	require.NoError(t, err)
	return msg
}

func TestCertificateMessage(t *testing.T) {
	msg := sampleMessage(t)

	assert.Equal(t, "ada@example.com", msg.To)
	assert.Contains(t, msg.Subject, `"Go: Basics"`)
	assert.Contains(t, msg.HTML, "Ada &lt;Lovelace&gt;")
	assert.Contains(t, msg.HTML, "March 4, 2026")
	assert.Contains(t, msg.Text, "cert-1")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "LEAP_Certificate_Go__Basics.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Message{HTML: "x"}.Validate(), ErrNoRecipient)
	assert.ErrorIs(t, Message{To: "not an address", HTML: "x"}.Validate(), ErrInvalidRecipient)
	assert.ErrorIs(t, Message{To: "a@b.c"}.Validate(), ErrEmptyMessage)
	assert.NoError(t, Message{To: "a@b.c", Text: "hi"}.Validate())
}

func readMIME(t *testing.T, raw []byte) (*mail.Message, map[string][]byte) {
	t.Helper()
	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	parts := map[string][]byte{}
	reader := multipart.NewReader(parsed.Body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(part)
		require.NoError(t, err)
		if name := part.FileName(); name != "" {
			decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(body), "\r\n", ""))
			require.NoError(t, err)
			parts[name] = decoded
			continue
		}
		parts[part.Header.Get("Content-Type")] = body
	}
	return parsed, parts
}

func TestBuildMIME(t *testing.T) {
	msg := sampleMessage(t)
	raw, err := buildMIME(`"LEAP" <certs@leap.dev>`, "<id@leap.dev>", msg, time.Unix(0, 0))
	require.NoError(t, err)

	parsed, parts := readMIME(t, raw)
	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, msg.Subject, subject)
	assert.Equal(t, "<id@leap.dev>", parsed.Header.Get("Message-ID"))

	assert.Equal(t, []byte("%PDF-1.4 fake"), parts["LEAP_Certificate_Go__Basics.pdf"])
	var alternative bool
	for contentType := range parts {
		if strings.HasPrefix(contentType, "multipart/alternative") {
			alternative = true
		}
	}
	assert.True(t, alternative)
}

func TestNewMessageID(t *testing.T) {
	assert.True(t, strings.HasSuffix(newMessageID(`"LEAP" <certs@leap.dev>`), "@leap.dev>"))
	assert.True(t, strings.HasSuffix(newMessageID("garbage"), "@leap.local>"))
}

func fakeSMTP(t *testing.T) (string, string, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				_ = tp.PrintfLine("250 localhost")
			case strings.HasPrefix(cmd, "MAIL FROM"), strings.HasPrefix(cmd, "RCPT TO"):
				_ = tp.PrintfLine("250 OK")
			case cmd == "DATA":
				_ = tp.PrintfLine("354 go ahead")
				data, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				received <- data
				_ = tp.PrintfLine("250 queued")
			case cmd == "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 not implemented")
			}
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port, received
}

func TestClientSend(t *testing.T) {
	host, port, received := fakeSMTP(t)
	client := NewClient(host, port, "", "", "certs@leap.dev", "LEAP", false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, err := client.Send(ctx, sampleMessage(t))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@leap.dev>"))

	select {
	case data := <-received:
		parsed, parts := readMIME(t, data)
		assert.Equal(t, id, parsed.Header.Get("Message-ID"))
		assert.Contains(t, parsed.Header.Get("To"), "ada@example.com")
		assert.NotEmpty(t, parts["LEAP_Certificate_Go__Basics.pdf"])
	case <-time.After(5 * time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestClientSendRejectsInvalidMessage(t *testing.T) {
	client := NewClient("127.0.0.1", "1", "", "", "", "", false)
	_, err := client.Send(context.Background(), Message{Text: "hi"})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestSendGridSend(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("X-Message-Id", "sg-123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg, err := NewSendGrid(SendGridConfig{APIKey: "sg-key", Host: srv.URL, FromEmail: "certs@leap.dev", FromName: "LEAP"})
	require.NoError(t, err)

	id, err := sg.Send(context.Background(), sampleMessage(t))
	require.NoError(t, err)
	assert.Equal(t, "sg-123", id)

	attachments, ok := body["attachments"].([]interface{})
	require.True(t, ok)
	require.Len(t, attachments, 1)
	first := attachments[0].(map[string]interface{})
	assert.Equal(t, "LEAP_Certificate_Go__Basics.pdf", first["filename"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake")), first["content"])
}

func TestSendGridRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	sg, err := NewSendGrid(SendGridConfig{APIKey: "nope", Host: srv.URL})
	require.NoError(t, err)
	_, err = sg.Send(context.Background(), sampleMessage(t))
	assert.ErrorIs(t, err, ErrRejected)

	_, err = NewSendGrid(SendGridConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSendGridHonoursContext(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg, err := NewSendGrid(SendGridConfig{APIKey: "sg-key", Host: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sg.Send(ctx, sampleMessage(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits)
}
