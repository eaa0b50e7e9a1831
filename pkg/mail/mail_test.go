package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type fakeSMTPClient struct {
	from   string
	rcpts  []string
	body   bytes.Buffer
	authed bool
	quit   bool
	rcptFn func(string) error
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func (c *fakeSMTPClient) Mail(from string) error { c.from = from; return nil }
func (c *fakeSMTPClient) Rcpt(to string) error {
	if c.rcptFn != nil {
		if err := c.rcptFn(to); err != nil {
			return err
		}
	}
	c.rcpts = append(c.rcpts, to)
	return nil
}
func (c *fakeSMTPClient) Data() (io.WriteCloser, error)   { return nopCloser{&c.body}, nil }
func (c *fakeSMTPClient) Quit() error                     { c.quit = true; return nil }
func (c *fakeSMTPClient) Close() error                    { return nil }
func (c *fakeSMTPClient) StartTLS(*tls.Config) error      { return nil }
func (c *fakeSMTPClient) Auth(smtp.Auth) error            { c.authed = true; return nil }
func (c *fakeSMTPClient) Extension(string) (bool, string) { return false, "" }

func newFakeSMTP(t *testing.T, client *fakeSMTPClient) *smtpMailer {
	t.Helper()

	m, err := NewSMTPMailer(SMTPSettings{Host: "smtp.test", Port: 587, From: "noreply@example.com", Username: "u", Password: "p"})
	require.NoError(t, err)

	sm := m.(*smtpMailer)
	sm.dialFn = func(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error) {
		a, b := net.Pipe()
		t.Cleanup(func() { _ = b.Close() })
		return a, client, nil
	}
	return sm
}

func TestSMTPMailerSend(t *testing.T) {
	client := &fakeSMTPClient{}
	m := newFakeSMTP(t, client)

	err := m.Send(context.Background(), Message{
		To:      []string{"alice@example.com", "alice@example.com", " "},
		Subject: "Hello\r\nBcc: evil@example.com",
		Body:    "<p>hi</p>",
		HTML:    true,
	})
	require.NoError(t, err)

	require.True(t, client.authed)
	require.True(t, client.quit)
	require.Equal(t, "noreply@example.com", client.from)
	require.Equal(t, []string{"alice@example.com"}, client.rcpts)

	raw := client.body.String()
	require.Contains(t, raw, "Content-Type: text/html; charset=UTF-8")
	require.Contains(t, raw, "Subject: Hello  Bcc: evil@example.com")
	require.NotContains(t, raw, "\r\nBcc:")
	require.True(t, strings.HasSuffix(raw, "\r\n\r\n<p>hi</p>"))
}

func TestSMTPMailerErrors(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Port: 25, From: "a@b.c"})
	require.Error(t, err)
	_, err = NewSMTPMailer(SMTPSettings{Host: "h", From: "a@b.c"})
	require.Error(t, err)
	_, err = NewSMTPMailer(SMTPSettings{Host: "h", Port: 25, From: "not an address"})
	require.Error(t, err)

	rejected := errors.New("550 mailbox unavailable")
	m := newFakeSMTP(t, &fakeSMTPClient{rcptFn: func(string) error { return rejected }})

	require.ErrorIs(t, m.Send(context.Background(), Message{}), ErrNoRecipient)
	require.Error(t, m.Send(context.Background(), Message{To: []string{"not an address"}}))
	require.ErrorIs(t, m.Send(context.Background(), Message{To: []string{"bob@example.com"}}), rejected)
}

func TestAMQPMailerSend(t *testing.T) {
	var got amqp.Publishing
	var gotKey string

	m := &AMQPMailer{cfg: AMQPSettings{Exchange: "auth.events", RoutingKey: "email.send", Timeout: time.Second}}
	m.publish = func(ctx context.Context, exchange, key string, msg amqp.Publishing) (bool, error) {
		got, gotKey = msg, key
		return true, nil
	}

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", Body: "b"}))
	require.Equal(t, "email.send", gotKey)
	require.Equal(t, "application/json", got.ContentType)
	require.Equal(t, amqp.Persistent, got.DeliveryMode)

	var payload emailMessage
	require.NoError(t, json.Unmarshal(got.Body, &payload))
	require.Equal(t, []string{"a@example.com"}, payload.To)
	require.Equal(t, "s", payload.Subject)

	m.publish = func(context.Context, string, string, amqp.Publishing) (bool, error) { return false, nil }
	require.ErrorIs(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}}), ErrNotConfirmed)

	boom := errors.New("channel closed")
	m.publish = func(context.Context, string, string, amqp.Publishing) (bool, error) { return false, boom }
	require.ErrorIs(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}}), boom)
}

func TestLogMailerOmitsBodyByDefault(t *testing.T) {
	var buf bytes.Buffer
	m := &LogMailer{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"alice@example.com"}, Subject: "s", Body: "secret-link"}))
	require.NotContains(t, buf.String(), "secret-link")
	require.NotContains(t, buf.String(), "alice@example.com")
	require.Contains(t, buf.String(), "a****@example.com")
}

func TestOutbox(t *testing.T) {
	var o Outbox
	ctx := context.Background()

	require.NoError(t, o.Send(ctx, Message{To: []string{"a@example.com"}, Subject: "1"}))
	require.NoError(t, o.Send(ctx, Message{To: []string{"a@example.com"}, Subject: "2"}))

	last, ok := o.Last("A@example.com")
	require.True(t, ok)
	require.Equal(t, "2", last.Subject)

	boom := errors.New("down")
	o.FailWith(boom)
	require.ErrorIs(t, o.Send(ctx, Message{To: []string{"a@example.com"}}), boom)
	require.Len(t, o.Messages(), 2)
}

func TestComposer(t *testing.T) {
	_, err := NewComposer("not a url")
	require.Error(t, err)

	c, err := NewComposer("https://app.example.com/")
	require.NoError(t, err)

	msg, err := c.PasswordResetEmail("a@example.com", "<Alice>", "tok_123", "10 minutes")
	require.NoError(t, err)
	require.True(t, msg.HTML)
	require.Equal(t, []string{"a@example.com"}, msg.To)
	require.Contains(t, msg.Body, `href="https://app.example.com/reset-password/tok_123"`)
	require.Contains(t, msg.Body, "&lt;Alice&gt;", "names are HTML escaped")

	msg, err = c.VerificationEmail("a@example.com", "Alice", "v-tok", "1 hour")
	require.NoError(t, err)
	require.Contains(t, msg.Body, `href="https://app.example.com/verify-email/v-tok"`)
}
