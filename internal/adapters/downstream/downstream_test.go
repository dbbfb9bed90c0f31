package downstream

import (
	"context"
	"errors"
	"io"
	"net"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mikey/llm-support-triage/internal/core"
)

type capturedMail struct {
	from string
	to   []string
	data string
	user string
}

type captureBackend struct {
	mu       sync.Mutex
	messages []capturedMail
}

func (b *captureBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &captureSession{backend: b}, nil
}

func (b *captureBackend) received() []capturedMail {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]capturedMail(nil), b.messages...)
}

type captureSession struct {
	backend *captureBackend
	current capturedMail
}

func (s *captureSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *captureSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != "relay" || password != "secret" {
			return errors.New("invalid credentials")
		}
		s.current.user = username
		return nil
	}), nil
}

func (s *captureSession) Mail(from string, _ *smtp.MailOptions) error {
	s.current.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.current.to = append(s.current.to, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = string(data)
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.current)
	s.backend.mu.Unlock()
	return nil
}

func (s *captureSession) Reset() {
	user := s.current.user
	s.current = capturedMail{user: user}
}

func (s *captureSession) Logout() error { return nil }

func startRelay(t *testing.T) (*captureBackend, string) {
	t.Helper()
	backend := &captureBackend{}
	srv := smtp.NewServer(backend)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return backend, ln.Addr().String()
}

var testEmail = core.EmailRecord{
	ID:      "e-42",
	Subject: "Order never arrived",
	Body:    "Where is my order?",
	Sender:  "alice@example.com",
}

func TestSMTPSenderStandardResponse(t *testing.T) {
	backend, addr := startRelay(t)
	sender := NewSMTPSender(SMTPSenderOptions{
		Address: addr,
		From:    "support@shop.example",
		Timeout: 5 * time.Second,
	}, zap.NewNop())

	require.NoError(t, sender.SendStandardResponse(context.Background(), testEmail, "Thanks for reaching out.\nWe'll check."))

	msgs := backend.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, "support@shop.example", msgs[0].from)
	assert.Equal(t, []string{"alice@example.com"}, msgs[0].to)

	parsed, err := mail.ReadMessage(strings.NewReader(msgs[0].data))
	require.NoError(t, err)
	assert.Equal(t, "Re: Order never arrived", parsed.Header.Get("Subject"))
	assert.Equal(t, "e-42", parsed.Header.Get("X-Triage-Email-ID"))
	assert.Empty(t, parsed.Header.Get("X-Priority"))
	assert.True(t, strings.HasSuffix(parsed.Header.Get("Message-ID"), "@shop.example>"))

	body, err := io.ReadAll(parsed.Body)
	require.NoError(t, err)
	assert.Equal(t, "Thanks for reaching out.\nWe'll check.\n", strings.ReplaceAll(string(body), "\r\n", "\n"))
}

func TestSMTPSenderComplaintResponseWithAuth(t *testing.T) {
	backend, addr := startRelay(t)
	sender := NewSMTPSender(SMTPSenderOptions{
		Address:  addr,
		From:     "support@shop.example",
		Username: "relay",
		Password: "secret",
	}, zap.NewNop())

	email := testEmail
	email.Subject = "Re: still waiting"
	require.NoError(t, sender.SendComplaintResponse(context.Background(), email, "We're sorry."))

	msgs := backend.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, "relay", msgs[0].user)

	parsed, err := mail.ReadMessage(strings.NewReader(msgs[0].data))
	require.NoError(t, err)
	assert.Equal(t, "Re: still waiting", parsed.Header.Get("Subject"))
	assert.Equal(t, "1", parsed.Header.Get("X-Priority"))
}

func TestSMTPSenderBadCredentials(t *testing.T) {
	backend, addr := startRelay(t)
	sender := NewSMTPSender(SMTPSenderOptions{
		Address:  addr,
		From:     "support@shop.example",
		Username: "relay",
		Password: "wrong",
	}, zap.NewNop())

	err := sender.SendStandardResponse(context.Background(), testEmail, "hi")
	assert.Error(t, err)
	assert.Empty(t, backend.received())
}

func TestSMTPSenderSkipsUnknownSender(t *testing.T) {
	backend, addr := startRelay(t)
	sender := NewSMTPSender(SMTPSenderOptions{Address: addr, From: "support@shop.example"}, zap.NewNop())

	email := testEmail
	email.Sender = core.UnknownSender
	require.NoError(t, sender.SendStandardResponse(context.Background(), email, "hi"))
	assert.Empty(t, backend.received())
}

func TestSMTPSenderUnreachableRelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	sender := NewSMTPSender(SMTPSenderOptions{Address: addr, From: "support@shop.example", Timeout: time.Second}, zap.NewNop())
	assert.Error(t, sender.SendStandardResponse(context.Background(), testEmail, "hi"))
}

func TestLogServices(t *testing.T) {
	obs, logs := observer.New(zap.InfoLevel)
	s := NewLogServices(zap.New(obs))
	ctx := context.Background()

	long := strings.Repeat("é", 150)
	email := testEmail
	email.Body = long

	require.NoError(t, s.CreateUrgentTicket(ctx, email, core.CategoryComplaint))
	require.NoError(t, s.CreateSupportTicket(ctx, email))
	require.NoError(t, s.LogFeedback(ctx, email))
	require.NoError(t, s.SendComplaintResponse(ctx, email, "sorry"))
	require.NoError(t, s.SendStandardResponse(ctx, email, "thanks"))

	entries := logs.All()
	require.Len(t, entries, 5)
	assert.Equal(t, "Creating urgent ticket", entries[0].Message)
	assert.Equal(t, strings.Repeat("é", 100)+"...", entries[0].ContextMap()["context"])
	assert.Equal(t, "complaint", entries[0].ContextMap()["category"])
	assert.Equal(t, "sorry...", entries[3].ContextMap()["response"])
}
