package downstream

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/core"
)

// SMTPSenderOptions configures the outbound relay
type SMTPSenderOptions struct {
	Address  string
	Helo     string
	From     string
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPSender delivers replies to the customer through an SMTP relay
type SMTPSender struct {
	opts   SMTPSenderOptions
	logger *zap.Logger
	now    func() time.Time
}

// NewSMTPSender creates a relay-backed ResponseSender
func NewSMTPSender(opts SMTPSenderOptions, logger *zap.Logger) *SMTPSender {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Helo == "" {
		opts.Helo = "localhost"
	}
	return &SMTPSender{
		opts:   opts,
		logger: logger.Named("smtp_sender"),
		now:    time.Now,
	}
}

// SendComplaintResponse sends a high-priority reply
func (s *SMTPSender) SendComplaintResponse(ctx context.Context, email core.EmailRecord, response string) error {
	return s.send(ctx, email, response, true)
}

// SendStandardResponse sends a normal reply
func (s *SMTPSender) SendStandardResponse(ctx context.Context, email core.EmailRecord, response string) error {
	return s.send(ctx, email, response, false)
}

func (s *SMTPSender) send(ctx context.Context, email core.EmailRecord, response string, urgent bool) error {
	if !email.HasKnownSender() {
		s.logger.Warn("No sender address, reply not sent", zap.String("email_id", email.ID))
		return nil
	}

	msg, messageID := s.compose(email, response, urgent)
	if err := s.deliver(ctx, email.Sender, msg); err != nil {
		return err
	}

	s.logger.Info("Reply sent",
		zap.String("email_id", email.ID),
		zap.String("sender", email.Sender),
		zap.String("message_id", messageID),
		zap.Bool("urgent", urgent))
	return nil
}

// compose builds the RFC 5322 reply
func (s *SMTPSender) compose(email core.EmailRecord, response string, urgent bool) ([]byte, string) {
	domain := "localhost"
	if at := strings.LastIndex(s.opts.From, "@"); at >= 0 {
		domain = s.opts.From[at+1:]
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)

	subject := email.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.opts.From)
	fmt.Fprintf(&b, "To: %s\r\n", email.Sender)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&b, "X-Triage-Email-ID: %s\r\n", email.ID)
	if urgent {
		b.WriteString("X-Priority: 1\r\n")
		b.WriteString("Importance: high\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(response, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes(), messageID
}

func (s *SMTPSender) deliver(ctx context.Context, rcpt string, msg []byte) error {
	dialer := net.Dialer{Timeout: s.opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP relay: %w", err)
	}

	deadline := time.Now().Add(s.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(s.opts.Helo); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		host, _, _ := net.SplitHostPort(s.opts.Address)
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if s.opts.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.opts.Username, s.opts.Password)); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if err := c.Mail(s.opts.From, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(rcpt, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// The message has already been accepted
		s.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}
