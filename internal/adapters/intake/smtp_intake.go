package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/core"
	"github.com/mikey/llm-support-triage/internal/domains"
)

// SMTPOptions configures the inbound SMTP server
type SMTPOptions struct {
	ListenAddress   string
	Domain          string
	MaxMessageBytes int64
	// ShutdownTimeout bounds how long Stop waits for open sessions
	ShutdownTimeout time.Duration
}

// SMTPIntake accepts support mail over SMTP and triages each message on receipt
type SMTPIntake struct {
	processor Processor
	accepted  *domains.Matcher
	opts      SMTPOptions
	logger    *zap.Logger

	mu       sync.Mutex
	server   *smtp.Server
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	stopping atomic.Bool
	inflight sync.WaitGroup
}

// NewSMTPIntake creates an SMTP intake. With an empty matcher every recipient is accepted.
func NewSMTPIntake(processor Processor, accepted *domains.Matcher, opts SMTPOptions, logger *zap.Logger) *SMTPIntake {
	if opts.Domain == "" {
		opts.Domain = "localhost"
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 10 * 1024 * 1024
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	return &SMTPIntake{
		processor: processor,
		accepted:  accepted,
		opts:      opts,
		logger:    logger.Named("smtp_intake"),
	}
}

// Start listens on the configured address and serves in the background
func (i *SMTPIntake) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.server != nil {
		return errors.New("SMTP intake already started")
	}

	ln, err := net.Listen("tcp", i.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", i.opts.ListenAddress, err)
	}

	i.ctx, i.cancel = context.WithCancel(ctx)
	i.server = smtp.NewServer(&smtpBackend{intake: i})
	i.server.Domain = i.opts.Domain
	i.server.ReadTimeout = 30 * time.Second
	i.server.WriteTimeout = 30 * time.Second
	i.server.MaxMessageBytes = i.opts.MaxMessageBytes
	i.server.MaxRecipients = 50
	i.listener = ln
	i.done = make(chan struct{})
	i.stopping.Store(false)

	i.logger.Info("SMTP intake starting", zap.String("address", ln.Addr().String()))

	server, done := i.server, i.done
	go func() {
		defer close(done)
		if err := server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			i.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the listening address, or "" before Start
func (i *SMTPIntake) Addr() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.listener == nil {
		return ""
	}
	return i.listener.Addr().String()
}

// Stop stops accepting mail and waits for open sessions to finish, up to the
// shutdown timeout. Messages already in DATA are triaged to completion.
func (i *SMTPIntake) Stop() error {
	i.mu.Lock()
	server, done, cancel := i.server, i.done, i.cancel
	i.server, i.listener = nil, nil
	i.mu.Unlock()

	if server == nil {
		return nil
	}
	i.stopping.Store(true)

	ctx, cancelShutdown := context.WithTimeout(context.Background(), i.opts.ShutdownTimeout)
	defer cancelShutdown()

	err := server.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		i.logger.Warn("SMTP sessions still open after shutdown timeout",
			zap.Duration("timeout", i.opts.ShutdownTimeout))
		err = nil
	}
	<-done
	i.inflight.Wait()
	cancel()
	return err
}

func (i *SMTPIntake) handle(envelopeFrom string, data []byte) error {
	i.inflight.Add(1)
	defer i.inflight.Done()

	raw, err := ParseMessage(bytes.NewReader(data), uuid.NewString())
	if err != nil {
		i.logger.Warn("Rejecting unparsable message", zap.Error(err))
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Message could not be parsed",
		}
	}
	if _, ok := raw["from"]; !ok && envelopeFrom != "" {
		raw["from"] = envelopeFrom
	}

	// The message has been received; finish it even if shutdown has begun
	result := i.processor.Process(context.WithoutCancel(i.ctx), raw)
	logResult(i.logger, result)
	return nil
}

// logResult logs a pipeline outcome. The message stays accepted either way.
func logResult(logger *zap.Logger, result core.PipelineResult) {
	fields := []zap.Field{
		zap.String("email_id", result.EmailID),
		zap.Bool("success", result.Success),
	}
	if result.Classification != nil {
		fields = append(fields, zap.String("category", string(*result.Classification)))
	}
	if result.Error != nil {
		fields = append(fields, zap.String("error", *result.Error))
		logger.Warn("Email not triaged", fields...)
		return
	}
	logger.Info("Email triaged", fields...)
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	intake *SMTPIntake
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{intake: b.intake}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	intake     *SMTPIntake
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	if s.intake.stopping.Load() {
		return &smtp.SMTPError{
			Code:         421,
			EnhancedCode: smtp.EnhancedCode{4, 3, 2},
			Message:      "Service shutting down, try again later",
		}
	}
	s.sender = from
	return nil
}

// Rcpt accepts recipients in the configured domains
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	if m := s.intake.accepted; m != nil && !m.Empty() && !m.Matches(to) {
		s.intake.logger.Debug("Rejecting recipient", zap.String("recipient", to))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Recipient domain not handled here",
		}
	}
	s.recipients = append(s.recipients, to)
	return nil
}

// Data reads the message and triages it
func (s *smtpSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		s.intake.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	return s.intake.handle(s.sender, data)
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
