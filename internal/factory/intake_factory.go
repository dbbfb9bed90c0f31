package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/adapters/intake"
	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/core"
	"github.com/mikey/llm-support-triage/internal/domains"
	"github.com/mikey/llm-support-triage/internal/ports"
)

// IntakeFactory creates email intakes based on configuration
type IntakeFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.TriageService
}

// NewIntakeFactory creates a new intake factory
func NewIntakeFactory(cfg *config.Config, logger *zap.Logger, service *core.TriageService) *IntakeFactory {
	return &IntakeFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateEmailIntake creates an email intake based on the configuration
func (f *IntakeFactory) CreateEmailIntake() (ports.EmailIntake, error) {
	ic := f.cfg.GetIntake()

	switch ic.Type {
	case "smtp":
		return intake.NewSMTPIntake(
			f.service,
			domains.NewMatcher(ic.SMTP.AcceptedDomains, f.logger),
			intake.SMTPOptions{
				ListenAddress:   ic.SMTP.ListenAddress,
				Domain:          ic.SMTP.Domain,
				MaxMessageBytes: ic.SMTP.MaxMessageBytes,
				ShutdownTimeout: ic.SMTP.ShutdownTimeout,
			},
			f.logger,
		), nil
	case "imap":
		return intake.NewIMAPIntake(f.service, intake.IMAPOptions{
			Address:      ic.IMAP.Address,
			TLS:          ic.IMAP.TLS,
			Username:     ic.IMAP.Username,
			Password:     ic.IMAP.Password,
			Mailbox:      ic.IMAP.Mailbox,
			PollInterval: ic.IMAP.PollInterval,
		}, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported intake type: %s", ic.Type)
	}
}
