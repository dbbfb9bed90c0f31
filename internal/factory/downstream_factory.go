package factory

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/adapters/downstream"
	"github.com/mikey/llm-support-triage/internal/adapters/profile"
	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/core"
)

// DownstreamFactory creates the services the dispatcher calls
type DownstreamFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDownstreamFactory creates a new downstream factory
func NewDownstreamFactory(cfg *config.Config, logger *zap.Logger) *DownstreamFactory {
	return &DownstreamFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDispatcher wires the configured reply sender and the log-backed ticketing into a dispatcher
func (f *DownstreamFactory) CreateDispatcher() (*core.Dispatcher, error) {
	logServices := downstream.NewLogServices(f.logger)

	var sender core.ResponseSender
	dc := f.cfg.GetDispatch()
	switch dc.Sender {
	case "log":
		sender = logServices
	case "smtp":
		if dc.SMTP.Address == "" || dc.SMTP.From == "" {
			return nil, fmt.Errorf("dispatch.smtp.address and dispatch.smtp.from are required for the smtp sender")
		}
		sender = downstream.NewSMTPSender(downstream.SMTPSenderOptions{
			Address:  dc.SMTP.Address,
			Helo:     dc.SMTP.Helo,
			From:     dc.SMTP.From,
			Username: dc.SMTP.Username,
			Password: dc.SMTP.Password,
			Timeout:  dc.SMTP.Timeout,
		}, f.logger)
	default:
		return nil, fmt.Errorf("unsupported response sender: %s", dc.Sender)
	}

	return core.NewDispatcher(logServices, logServices, sender, f.logger.Named("dispatcher")), nil
}

// CreateProfileDirectory builds the sender profile directory from configuration
func (f *DownstreamFactory) CreateProfileDirectory() (*profile.Directory, error) {
	configured, err := f.cfg.GetProfiles()
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]core.SenderProfile, len(configured))
	for _, p := range configured {
		profiles[strings.ToLower(p.Address)] = core.SenderProfile{
			Tone:        p.Tone,
			UrgencyBias: p.UrgencyBias,
		}
	}
	return profile.NewDirectory(profiles, f.logger), nil
}
