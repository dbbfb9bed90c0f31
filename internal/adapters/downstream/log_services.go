// Package downstream holds the side-effect services the dispatcher calls:
// ticketing, feedback logging and reply delivery.
package downstream

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/core"
)

const previewRunes = 100

// LogServices records every downstream action in the log instead of calling
// a real ticketing system. It satisfies TicketService, FeedbackLog and ResponseSender.
type LogServices struct {
	logger *zap.Logger
}

// NewLogServices creates log-backed downstream services
func NewLogServices(logger *zap.Logger) *LogServices {
	return &LogServices{logger: logger.Named("downstream")}
}

// CreateUrgentTicket logs an urgent ticket
func (s *LogServices) CreateUrgentTicket(ctx context.Context, email core.EmailRecord, category core.Category) error {
	s.logger.Info("Creating urgent ticket",
		zap.String("email_id", email.ID),
		zap.String("category", string(category)),
		zap.String("context", preview(email.Body)))
	return nil
}

// CreateSupportTicket logs a support ticket
func (s *LogServices) CreateSupportTicket(ctx context.Context, email core.EmailRecord) error {
	s.logger.Info("Creating support ticket",
		zap.String("email_id", email.ID),
		zap.String("context", preview(email.Body)))
	return nil
}

// LogFeedback logs customer feedback
func (s *LogServices) LogFeedback(ctx context.Context, email core.EmailRecord) error {
	s.logger.Info("Logging feedback",
		zap.String("email_id", email.ID),
		zap.String("feedback", preview(email.Body)))
	return nil
}

// SendComplaintResponse logs a complaint reply
func (s *LogServices) SendComplaintResponse(ctx context.Context, email core.EmailRecord, response string) error {
	s.logger.Info("Sending complaint response",
		zap.String("email_id", email.ID),
		zap.String("response", preview(response)))
	return nil
}

// SendStandardResponse logs a standard reply
func (s *LogServices) SendStandardResponse(ctx context.Context, email core.EmailRecord, response string) error {
	s.logger.Info("Sending standard response",
		zap.String("email_id", email.ID),
		zap.String("response", preview(response)))
	return nil
}

// preview returns the first previewRunes runes of s followed by "..."
func preview(s string) string {
	r := []rune(s)
	if len(r) > previewRunes {
		r = r[:previewRunes]
	}
	return string(r) + "..."
}
