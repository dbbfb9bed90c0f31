package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/observability"
)

// Handler names used in logs and metrics
const (
	HandlerUrgentTicket  = "urgent_ticket"
	HandlerSupportTicket = "support_ticket"
	HandlerFeedbackLog   = "feedback_log"
	HandlerComplaintSend = "complaint_send"
	HandlerStandardSend  = "standard_send"
)

// Dispatcher routes a classified email to its downstream handlers
type Dispatcher struct {
	tickets  TicketService
	feedback FeedbackLog
	sender   ResponseSender
	logger   *zap.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(tickets TicketService, feedback FeedbackLog, sender ResponseSender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		tickets:  tickets,
		feedback: feedback,
		sender:   sender,
		logger:   logger,
	}
}

// Dispatch invokes each handler for the category exactly once and builds the result.
// Handler failures are logged and never change the result's success.
func (d *Dispatcher) Dispatch(ctx context.Context, email EmailRecord, outcome ClassificationOutcome, response string) PipelineResult {
	switch outcome.Category {
	case CategoryComplaint:
		d.invoke(email, HandlerUrgentTicket, func() error {
			return d.tickets.CreateUrgentTicket(ctx, email, outcome.Category)
		})
		d.invoke(email, HandlerComplaintSend, func() error {
			return d.sender.SendComplaintResponse(ctx, email, response)
		})
	case CategorySupportRequest:
		d.invoke(email, HandlerSupportTicket, func() error {
			return d.tickets.CreateSupportTicket(ctx, email)
		})
		d.standardSend(ctx, email, response)
	case CategoryFeedback:
		d.invoke(email, HandlerFeedbackLog, func() error {
			return d.feedback.LogFeedback(ctx, email)
		})
		d.standardSend(ctx, email, response)
	case CategoryInquiry, CategoryOther:
		d.standardSend(ctx, email, response)
	default:
		d.logger.Warn("No handler for category, sending standard response",
			zap.String("email_id", email.ID),
			zap.String("category", string(outcome.Category)))
		d.standardSend(ctx, email, response)
	}

	category := outcome.Category
	confidence := outcome.Confidence
	return PipelineResult{
		EmailID:        email.ID,
		Success:        true,
		Classification: &category,
		Confidence:     &confidence,
		ResponseSent:   &response,
	}
}

func (d *Dispatcher) standardSend(ctx context.Context, email EmailRecord, response string) {
	d.invoke(email, HandlerStandardSend, func() error {
		return d.sender.SendStandardResponse(ctx, email, response)
	})
}

// invoke runs one handler, absorbing errors and panics
func (d *Dispatcher) invoke(email EmailRecord, name string, fn func() error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &HandlerError{Handler: name, EmailID: email.ID, Err: panicError{r}}
			}
		}()
		if callErr := fn(); callErr != nil {
			err = &HandlerError{Handler: name, EmailID: email.ID, Err: callErr}
		}
	}()

	observability.RecordHandler(name, err)
	if err != nil {
		d.logger.Error("Downstream handler failed",
			zap.String("email_id", email.ID),
			zap.String("handler", name),
			zap.Error(err))
		return
	}
	d.logger.Debug("Downstream handler completed",
		zap.String("email_id", email.ID),
		zap.String("handler", name))
}
