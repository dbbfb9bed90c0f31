package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/llm-support-triage/internal/observability"
)

// ServiceOptions configures the triage service
type ServiceOptions struct {
	// Workers bounds ProcessBatch parallelism
	Workers int
	// EmailTimeout bounds the processing of a single email when positive
	EmailTimeout time.Duration
}

// TriageService runs emails through validation, classification, drafting and dispatch
type TriageService struct {
	classifier *Classifier
	generator  *ResponseGenerator
	dispatcher *Dispatcher
	opts       ServiceOptions
	logger     *zap.Logger
}

// NewTriageService creates a new triage service
func NewTriageService(
	classifier *Classifier,
	generator *ResponseGenerator,
	dispatcher *Dispatcher,
	opts ServiceOptions,
	logger *zap.Logger,
) *TriageService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &TriageService{
		classifier: classifier,
		generator:  generator,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
	}
}

type panicError struct {
	value interface{}
}

func (p panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

// Process handles one raw email and always returns a result for it
func (s *TriageService) Process(ctx context.Context, raw RawEmail) (result PipelineResult) {
	start := time.Now()
	result = PipelineResult{EmailID: raw.ID()}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic while processing email",
				zap.String("email_id", result.EmailID),
				zap.Any("panic", r))
			result.Success = false
			result.ResponseSent = nil
			msg := fmt.Sprintf("internal error: %v", panicError{r})
			result.Error = &msg
			observability.RecordEmail("error", time.Since(start))
		}
	}()

	// Step 1: validate before any model call
	email, err := Validate(raw)
	if err != nil {
		s.logger.Error("Invalid email data",
			zap.String("email_id", result.EmailID),
			zap.Error(err))
		msg := err.Error()
		result.Error = &msg
		observability.RecordEmail("invalid", time.Since(start))
		return result
	}
	result.EmailID = email.ID

	if s.opts.EmailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.EmailTimeout)
		defer cancel()
	}

	s.logger.Info("Processing email",
		zap.String("email_id", email.ID),
		zap.String("sender", email.Sender))

	// Step 2: classify
	outcome := s.classifier.Classify(ctx, email)
	category := outcome.Category
	confidence := outcome.Confidence
	result.Classification = &category
	result.Confidence = &confidence

	// Step 3: draft a reply
	response := s.generator.Generate(ctx, email, outcome.Category)

	// Step 4: dispatch
	result = s.dispatcher.Dispatch(ctx, email, outcome, response)

	observability.RecordEmail("success", time.Since(start))
	s.logger.Info("Email processed",
		zap.String("email_id", email.ID),
		zap.String("category", string(outcome.Category)),
		zap.Int("confidence", outcome.Confidence),
		zap.Duration("duration", time.Since(start)))

	return result
}

// ProcessBatch processes emails with bounded parallelism.
// Results are returned in input order, one per email.
func (s *TriageService) ProcessBatch(ctx context.Context, emails []RawEmail) []PipelineResult {
	results := make([]PipelineResult, len(emails))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for i, raw := range emails {
		i, raw := i, raw
		g.Go(func() error {
			results[i] = s.Process(ctx, raw)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
