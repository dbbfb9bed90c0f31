package core

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/observability"
	"github.com/mikey/llm-support-triage/internal/utils"
)

// DefaultConfidenceThreshold is the lowest confidence accepted without forcing other
const DefaultConfidenceThreshold = 3

// ClassifierOptions configures the classifier
type ClassifierOptions struct {
	Temperature float32
	MaxRetries  int
	Threshold   int
}

// Classifier assigns a category to an email. It never fails outward.
type Classifier struct {
	completer Completer
	catalog   *CategoryCatalog
	text      *utils.TextProcessor
	opts      ClassifierOptions
	logger    *zap.Logger
}

// NewClassifier creates a new classifier
func NewClassifier(completer Completer, catalog *CategoryCatalog, text *utils.TextProcessor, opts ClassifierOptions, logger *zap.Logger) *Classifier {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultConfidenceThreshold
	}
	return &Classifier{
		completer: completer,
		catalog:   catalog,
		text:      text,
		opts:      opts,
		logger:    logger,
	}
}

// Classify returns a category from the enumeration for the email
func (c *Classifier) Classify(ctx context.Context, email EmailRecord) ClassificationOutcome {
	body := email.Body
	if c.text != nil {
		body = c.text.Prepare(body)
	}
	prompt := BuildClassificationPrompt(c.catalog, email.Subject, body)

	raw, err := c.completer.Complete(ctx, prompt, c.opts.Temperature, c.opts.MaxRetries)
	if err != nil {
		c.logger.Error("Classification call failed, falling back to other",
			zap.String("email_id", email.ID),
			zap.Error(err))
		return c.record(email, ClassificationOutcome{Category: CategoryOther, Confidence: 0, Reason: GateGatewayFailure})
	}

	label, confidence, err := ParseClassification(raw)
	if err != nil {
		c.logger.Warn("Could not parse classification",
			zap.String("email_id", email.ID),
			zap.Error(err))
	}

	return c.record(email, GateClassification(label, confidence, c.opts.Threshold))
}

func (c *Classifier) record(email EmailRecord, outcome ClassificationOutcome) ClassificationOutcome {
	observability.RecordClassification(string(outcome.Category), string(outcome.Reason))

	fields := []zap.Field{
		zap.String("email_id", email.ID),
		zap.String("category", string(outcome.Category)),
		zap.Int("confidence", outcome.Confidence),
		zap.String("reason", string(outcome.Reason)),
	}
	if outcome.Reason == GateAccepted {
		c.logger.Info("Email classified", fields...)
	} else {
		c.logger.Warn("Low confidence or unknown category, using other", fields...)
	}
	return outcome
}

// ParseClassification extracts the Category: and Confidence: lines from model output.
// Labels match case-insensitively and the first occurrence of each wins.
// A non-numeric confidence parses as 0. ErrParse is returned when no category line exists.
func ParseClassification(raw string) (label string, confidence int, err error) {
	var seenCategory, seenConfidence bool

	for _, line := range strings.Split(raw, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))

		switch {
		case strings.HasPrefix(line, "category:") && !seenCategory:
			seenCategory = true
			label = strings.TrimSpace(strings.TrimPrefix(line, "category:"))
		case strings.HasPrefix(line, "confidence:") && !seenConfidence:
			seenConfidence = true
			n, convErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "confidence:")))
			if convErr == nil {
				confidence = n
			}
		}
	}

	if !seenCategory {
		return "", confidence, ErrParse
	}
	return label, confidence, nil
}

// GateClassification applies the confidence gate to a parsed label
func GateClassification(label string, confidence, threshold int) ClassificationOutcome {
	category, ok := ParseCategory(label)
	if !ok {
		return ClassificationOutcome{Category: CategoryOther, Confidence: confidence, Reason: GateUnrecognized}
	}
	if confidence < threshold {
		return ClassificationOutcome{Category: CategoryOther, Confidence: confidence, Reason: GateLowConfidence}
	}
	return ClassificationOutcome{Category: category, Confidence: confidence, Reason: GateAccepted}
}
