package core

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/observability"
	"github.com/mikey/llm-support-triage/internal/utils"
)

// GeneratorOptions configures the response generator
type GeneratorOptions struct {
	Temperature float32
	MaxRetries  int
}

// ResponseGenerator drafts a reply for a classified email. It never returns an empty reply.
type ResponseGenerator struct {
	completer Completer
	assembler *ContextAssembler
	history   HistoryStore
	catalog   *CategoryCatalog
	fallbacks *FallbackPool
	text      *utils.TextProcessor
	opts      GeneratorOptions
	logger    *zap.Logger
	now       func() time.Time
}

// NewResponseGenerator creates a new response generator
func NewResponseGenerator(
	completer Completer,
	assembler *ContextAssembler,
	history HistoryStore,
	catalog *CategoryCatalog,
	fallbacks *FallbackPool,
	text *utils.TextProcessor,
	opts GeneratorOptions,
	logger *zap.Logger,
) *ResponseGenerator {
	if fallbacks == nil {
		fallbacks = NewFallbackPool()
	}
	return &ResponseGenerator{
		completer: completer,
		assembler: assembler,
		history:   history,
		catalog:   catalog,
		fallbacks: fallbacks,
		text:      text,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate drafts a reply. On success the interaction is appended to the sender's history.
func (g *ResponseGenerator) Generate(ctx context.Context, email EmailRecord, category Category) string {
	var block ContextBlock
	if g.assembler != nil {
		block = g.assembler.Assemble(ctx, email)
	}

	prompted := email
	if g.text != nil {
		prompted.Body = g.text.Prepare(email.Body)
	}
	prompt := BuildResponsePrompt(g.catalog, prompted, category, block)

	raw, err := g.completer.Complete(ctx, prompt, g.opts.Temperature, g.opts.MaxRetries)
	if err != nil {
		g.logger.Warn("Response generation failed, using fallback",
			zap.String("email_id", email.ID),
			zap.String("category", string(category)),
			zap.Error(err))
		return g.fallback(category)
	}

	draft, err := ExtractDraft(raw)
	if err != nil {
		g.logger.Warn("Could not find drafted response, using fallback",
			zap.String("email_id", email.ID),
			zap.String("category", string(category)),
			zap.Error(err))
		return g.fallback(category)
	}

	g.remember(ctx, email, category, draft)
	return draft
}

func (g *ResponseGenerator) fallback(category Category) string {
	observability.RecordFallback(string(category))
	return g.fallbacks.Pick(category)
}

// remember appends the interaction to history; failures are logged only
func (g *ResponseGenerator) remember(ctx context.Context, email EmailRecord, category Category, draft string) {
	if g.history == nil || !email.HasKnownSender() {
		return
	}

	entry := HistoryEntry{
		Timestamp: g.now().UTC(),
		Subject:   email.Subject,
		Body:      email.Body,
		Category:  category,
		Response:  draft,
	}
	if err := g.history.Append(ctx, email.Sender, entry); err != nil {
		observability.RecordHistoryError("append")
		g.logger.Error("Failed to append history",
			zap.String("email_id", email.ID),
			zap.String("sender", email.Sender),
			zap.Error(err))
	}
}

// ExtractDraft returns the text after the Drafted Response: marker, or after
// Response: when the primary marker is absent. Empty drafts yield ErrParse.
func ExtractDraft(raw string) (string, error) {
	for _, marker := range []string{DraftedResponseMarker, ResponseMarker} {
		idx := strings.Index(raw, marker)
		if idx < 0 {
			continue
		}
		draft := strings.TrimSpace(raw[idx+len(marker):])
		if draft == "" {
			return "", ErrParse
		}
		return draft, nil
	}
	return "", ErrParse
}
