package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/observability"
)

// ContextBlock is the retrieved knowledge and sender history for one email
type ContextBlock struct {
	// Snippets are knowledge base passages in rank order
	Snippets []string
	// History is the sender's recent interactions, oldest first
	History []HistoryEntry
	// Profile is set when the sender has a configured tone profile
	Profile *SenderProfile
}

// Empty reports whether the block has nothing to add to a prompt
func (b ContextBlock) Empty() bool {
	return len(b.Snippets) == 0 && len(b.History) == 0
}

// Render formats the block for inclusion in a prompt. Empty sections are omitted.
func (b ContextBlock) Render() string {
	var sb strings.Builder

	if len(b.Snippets) > 0 {
		sb.WriteString("Context:\n")
		sb.WriteString(strings.Join(b.Snippets, "\n\n"))
		sb.WriteString("\n\n")
	}

	if len(b.History) > 0 {
		sb.WriteString("Previous interactions with this sender:\n")
		for i, h := range b.History {
			fmt.Fprintf(&sb, "%d. Subject: %s\n   Body: %s\n", i+1, h.Subject, h.Body)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// AssemblerOptions configures the context assembler
type AssemblerOptions struct {
	TopK         int
	HistoryLimit int
}

// ContextAssembler gathers knowledge snippets and sender history for the generator.
// It only reads; it never writes to the retriever or the history store.
type ContextAssembler struct {
	retriever Retriever
	history   HistoryStore
	profiles  ProfileDirectory
	opts      AssemblerOptions
	logger    *zap.Logger
}

// NewContextAssembler creates a new context assembler. retriever and profiles may be nil.
func NewContextAssembler(retriever Retriever, history HistoryStore, profiles ProfileDirectory, opts AssemblerOptions, logger *zap.Logger) *ContextAssembler {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 3
	}
	return &ContextAssembler{
		retriever: retriever,
		history:   history,
		profiles:  profiles,
		opts:      opts,
		logger:    logger,
	}
}

// Assemble returns the context block for an email. Lookup failures omit that section.
func (a *ContextAssembler) Assemble(ctx context.Context, email EmailRecord) ContextBlock {
	var block ContextBlock

	if a.retriever != nil {
		query := email.Subject + "\n" + email.Body
		snippets, err := a.retriever.TopK(ctx, query, a.opts.TopK)
		if err != nil {
			a.logger.Warn("Knowledge retrieval failed, continuing without context",
				zap.String("email_id", email.ID),
				zap.Error(err))
		} else {
			block.Snippets = nonBlank(snippets, a.opts.TopK)
		}
	}

	if a.history != nil && email.HasKnownSender() {
		entries, err := a.history.Fetch(ctx, email.Sender, a.opts.HistoryLimit)
		if err != nil {
			observability.RecordHistoryError("fetch")
			a.logger.Warn("History lookup failed, continuing without history",
				zap.String("email_id", email.ID),
				zap.String("sender", email.Sender),
				zap.Error(err))
		} else {
			if len(entries) > a.opts.HistoryLimit {
				entries = entries[len(entries)-a.opts.HistoryLimit:]
			}
			block.History = entries
		}
	}

	if a.profiles != nil && email.HasKnownSender() {
		p := a.profiles.Profile(email.Sender)
		block.Profile = &p
	}

	a.logger.Debug("Context assembled",
		zap.String("email_id", email.ID),
		zap.Int("snippets", len(block.Snippets)),
		zap.Int("history_entries", len(block.History)))

	return block
}

func nonBlank(in []string, limit int) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
