package core

import (
	"context"
)

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends one chat request and returns the model's text
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// Completer is the retrying completion capability used by the classifier and generator
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error)
}

// Retriever returns knowledge base snippets ranked by relevance to a query
type Retriever interface {
	TopK(ctx context.Context, query string, k int) ([]string, error)
}

// HistoryStore is a per-sender append-only log of past interactions
type HistoryStore interface {
	// Append adds an entry to the end of the sender's history
	Append(ctx context.Context, sender string, entry HistoryEntry) error

	// Fetch returns up to limit most recent entries, oldest first
	Fetch(ctx context.Context, sender string, limit int) ([]HistoryEntry, error)
}

// ProfileDirectory looks up tone hints for a sender
type ProfileDirectory interface {
	Profile(sender string) SenderProfile
}

// TicketService opens tickets in the downstream ticketing system
type TicketService interface {
	CreateUrgentTicket(ctx context.Context, email EmailRecord, category Category) error
	CreateSupportTicket(ctx context.Context, email EmailRecord) error
}

// FeedbackLog records customer feedback
type FeedbackLog interface {
	LogFeedback(ctx context.Context, email EmailRecord) error
}

// ResponseSender delivers drafted replies to the customer
type ResponseSender interface {
	SendComplaintResponse(ctx context.Context, email EmailRecord, response string) error
	SendStandardResponse(ctx context.Context, email EmailRecord, response string) error
}
