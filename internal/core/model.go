package core

import (
	"time"
)

// UnknownSender is recorded as the sender of an email that arrived without one
const UnknownSender = "unknown@example.com"

// RawEmail is an untyped inbound email as decoded from JSON or built by an intake adapter
type RawEmail map[string]any

// ID returns the raw id field for logging, or "unknown" if it is not a string
func (r RawEmail) ID() string {
	if id, ok := r["id"].(string); ok && id != "" {
		return id
	}
	return "unknown"
}

// EmailRecord is a validated email. It is passed by value and never modified.
type EmailRecord struct {
	ID      string
	Subject string
	Body    string
	Sender  string
}

// HasKnownSender reports whether the email carried a sender address
func (e EmailRecord) HasKnownSender() bool {
	return e.Sender != UnknownSender
}

// GateReason records why a classification outcome has its category
type GateReason string

const (
	// GateAccepted means the model's category passed the confidence gate
	GateAccepted GateReason = "accepted"
	// GateLowConfidence means the category was forced to other because confidence was below the threshold
	GateLowConfidence GateReason = "low_confidence"
	// GateUnrecognized means the model's category was missing or not in the enumeration
	GateUnrecognized GateReason = "unrecognized_category"
	// GateGatewayFailure means the model could not be reached
	GateGatewayFailure GateReason = "gateway_failure"
)

// ClassificationOutcome is the result of classifying one email
type ClassificationOutcome struct {
	Category   Category
	Confidence int
	Reason     GateReason
}

// HistoryEntry is one past interaction with a sender
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Category  Category  `json:"category"`
	Response  string    `json:"response"`
}

// PipelineResult is the externally observable outcome for one email
type PipelineResult struct {
	EmailID        string    `json:"email_id" yaml:"email_id"`
	Success        bool      `json:"success" yaml:"success"`
	Classification *Category `json:"classification" yaml:"classification"`
	Confidence     *int      `json:"confidence" yaml:"confidence"`
	ResponseSent   *string   `json:"response_sent" yaml:"response_sent"`
	Error          *string   `json:"error" yaml:"error"`
}

// SenderProfile carries per-sender tone hints for drafting replies
type SenderProfile struct {
	Tone        string
	UrgencyBias string
}

// DefaultSenderProfile is used for senders without a configured profile
var DefaultSenderProfile = SenderProfile{Tone: "neutral", UrgencyBias: "unsure"}

// Message is a single chat message sent to a completion provider
type Message struct {
	Role    string
	Content string
}

// Message roles
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// CompletionRequest is one logical request to a completion provider
type CompletionRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Completion is the text returned by a completion provider plus usage accounting
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	ProcessingID     string
}

// TotalTokens returns prompt plus completion tokens
func (c *Completion) TotalTokens() int {
	return c.PromptTokens + c.CompletionTokens
}
