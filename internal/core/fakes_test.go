package core

import (
	"context"
	"errors"
	"sync"
)

// scriptedClient is an LLMClient that replays a fixed sequence of results.
// Once the script is exhausted the last step repeats.
type scriptedClient struct {
	mu       sync.Mutex
	steps    []scriptStep
	calls    int
	requests []CompletionRequest
}

type scriptStep struct {
	text string
	err  error
}

func newScriptedClient(steps ...scriptStep) *scriptedClient {
	return &scriptedClient{steps: steps}
}

func reply(text string) scriptStep {
	return scriptStep{text: text}
}

func fail(kind FailureKind) scriptStep {
	return scriptStep{err: NewProviderError("fake", kind, errors.New(kind.String()))}
}

func (c *scriptedClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	step := c.steps[len(c.steps)-1]
	if c.calls < len(c.steps) {
		step = c.steps[c.calls]
	}
	c.calls++
	c.requests = append(c.requests, req)

	if step.err != nil {
		return nil, step.err
	}
	return &Completion{Text: step.text, Model: "fake-model", PromptTokens: 10, CompletionTokens: 5}, nil
}

func (c *scriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *scriptedClient) LastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return ""
	}
	msgs := c.requests[len(c.requests)-1].Messages
	return msgs[len(msgs)-1].Content
}

// stubCompleter is a Completer returning canned text, or an error when err is set
type stubCompleter struct {
	mu           sync.Mutex
	text         string
	err          error
	calls        int
	prompts      []string
	temperatures []float32
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.prompts = append(s.prompts, prompt)
	s.temperatures = append(s.temperatures, temperature)
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *stubCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// memoryHistory is a minimal in-package HistoryStore
type memoryHistory struct {
	mu        sync.Mutex
	entries   map[string][]HistoryEntry
	appendErr error
	fetchErr  error
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{entries: make(map[string][]HistoryEntry)}
}

func (m *memoryHistory) Append(ctx context.Context, sender string, entry HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries[sender] = append(m.entries[sender], entry)
	return nil
}

func (m *memoryHistory) Fetch(ctx context.Context, sender string, limit int) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	all := m.entries[sender]
	if limit < len(all) {
		all = all[len(all)-limit:]
	}
	out := make([]HistoryEntry, len(all))
	copy(out, all)
	return out, nil
}

func (m *memoryHistory) count(sender string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[sender])
}

// stubRetriever returns fixed snippets
type stubRetriever struct {
	snippets []string
	err      error
	lastK    int
}

func (r *stubRetriever) TopK(ctx context.Context, query string, k int) ([]string, error) {
	r.lastK = k
	if r.err != nil {
		return nil, r.err
	}
	if k < len(r.snippets) {
		return r.snippets[:k], nil
	}
	return r.snippets, nil
}

// recordingHandlers implements every downstream handler port and records calls
type recordingHandlers struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (h *recordingHandlers) record(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, name)
	return h.err
}

func (h *recordingHandlers) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.calls))
	copy(out, h.calls)
	return out
}

func (h *recordingHandlers) CreateUrgentTicket(ctx context.Context, email EmailRecord, category Category) error {
	return h.record("urgent_ticket")
}

func (h *recordingHandlers) CreateSupportTicket(ctx context.Context, email EmailRecord) error {
	return h.record("support_ticket")
}

func (h *recordingHandlers) LogFeedback(ctx context.Context, email EmailRecord) error {
	return h.record("feedback_log")
}

func (h *recordingHandlers) SendComplaintResponse(ctx context.Context, email EmailRecord, response string) error {
	return h.record("complaint_send")
}

func (h *recordingHandlers) SendStandardResponse(ctx context.Context, email EmailRecord, response string) error {
	return h.record("standard_send")
}
