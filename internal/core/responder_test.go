package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGenerator(c Completer, history HistoryStore, pool *FallbackPool) *ResponseGenerator {
	assembler := NewContextAssembler(nil, history, nil, AssemblerOptions{}, zap.NewNop())
	g := NewResponseGenerator(c, assembler, history, NewCategoryCatalog(nil), pool, nil,
		GeneratorOptions{Temperature: 0.5, MaxRetries: 3}, zap.NewNop())
	g.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)) }
	return g
}

func TestExtractDraft(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "drafted response marker",
			raw:  "Reasoning:\n1. Summary: broken item\n\nDrafted Response:\n  Dear customer, sorry.  \n",
			want: "Dear customer, sorry.",
		},
		{
			name: "secondary marker",
			raw:  "Response: Thanks for writing in.",
			want: "Thanks for writing in.",
		},
		{
			name: "primary marker wins",
			raw:  "Response: old\nDrafted Response: new",
			want: "new",
		},
		{
			name:    "no marker",
			raw:     "Dear customer, sorry.",
			wantErr: true,
		},
		{
			name:    "empty after marker",
			raw:     "Drafted Response:   \n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractDraft(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateSuccessAppendsHistory(t *testing.T) {
	history := newMemoryHistory()
	stub := &stubCompleter{text: "Reasoning:\n1. Summary: x\n\nDrafted Response:\nWe will refund you."}
	g := newTestGenerator(stub, history, nil)

	got := g.Generate(context.Background(), testEmail, CategoryComplaint)
	assert.Equal(t, "We will refund you.", got)

	entries, err := history.Fetch(context.Background(), testEmail.Sender, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, HistoryEntry{
		Timestamp: time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC),
		Subject:   testEmail.Subject,
		Body:      testEmail.Body,
		Category:  CategoryComplaint,
		Response:  "We will refund you.",
	}, entries[0])

	require.Len(t, stub.temperatures, 1)
	assert.Equal(t, float32(0.5), stub.temperatures[0])
	assert.Contains(t, stub.prompts[0], "Category: complaint")
	assert.Contains(t, stub.prompts[0], "Drafted Response:\n<response>")
	assert.Contains(t, stub.prompts[0], "3. Assess urgency (low, medium, high).")
}

func TestGeneratePromptIncludesHistory(t *testing.T) {
	history := newMemoryHistory()
	seedHistory(t, history, testEmail.Sender, 1)
	stub := &stubCompleter{text: "Drafted Response: ok"}
	g := newTestGenerator(stub, history, nil)

	g.Generate(context.Background(), testEmail, CategoryInquiry)
	assert.Contains(t, stub.prompts[0], "Use the context below to help draft your reply.")
	assert.Contains(t, stub.prompts[0], "Subject: subject 0")
}

func TestGenerateFallbackOnGatewayFailure(t *testing.T) {
	history := newMemoryHistory()
	stub := &stubCompleter{err: &GatewayError{Kind: FailureOther, Attempts: 3}}
	pool := NewFallbackPoolWith(map[Category][]string{
		CategoryComplaint: {"sorry one", "sorry two"},
	}, 1)
	g := newTestGenerator(stub, history, pool)

	for i := 0; i < 20; i++ {
		got := g.Generate(context.Background(), testEmail, CategoryComplaint)
		assert.Contains(t, []string{"sorry one", "sorry two"}, got)
	}
	assert.Equal(t, 0, history.count(testEmail.Sender), "fallback replies are not recorded")
}

func TestGenerateFallbackOnMissingMarker(t *testing.T) {
	stub := &stubCompleter{text: "Here is a reply without any marker"}
	g := newTestGenerator(stub, newMemoryHistory(), NewFallbackPoolWith(map[Category][]string{}, 1))

	assert.Equal(t, GenericFallbackResponse, g.Generate(context.Background(), testEmail, CategoryInquiry))
}

func TestGenerateAlwaysNonEmpty(t *testing.T) {
	stub := &stubCompleter{err: errors.New("down")}
	g := newTestGenerator(stub, nil, NewFallbackPool())

	for _, c := range AllCategories {
		assert.NotEmpty(t, g.Generate(context.Background(), testEmail, c))
	}
}

func TestGenerateHistoryFailureStillReturnsDraft(t *testing.T) {
	history := newMemoryHistory()
	history.appendErr = errors.New("read-only")
	stub := &stubCompleter{text: "Drafted Response: fine"}
	g := newTestGenerator(stub, history, nil)

	assert.Equal(t, "fine", g.Generate(context.Background(), testEmail, CategoryFeedback))
}

func TestGenerateSkipsHistoryForUnknownSender(t *testing.T) {
	history := newMemoryHistory()
	stub := &stubCompleter{text: "Drafted Response: fine"}
	g := newTestGenerator(stub, history, nil)

	email := testEmail
	email.Sender = UnknownSender
	g.Generate(context.Background(), email, CategoryFeedback)
	assert.Equal(t, 0, history.count(UnknownSender))
}

func TestFallbackPoolLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inquiry.txt"), []byte("\nfirst reply\n\n  second reply  \n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feedback.txt"), []byte("\n\n"), 0o644))

	pool := NewFallbackPool()
	require.NoError(t, pool.LoadDir(dir))

	for i := 0; i < 10; i++ {
		assert.Contains(t, []string{"first reply", "second reply"}, pool.Pick(CategoryInquiry))
	}
	assert.Contains(t, builtinResponses[CategoryFeedback], pool.Pick(CategoryFeedback))
}

func TestFallbackPoolUnknownCategory(t *testing.T) {
	pool := NewFallbackPool()
	assert.Equal(t, GenericFallbackResponse, pool.Pick(Category("bogus")))
}

func TestFallbackPoolWithNilMapLoadsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "complaint.txt"), []byte("sorry about that\n"), 0o644))

	pool := NewFallbackPoolWith(nil, 1)
	assert.Equal(t, GenericFallbackResponse, pool.Pick(CategoryComplaint))
	require.NoError(t, pool.LoadDir(dir))
	assert.Equal(t, "sorry about that", pool.Pick(CategoryComplaint))
}

func TestFallbackPoolWithCopiesReplies(t *testing.T) {
	replies := map[Category][]string{CategoryInquiry: {"original"}}
	pool := NewFallbackPoolWith(replies, 1)

	replies[CategoryInquiry][0] = "changed"
	replies[CategoryOther] = []string{"added"}

	assert.Equal(t, "original", pool.Pick(CategoryInquiry))
	assert.Equal(t, GenericFallbackResponse, pool.Pick(CategoryOther))
}
