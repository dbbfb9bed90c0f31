package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatchMapping(t *testing.T) {
	tests := []struct {
		category Category
		want     []string
	}{
		{CategoryComplaint, []string{HandlerUrgentTicket, HandlerComplaintSend}},
		{CategorySupportRequest, []string{HandlerSupportTicket, HandlerStandardSend}},
		{CategoryFeedback, []string{HandlerFeedbackLog, HandlerStandardSend}},
		{CategoryInquiry, []string{HandlerStandardSend}},
		{CategoryOther, []string{HandlerStandardSend}},
		{Category("mystery"), []string{HandlerStandardSend}},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			h := &recordingHandlers{}
			d := NewDispatcher(h, h, h, zap.NewNop())

			outcome := ClassificationOutcome{Category: tt.category, Confidence: 4, Reason: GateAccepted}
			result := d.Dispatch(context.Background(), testEmail, outcome, "reply")

			assert.Equal(t, tt.want, h.Calls())
			assert.True(t, result.Success)
			assert.Equal(t, testEmail.ID, result.EmailID)
			require.NotNil(t, result.Classification)
			assert.Equal(t, tt.category, *result.Classification)
			require.NotNil(t, result.Confidence)
			assert.Equal(t, 4, *result.Confidence)
			require.NotNil(t, result.ResponseSent)
			assert.Equal(t, "reply", *result.ResponseSent)
			assert.Nil(t, result.Error)
		})
	}
}

func TestDispatchHandlerFailureKeepsSuccess(t *testing.T) {
	h := &recordingHandlers{err: errors.New("ticketing offline")}
	d := NewDispatcher(h, h, h, zap.NewNop())

	result := d.Dispatch(context.Background(), testEmail, ClassificationOutcome{Category: CategoryComplaint, Confidence: 5}, "reply")

	assert.True(t, result.Success)
	assert.Equal(t, []string{HandlerUrgentTicket, HandlerComplaintSend}, h.Calls(), "each handler runs once, never retried")
}

type panickingSender struct{ recordingHandlers }

func (p *panickingSender) SendStandardResponse(ctx context.Context, email EmailRecord, response string) error {
	panic("smtp relay exploded")
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	h := &recordingHandlers{}
	d := NewDispatcher(h, h, &panickingSender{}, zap.NewNop())

	result := d.Dispatch(context.Background(), testEmail, ClassificationOutcome{Category: CategoryFeedback, Confidence: 4}, "reply")
	assert.True(t, result.Success)
	assert.Equal(t, []string{HandlerFeedbackLog}, h.Calls())
}

func TestHandlerErrorMatchesSentinel(t *testing.T) {
	err := &HandlerError{Handler: HandlerStandardSend, EmailID: "1", Err: errors.New("x")}
	assert.ErrorIs(t, err, ErrHandler)
}
