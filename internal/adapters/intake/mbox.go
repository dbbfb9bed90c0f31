package intake

import (
	"errors"
	"fmt"
	"io"

	"github.com/emersion/go-mbox"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/core"
)

// ReadMbox parses every message of an mbox stream. Messages without a
// Message-ID get "<prefix>-<n>" ids; unparsable messages are skipped.
func ReadMbox(r io.Reader, prefix string, logger *zap.Logger) ([]core.RawEmail, error) {
	reader := mbox.NewReader(r)

	var emails []core.RawEmail
	for n := 1; ; n++ {
		msg, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return emails, fmt.Errorf("failed to read mbox message %d: %w", n, err)
		}

		raw, err := ParseMessage(msg, fmt.Sprintf("%s-%d", prefix, n))
		if err != nil {
			logger.Warn("Skipping unparsable mbox message", zap.Int("index", n), zap.Error(err))
			continue
		}
		emails = append(emails, raw)
	}
	return emails, nil
}
