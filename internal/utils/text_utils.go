package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TruncationNotice is appended to bodies cut down to the size limit
const TruncationNotice = "\n[... message truncated ...]"

// TextProcessor prepares email text before it is placed in a prompt
type TextProcessor struct {
	maxSize int
	logger  *zap.Logger
}

// NewTextProcessor creates a new TextProcessor. A maxSize of zero disables truncation.
func NewTextProcessor(maxSize int, logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		maxSize: maxSize,
		logger:  logger,
	}
}

// Prepare normalizes line endings, drops invalid UTF-8 and truncates to the size limit
func (tp *TextProcessor) Prepare(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return tp.Truncate(tp.SanitizeUTF8(text), tp.maxSize)
}

// Truncate cuts text to at most maxSize bytes without splitting a UTF-8 sequence
func (tp *TextProcessor) Truncate(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	cut := maxSize
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	truncated := text[:cut]

	tp.logger.Debug("Body truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + TruncationNotice
}

// SanitizeUTF8 removes invalid UTF-8 bytes from text
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")
	tp.logger.Debug("Body sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}
