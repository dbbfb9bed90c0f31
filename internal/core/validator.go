package core

import (
	"fmt"
	"net/mail"
	"strings"
)

// senderKeys are the raw fields a sender address is read from, in priority order
var senderKeys = []string{"from", "from_", "sender"}

// Validate turns a raw email into an EmailRecord or rejects it.
// It has no side effects and every failure matches ErrInvalidInput.
func Validate(raw RawEmail) (EmailRecord, error) {
	if raw == nil {
		return EmailRecord{}, &ValidationError{Field: "email", Reason: "is missing"}
	}

	id, err := requiredString(raw, "id")
	if err != nil {
		return EmailRecord{}, err
	}
	subject, err := requiredString(raw, "subject")
	if err != nil {
		return EmailRecord{}, err
	}
	body, err := requiredString(raw, "body")
	if err != nil {
		return EmailRecord{}, err
	}

	sender, err := senderAddress(raw)
	if err != nil {
		return EmailRecord{}, err
	}

	return EmailRecord{
		ID:      strings.TrimSpace(id),
		Subject: subject,
		Body:    body,
		Sender:  sender,
	}, nil
}

func requiredString(raw RawEmail, field string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", &ValidationError{Field: field, Reason: "is required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: field, Reason: fmt.Sprintf("must be a string, got %T", v)}
	}
	if strings.TrimSpace(s) == "" {
		return "", &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return s, nil
}

// senderAddress returns the normalized sender, or UnknownSender when none was given
func senderAddress(raw RawEmail) (string, error) {
	for _, key := range senderKeys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", &ValidationError{Field: key, Reason: fmt.Sprintf("must be a string, got %T", v)}
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		addr, err := NormalizeAddress(s)
		if err != nil {
			return "", &ValidationError{Field: key, Reason: err.Error()}
		}
		return addr, nil
	}
	return UnknownSender, nil
}

// NormalizeAddress parses an RFC 5322 address and returns the bare, lower-cased address
func NormalizeAddress(s string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("is not a valid email address: %w", err)
	}

	addr := strings.ToLower(parsed.Address)
	at := strings.LastIndex(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return "", fmt.Errorf("is not a valid email address: %q", s)
	}
	domain := addr[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", fmt.Errorf("has an invalid domain: %q", domain)
	}
	return addr, nil
}
