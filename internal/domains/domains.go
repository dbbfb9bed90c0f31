// Package domains matches email addresses against a configured domain list.
package domains

import (
	"strings"

	"go.uber.org/zap"
)

// Matcher reports whether an address belongs to one of a set of domains.
// An entry with a leading dot (".example.com") also matches every subdomain.
type Matcher struct {
	domains []string
	logger  *zap.Logger
}

// NewMatcher creates a new domain matcher
func NewMatcher(domains []string, logger *zap.Logger) *Matcher {
	// Normalize domains (lowercase)
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
			normalized = append(normalized, d)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized domain matcher", zap.Strings("domains", normalized))
	}

	return &Matcher{
		domains: normalized,
		logger:  logger,
	}
}

// Empty reports whether no domains are configured
func (m *Matcher) Empty() bool {
	return len(m.domains) == 0
}

// Matches checks if the address's domain is in the list
func (m *Matcher) Matches(address string) bool {
	if len(m.domains) == 0 {
		return false
	}

	// Extract domain from email address
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return false
	}
	domain := strings.ToLower(strings.Trim(address[at+1:], "> "))

	for _, d := range m.domains {
		if d == domain || (strings.HasPrefix(d, ".") && (strings.HasSuffix(domain, d) || domain == d[1:])) {
			if m.logger != nil {
				m.logger.Debug("Domain matched",
					zap.String("domain", domain),
					zap.String("email", address))
			}
			return true
		}
	}

	return false
}
