package core

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// GenericFallbackResponse is used when a category has no canned replies
const GenericFallbackResponse = "We're looking into your request and will follow up shortly."

var builtinResponses = map[Category][]string{
	CategoryComplaint: {
		"We're sorry for the trouble you've experienced. A member of our team is reviewing your case and will contact you shortly to make it right.",
		"Thank you for letting us know, and please accept our apologies. We've escalated your message and will follow up as soon as possible.",
	},
	CategoryInquiry: {
		"Thank you for your question. We're gathering the details and will get back to you shortly.",
		"Thanks for reaching out. A member of our team will follow up with the information you asked for.",
	},
	CategoryFeedback: {
		"Thank you for your feedback. We've shared it with the relevant team.",
		"We appreciate you taking the time to share your thoughts with us.",
	},
	CategorySupportRequest: {
		"Thank you for contacting support. We've logged your request and an engineer will follow up soon.",
		"We've received your support request and are looking into it. We'll update you as soon as we have more information.",
	},
	CategoryOther: {
		"Thank you for reaching out. We'll review your message and respond accordingly.",
	},
}

// FallbackPool holds canned replies per category. It is safe for concurrent use.
type FallbackPool struct {
	mu        sync.Mutex
	responses map[Category][]string
	rng       *rand.Rand
}

// NewFallbackPool creates a pool seeded with the built-in replies
func NewFallbackPool() *FallbackPool {
	responses := make(map[Category][]string, len(builtinResponses))
	for c, r := range builtinResponses {
		responses[c] = append([]string(nil), r...)
	}
	return &FallbackPool{
		responses: responses,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewFallbackPoolWith creates a pool with exactly the given replies and random source.
// The map is copied.
func NewFallbackPoolWith(responses map[Category][]string, seed int64) *FallbackPool {
	copied := make(map[Category][]string, len(responses))
	for c, r := range responses {
		copied[c] = append([]string(nil), r...)
	}
	return &FallbackPool{
		responses: copied,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// LoadDir replaces a category's replies with the non-blank lines of <dir>/<category>.txt.
// Missing files leave the category unchanged.
func (p *FallbackPool) LoadDir(dir string) error {
	for _, c := range AllCategories {
		path := filepath.Join(dir, string(c)+".txt")
		lines, err := readNonBlankLines(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load fallback responses from %s: %w", path, err)
		}
		if len(lines) == 0 {
			continue
		}

		p.mu.Lock()
		p.responses[c] = lines
		p.mu.Unlock()
	}
	return nil
}

// Pick returns a pseudo-random reply for the category, never an empty string
func (p *FallbackPool) Pick(category Category) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool := p.responses[category]
	if len(pool) == 0 {
		return GenericFallbackResponse
	}
	return pool[p.rng.Intn(len(pool))]
}

func readNonBlankLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
