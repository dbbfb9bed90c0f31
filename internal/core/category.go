package core

import (
	"strings"
)

// Category is one of the closed set of support email categories
type Category string

const (
	CategoryComplaint      Category = "complaint"
	CategoryInquiry        Category = "inquiry"
	CategoryFeedback       Category = "feedback"
	CategorySupportRequest Category = "support_request"
	CategoryOther          Category = "other"
)

// AllCategories lists the categories in prompt order
var AllCategories = []Category{
	CategoryComplaint,
	CategoryInquiry,
	CategoryFeedback,
	CategorySupportRequest,
	CategoryOther,
}

// Valid reports whether c is a member of the enumeration
func (c Category) Valid() bool {
	switch c {
	case CategoryComplaint, CategoryInquiry, CategoryFeedback, CategorySupportRequest, CategoryOther:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory converts model or config text into a Category.
// The second return value is false when the text is not a member of the enumeration.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// CategoryDefinition is the static description and reply guidance for a category
type CategoryDefinition struct {
	Definition string
	Guidance   string
}

// CategoryCatalog maps every category to its definition. It is read-only after construction.
type CategoryCatalog struct {
	defs map[Category]CategoryDefinition
}

var defaultDefinitions = map[Category]CategoryDefinition{
	CategoryComplaint: {
		Definition: "A message expressing dissatisfaction or demanding resolution.",
		Guidance:   "We sincerely apologize for the inconvenience. Your issue is important, and we're here to make it right.",
	},
	CategoryInquiry: {
		Definition: "A question or request for product or service information.",
		Guidance:   "Thank you for your question. We're happy to clarify any details to help with your decision.",
	},
	CategoryFeedback: {
		Definition: "A comment providing praise, criticism, or a suggestion without requesting action.",
		Guidance:   "We appreciate your feedback and will pass it on to the relevant team. Thank you for helping us improve.",
	},
	CategorySupportRequest: {
		Definition: "A direct request for technical help or service support.",
		Guidance:   "Thank you for reporting this. We're looking into your issue and will respond with a solution as soon as possible.",
	},
	CategoryOther: {
		Definition: "Does not fit into the above categories.",
		Guidance:   "Thank you for reaching out. We'll review your message and respond accordingly.",
	},
}

// NewCategoryCatalog builds a catalog from the built-in definitions with overrides applied.
// Overrides for unknown categories are ignored; empty override fields keep the default.
func NewCategoryCatalog(overrides map[Category]CategoryDefinition) *CategoryCatalog {
	defs := make(map[Category]CategoryDefinition, len(defaultDefinitions))
	for c, d := range defaultDefinitions {
		defs[c] = d
	}
	for c, o := range overrides {
		if !c.Valid() {
			continue
		}
		d := defs[c]
		if o.Definition != "" {
			d.Definition = o.Definition
		}
		if o.Guidance != "" {
			d.Guidance = o.Guidance
		}
		defs[c] = d
	}
	return &CategoryCatalog{defs: defs}
}

// Definition returns the human-readable definition of a category
func (c *CategoryCatalog) Definition(cat Category) string {
	return c.defs[cat].Definition
}

// Guidance returns the tone and content guidance for replies in a category
func (c *CategoryCatalog) Guidance(cat Category) string {
	return c.defs[cat].Guidance
}
