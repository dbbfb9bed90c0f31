package core

import (
	"fmt"
	"strings"
)

// Markers the generation prompt asks the model to emit before the reply
const (
	DraftedResponseMarker = "Drafted Response:"
	ResponseMarker        = "Response:"
)

// BuildClassificationPrompt renders the classification prompt for an email
func BuildClassificationPrompt(catalog *CategoryCatalog, subject, body string) string {
	var b strings.Builder
	b.WriteString("You are a highly trained AI assistant tasked with classifying emails into the correct category.\n\n")
	b.WriteString("Categories:\n")
	for _, c := range AllCategories {
		fmt.Fprintf(&b, "- %s: %s\n", c, catalog.Definition(c))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Email:\nSubject: %s\nBody: %s\n\n", subject, body)
	b.WriteString("Respond in this format:\n")
	b.WriteString("Category: <category>\nConfidence: <1-5>")
	return b.String()
}

// BuildResponsePrompt renders the generation prompt, prefixed with the assembled context
func BuildResponsePrompt(catalog *CategoryCatalog, email EmailRecord, category Category, block ContextBlock) string {
	var b strings.Builder

	if rendered := block.Render(); rendered != "" {
		b.WriteString("Use the context below to help draft your reply.\n\n")
		b.WriteString(rendered)
		b.WriteString("\n")
	}

	b.WriteString("You are a professional customer service assistant generating responses to user emails.\n\n")
	fmt.Fprintf(&b, "Category: %s\nGuidance: %s\n", category, catalog.Guidance(category))
	fmt.Fprintf(&b, "Note: This user (%s) may have prior interactions or a specific tone preference. ", email.Sender)
	if block.Profile != nil {
		fmt.Fprintf(&b, "Their preferred tone is %s and their usual urgency is %s. ", block.Profile.Tone, block.Profile.UrgencyBias)
	}
	b.WriteString("Adjust tone accordingly while keeping the response clear and professional.\n\n")

	b.WriteString("Please follow these steps:\n")
	b.WriteString("1. Summarize the issue.\n")
	b.WriteString("2. Infer the tone (angry, happy, confused, etc).\n")
	b.WriteString("3. Assess urgency (low, medium, high).\n")
	b.WriteString("4. Write a clear and empathetic reply using the brand tone.\n\n")

	fmt.Fprintf(&b, "Email:\nSubject: %s\nBody: %s\n\n", email.Subject, email.Body)

	b.WriteString("Respond in this format:\n")
	b.WriteString("Reasoning:\n")
	b.WriteString("1. Summary: <summary>\n")
	b.WriteString("2. Tone: <tone>\n")
	b.WriteString("3. Urgency: <urgency>\n\n")
	b.WriteString(DraftedResponseMarker + "\n")
	b.WriteString("<response>")
	return b.String()
}
