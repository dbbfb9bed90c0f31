package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mikey/llm-support-triage/internal/core"
)

const previewRunes = 200

func validateFormat(format string) error {
	switch format {
	case "table", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unsupported output format: %s", format)
}

// writeReport renders pipeline results in the requested format
func writeReport(w io.Writer, format string, results []core.PipelineResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "yaml":
		return writeYAML(w, results)
	case "table":
		return writeResultTable(w, results)
	}
	return validateFormat(format)
}

func writeResultTable(w io.Writer, results []core.PipelineResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL ID\tSUCCESS\tCLASSIFICATION\tCONFIDENCE")
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", r.EmailID, r.Success, categoryText(r.Classification), confidenceText(r.Confidence))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d of %d emails processed successfully\n", succeeded, len(results))

	for _, r := range results {
		fmt.Fprintf(w, "\nEmail %s -> %s\n", r.EmailID, categoryText(r.Classification))
		if r.Error != nil {
			fmt.Fprintf(w, "Error: %s\n", *r.Error)
		}
		if r.ResponseSent != nil {
			fmt.Fprintf(w, "Response:\n%s\n", preview(*r.ResponseSent, previewRunes))
		}
	}
	return nil
}

// writeHistory renders a sender's history entries
func writeHistory(w io.Writer, format string, entries []core.HistoryEntry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		return writeYAML(w, entries)
	case "table":
		if len(entries) == 0 {
			_, err := fmt.Fprintln(w, "No history found")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIMESTAMP\tCATEGORY\tSUBJECT")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Category, e.Subject)
		}
		return tw.Flush()
	}
	return validateFormat(format)
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func categoryText(c *core.Category) string {
	if c == nil {
		return "-"
	}
	return c.String()
}

func confidenceText(c *int) string {
	if c == nil {
		return "-"
	}
	return strconv.Itoa(*c)
}

// preview truncates s to n runes, marking the cut with an ellipsis
func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
