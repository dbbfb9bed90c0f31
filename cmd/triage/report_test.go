package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mikey/llm-support-triage/internal/core"
)

func sampleResults() []core.PipelineResult {
	category := core.CategoryComplaint
	confidence := 4
	response := strings.Repeat("a", 250)
	failure := "invalid input: field \"body\" is missing"
	return []core.PipelineResult{
		{EmailID: "001", Success: true, Classification: &category, Confidence: &confidence, ResponseSent: &response},
		{EmailID: "002", Success: false, Error: &failure},
	}
}

func TestWriteReportTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "table", sampleResults()))

	out := buf.String()
	assert.Contains(t, out, "EMAIL ID")
	assert.Contains(t, out, "1 of 2 emails processed successfully")
	assert.Contains(t, out, "Email 001 -> complaint")
	assert.Contains(t, out, strings.Repeat("a", 200)+"...")
	assert.NotContains(t, out, strings.Repeat("a", 201))
	assert.Contains(t, out, "Email 002 -> -")
	assert.Contains(t, out, "Error: invalid input")
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "json", sampleResults()))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "complaint", decoded[0]["classification"])
	assert.Nil(t, decoded[1]["classification"])
	assert.Nil(t, decoded[1]["response_sent"])
}

func TestWriteReportYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "yaml", sampleResults()))

	var decoded []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "001", decoded[0]["email_id"])
	assert.Equal(t, 4, decoded[0]["confidence"])
}

func TestWriteReportUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writeReport(&buf, "csv", sampleResults()))
	assert.Error(t, validateFormat("xml"))
}

func TestWriteHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, "table", nil))
	assert.Contains(t, buf.String(), "No history found")

	buf.Reset()
	entries := []core.HistoryEntry{{
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Subject:   "Order issue",
		Category:  core.CategoryComplaint,
	}}
	require.NoError(t, writeHistory(&buf, "table", entries))
	assert.Contains(t, buf.String(), "2024-05-01T12:00:00Z")
	assert.Contains(t, buf.String(), "Order issue")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("  short \n", 10))
	assert.Equal(t, "héll...", preview("héllo world", 4))
}
