package intake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mikey/llm-support-triage/internal/core"
)

// LoadJSON reads raw emails from a JSON file or from every *.json file in a
// directory, in file name order. A file holds one email object or an array of them.
func LoadJSON(path string) ([]core.RawEmail, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if !info.IsDir() {
		return loadJSONFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var emails []core.RawEmail
	for _, name := range names {
		batch, err := loadJSONFile(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		emails = append(emails, batch...)
	}
	return emails, nil
}

func loadJSONFile(path string) ([]core.RawEmail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var emails []core.RawEmail
		if err := json.Unmarshal(trimmed, &emails); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return emails, nil
	}

	var email core.RawEmail
	if err := json.Unmarshal(trimmed, &email); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return []core.RawEmail{email}, nil
}
