package service

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeModelJSON unmarshals an LLM response into out, tolerating the
// markdown code fences some models wrap JSON in even when asked not to.
func decodeModelJSON(raw string, out interface{}) error {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return nil
}

// uniqueSortedPages normalizes a source-page list: sorted, unique, and
// positive page numbers only.
func uniqueSortedPages(pages []int) []int {
	seen := make(map[int]bool, len(pages))
	result := make([]int, 0, len(pages))
	for _, p := range pages {
		if p <= 0 || seen[p] {
			continue
		}
		seen[p] = true
		result = append(result, p)
	}
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j-1] > result[j]; j-- {
			result[j-1], result[j] = result[j], result[j-1]
		}
	}
	return result
}
