package llm

import (
	"encoding/json"
	"strings"
)

// promptResponse mirrors the JSON the variation templates ask for.
type promptResponse struct {
	Prompt string `json:"prompt"`
}

// ParsePrompt extracts the prompt from a model reply. It tries a direct JSON
// parse, then the span from the first { to the last }, then fenced code
// blocks. When nothing parses the trimmed reply itself is returned, with
// wrapping quotes removed.
func ParsePrompt(text string) string {
	text = strings.TrimSpace(text)

	try := func(s string) (string, bool) {
		var r promptResponse
		if err := json.Unmarshal([]byte(s), &r); err == nil && strings.TrimSpace(r.Prompt) != "" {
			return strings.TrimSpace(r.Prompt), true
		}
		return "", false
	}

	if p, ok := try(text); ok {
		return p
	}

	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			if p, ok := try(text[start : end+1]); ok {
				return p
			}
		}
	}

	for _, fence := range []string{"```json", "```"} {
		if idx := strings.Index(text, fence); idx >= 0 {
			after := text[idx+len(fence):]
			if end := strings.Index(after, "```"); end >= 0 {
				if p, ok := try(strings.TrimSpace(after[:end])); ok {
					return p
				}
			}
		}
	}

	return strings.Trim(text, "\"' \n")
}
