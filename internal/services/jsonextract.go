package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonFenceRe     = regexp.MustCompile("(?i)```json\\s*|\\s*```")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// ExtractJSON recovers a JSON object from a model answer. It strips code
// fences, then tries the whole text, the first balanced {...} object, and
// finally the text with trailing commas removed.
func ExtractJSON(text string) (map[string]any, error) {
	text = strings.TrimSpace(jsonFenceRe.ReplaceAllString(text, ""))

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err == nil && out != nil {
		return out, nil
	}

	if obj, ok := balancedObject(text); ok {
		out = nil
		if err := json.Unmarshal([]byte(obj), &out); err == nil && out != nil {
			return out, nil
		}
	}

	out = nil
	cleaned := trailingCommaRe.ReplaceAllString(text, "$1")
	if err := json.Unmarshal([]byte(cleaned), &out); err == nil && out != nil {
		return out, nil
	}

	return nil, fmt.Errorf("failed to extract valid JSON. Preview: %s...", preview(text, 500))
}

// balancedObject returns the text from the first '{' to its matching '}',
// ignoring braces inside string literals.
func balancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}
