// Package llmjson recovers a JSON object from free-form model output.
//
// Models wrap JSON in markdown fences, prepend chatter, or append notes. Extract
// tries, in order: a fenced ```json block, the whole string, each balanced
// top-level {...} span, and the span from the first '{' to the last '}'. The
// first candidate that parses wins.
package llmjson

import (
	"encoding/json"
	"regexp"
	"strings"

	"deal_insights_backend/platform/apperr"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")

// Extract returns the first JSON object recoverable from text.
func Extract(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apperr.Validation("generated text is empty")
	}

	for _, candidate := range candidates(trimmed) {
		candidate = strings.TrimSpace(candidate)
		if !strings.HasPrefix(candidate, "{") {
			continue
		}
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	return nil, apperr.Validation("no JSON object found in generated text")
}

// Decode extracts a JSON object from text and unmarshals it into v.
func Decode(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "generated JSON does not match the expected shape", err)
	}
	return nil
}

func candidates(text string) []string {
	out := make([]string, 0, 3)
	if m := fencedBlock.FindStringSubmatch(text); len(m) == 2 {
		out = append(out, m[1])
	}
	out = append(out, text)
	out = append(out, topLevelObjects(text)...)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		out = append(out, text[start:end+1])
	}
	return out
}

// topLevelObjects returns the balanced {...} spans of text in order, skipping
// braces inside JSON strings.
func topLevelObjects(text string) []string {
	var (
		out      []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if depth == 0 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				out = append(out, text[start:i+1])
			}
		}
	}
	return out
}
