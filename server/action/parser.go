// Package action extracts and validates a model's chosen action from raw
// text against a per-event JSON Schema.
package action

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"tourneyengine/server/sanitize"
)

// Result mirrors the outcome of one parse attempt.
type Result struct {
	Success          bool
	Action           map[string]any
	RawJSON          string
	Error            string
	InjectionFlagged bool
}

// jsonObjectCandidates scans text left-to-right for balanced brace spans
// that start at '{' and end at the matching '}', at any nesting depth (only
// outermost spans are returned). It does not attempt to handle braces inside string literals
// beyond simple quote tracking, which is sufficient for model output that
// is otherwise valid JSON.
func jsonObjectCandidates(text string) []string {
	var out []string
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, text[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}

// Parse scans sanitized text for the first candidate JSON object that both
// decodes and validates against schema, returning it as a success.
// Result.InjectionFlagged reports whether an injection pattern was detected
// anywhere in text, independent of whether a valid action was found, so the
// result is self-contained per the parser's output contract.
func Parse(text string, schema map[string]any) Result {
	injected := sanitize.DetectInjection(text)

	candidates := jsonObjectCandidates(text)
	if len(candidates) == 0 {
		return Result{Success: false, Error: "no JSON object found in response", InjectionFlagged: injected}
	}

	resolved, err := resolveSchema(schema)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("invalid schema: %v", err), InjectionFlagged: injected}
	}

	var lastErr string
	for _, raw := range candidates {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			lastErr = fmt.Sprintf("invalid JSON: %v", err)
			continue
		}
		if resolved != nil {
			if err := resolved.Validate(obj); err != nil {
				lastErr = fmt.Sprintf("schema validation failed: %v", err)
				continue
			}
		}
		return Result{Success: true, Action: obj, RawJSON: strings.TrimSpace(raw), InjectionFlagged: injected}
	}
	return Result{Success: false, Error: lastErr, InjectionFlagged: injected}
}

func resolveSchema(schema map[string]any) (*jsonschema.Resolved, error) {
	if schema == nil {
		return nil, nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return s.Resolve(nil)
}
