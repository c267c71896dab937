package telemetry

import "strings"

// canonicalAliases maps a canonical display name to the known variant
// spellings that should roll up to it: vendor-prefixed ids, short names
// from older configs, and so on. The canonical name itself never needs to
// be listed as its own alias.
var canonicalAliases = map[string][]string{
	"gpt-4o":           {"openai/gpt-4o"},
	"gpt-4o-mini":      {"openai/gpt-4o-mini"},
	"claude-3-5-sonnet": {"anthropic/claude-3-5-sonnet", "sonnet", "sonnet-3.5"},
	"claude-3-5-haiku":  {"anthropic/claude-3-5-haiku", "haiku"},
	"gemini-2.5-flash": {"google/gemini-2.5-flash", "gemini-flash"},
	"gemini-2.5-pro":   {"google/gemini-2.5-pro"},
}

var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]string {
	idx := map[string]string{}
	for canonical, aliases := range canonicalAliases {
		idx[strings.ToLower(canonical)] = canonical
		for _, a := range aliases {
			idx[strings.ToLower(a)] = canonical
		}
	}
	return idx
}

// NormalizeModelName maps a raw model identifier (as it appears in
// configuration, adapter responses, or older telemetry) to a canonical
// name so that per-model aggregates roll up consistently regardless of
// which alias a particular run used. Matching is case-insensitive; an
// unrecognized vendor-prefixed id ("vendor/model-id") falls back to the
// bare model-id segment so at least the vendor prefix doesn't fragment the
// aggregate, and anything else is returned unchanged (lowercased).
func NormalizeModelName(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "unknown"
	}
	if canonical, ok := aliasIndex[key]; ok {
		return canonical
	}
	if idx := strings.Index(key, "/"); idx >= 0 {
		rest := key[idx+1:]
		if canonical, ok := aliasIndex[rest]; ok {
			return canonical
		}
		return rest
	}
	return key
}
