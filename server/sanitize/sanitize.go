// Package sanitize strips control characters from model-facing text and
// flags likely prompt-injection attempts. Detection never blocks a turn; it
// only annotates telemetry.
package sanitize

import "regexp"

// controlRE matches ASCII control characters outside tab/newline/CR.
var controlRE = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// zeroWidthRE matches the zero-width/BOM code points that can be used to
// smuggle invisible instructions into a transcript.
var zeroWidthRE = regexp.MustCompile(`[\x{200B}\x{200C}\x{200D}\x{2060}\x{FEFF}\x{00AD}]`)

// injectionPatterns are compiled once, case-insensitively.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (all )?previous instructions`),
	regexp.MustCompile(`(?i)<system>`),
	regexp.MustCompile(`(?i)</assistant>`),
	regexp.MustCompile(`(?i)\[INST\]`),
	regexp.MustCompile(`(?i)"role"\s*:\s*"system"`),
	regexp.MustCompile(`(?i)you are now (a|an|the|free|unbound)`),
	regexp.MustCompile(`(?i)new instructions?:`),
	regexp.MustCompile(`(?i)disregard (all )?previous`),
	regexp.MustCompile(`(?i)<human>`),
}

// Sanitize removes control characters and zero-width/BOM code points from
// text. All other Unicode, including tab/newline/CR, is preserved verbatim.
// Sanitize is idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	text = controlRE.ReplaceAllString(text, "")
	text = zeroWidthRE.ReplaceAllString(text, "")
	return text
}

// DetectInjection reports whether text matches any known prompt-hijack
// pattern. It is a heuristic flag only; callers must not use it to block a
// turn.
func DetectInjection(text string) bool {
	for _, re := range injectionPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
