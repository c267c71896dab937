// Package consolefmt renders tournament progress narration to stdout: section
// headers, per-match lines, and seat/violation highlighting. It replaces
// hand-rolled ANSI escape constants with lipgloss styles so color can be
// disabled cleanly (NO_COLOR, non-TTY output) without littering call sites
// with conditionals.
package consolefmt

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	bold   = lipgloss.NewStyle().Bold(true)
	dimSt  = lipgloss.NewStyle().Faint(true)
	good   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	bad    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warn   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	accent = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

func init() {
	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		lipgloss.SetColorProfile(0) // ascii, no escapes
	}
}

// Section prints a bolded section banner, e.g. a new match starting.
func Section(title string) {
	fmt.Printf("\n%s %s %s\n", dimSt.Render("──"), bold.Render(title), dimSt.Render("──"))
}

// Sub prints a minor subsection label within a section.
func Sub(title string) {
	fmt.Printf("%s %s\n", dimSt.Render("•"), bold.Render(title))
}

// Bold renders s in bold.
func Bold(s string) string { return bold.Render(s) }

// Dim renders s faint, for secondary/contextual detail.
func Dim(s string) string { return dimSt.Render(s) }

// Good renders s as a positive/success result.
func Good(s string) string { return good.Render(s) }

// Bad renders s as a failure/forfeit result.
func Bad(s string) string { return bad.Render(s) }

// Warn renders s as a caution/violation result.
func Warn(s string) string { return warn.Render(s) }

// Accent renders s with the accent color, used for seat/model tags.
func Accent(s string) string { return accent.Render(s) }

// SeatTag renders a seat identifier, truncating long model names so match
// lines stay scannable.
func SeatTag(seat, modelID string) string {
	return fmt.Sprintf("%s(%s)", Accent(seat), Dim(shortModel(modelID)))
}

func shortModel(m string) string {
	m = strings.TrimSpace(m)
	if len(m) <= 28 {
		return m
	}
	return m[:28]
}

// Violation renders a single fidelity violation line for console narration.
func Violation(seat, kind, detail string) string {
	return fmt.Sprintf("  %s %s %s", SeatTag(seat, ""), Warn(kind), Dim(detail))
}

// Forfeit renders a seat- or match-forfeit announcement.
func Forfeit(scope, seat, reason string) string {
	return fmt.Sprintf("  %s %s %s: %s", Bad(strings.ToUpper(scope)+" FORFEIT"), Accent(seat), Dim("—"), reason)
}

// MatchResult renders the final scoreboard line for a completed match.
func MatchResult(matchID string, scores map[string]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: ", Good("Match complete"), Dim(matchID))
	first := true
	for seat, score := range scores {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s=%.1f", seat, score)
	}
	return b.String()
}
