package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/labtiva/esprobe/internal/scenario"
)

// MarkdownReport renders scenario results as a markdown table, one row per
// scenario, with failing steps listed below it.
func MarkdownReport(results []scenario.Result) string {
	var b strings.Builder
	b.WriteString("# Smoke report\n\n")
	b.WriteString("| Driver | Scenario | Result | Duration |\n")
	b.WriteString("|---|---|---|---|\n")

	var failures []string
	passed := 0
	for _, res := range results {
		status := "pass"
		if res.Passed() {
			passed++
		} else {
			status = "**fail**"
			failures = append(failures, fmt.Sprintf("- `%s` %s: %s", res.Driver, res.Scenario, escapeMarkdown(res.Err.Error())))
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", res.Driver, res.Scenario, status, FormatDuration(res.Duration))
	}

	fmt.Fprintf(&b, "\n%d passed, %d failed\n", passed, len(results)-passed)
	if len(failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		b.WriteString(strings.Join(failures, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// Markdown prints md, rendered for the terminal when color is on.
func (p *Printer) Markdown(md string) {
	if p.color {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			if out, err := r.Render(md); err == nil {
				fmt.Fprint(p.w, out)
				return
			}
		}
	}
	fmt.Fprint(p.w, md)
}
