package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/labtiva/esprobe/internal/es"
	"github.com/labtiva/esprobe/internal/scenario"
	"github.com/mattn/go-isatty"
)

// Printer writes command output. Color is on only for terminals without
// NO_COLOR set.
type Printer struct {
	w     io.Writer
	color bool
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, color: colorEnabled(w)}
}

// PlainPrinter never emits escape codes.
func PlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) fg(c lipgloss.Color, text string) string {
	return p.style(lipgloss.NewStyle().Foreground(c), text)
}

func (p *Printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) field(label, value string) {
	if p.color {
		p.line("%s%s", LabelStyle.Render(label), value)
		return
	}
	p.line("%-16s%s", label, value)
}

func HighlightJSON(input string) string {
	var buf bytes.Buffer
	err := quick.Highlight(&buf, input, "json", "terminal256", "monokai")
	if err != nil {
		return input
	}
	return buf.String()
}

// PrettyJSON indents raw JSON. Input that is not JSON is returned unchanged.
func PrettyJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// JSON prints raw JSON indented, highlighted when color is on.
func (p *Printer) JSON(raw []byte) {
	out := PrettyJSON(raw)
	if p.color {
		out = HighlightJSON(out)
	}
	p.line("%s", strings.TrimRight(out, "\n"))
}

// Value marshals v and prints it as JSON.
func (p *Printer) Value(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.JSON(raw)
	return nil
}

func (p *Printer) Message(format string, args ...any) {
	p.line(format, args...)
}

// Health prints cluster health. host labels the header when set.
func (p *Printer) Health(h *es.ClusterHealth, host string) {
	header := "Cluster " + h.ClusterName
	if host != "" {
		header += " @ " + host
	}
	p.line("%s", p.style(HeaderStyle, header))
	p.field("status", p.fg(HealthColor(h.Status.String()), h.Status.String()))
	p.field("nodes", fmt.Sprintf("%d (%d data)", h.NumberOfNodes, h.NumberOfDataNodes))
	p.field("shards", fmt.Sprintf("%d active, %d primary", h.ActiveShards, h.ActivePrimaryShards))
	if h.UnassignedShards > 0 {
		p.field("unassigned", p.fg(ColorYellow, fmt.Sprint(h.UnassignedShards)))
	}
	if h.TimedOut {
		p.field("timed out", p.fg(ColorRed, "true"))
	}
}

func (p *Printer) Indices(indices []es.IndexInfo) {
	if len(indices) == 0 {
		p.line("%s", p.style(DimStyle, "no indices"))
		return
	}
	width := len("index")
	for _, idx := range indices {
		if n := len([]rune(idx.Name)); n > width {
			width = n
		}
	}
	if width > 48 {
		width = 48
	}

	p.line("%s", p.style(HeaderStyle, fmt.Sprintf("%-*s  %-7s  %12s  %10s  %s", width, "index", "health", "docs", "size", "pri/rep")))
	for _, idx := range indices {
		health := fmt.Sprintf("%-7s", idx.Health)
		p.line("%-*s  %s  %12s  %10s  %s/%s",
			width, Truncate(idx.Name, width),
			p.fg(HealthColor(idx.Health), health),
			FormatNumber(idx.DocsCount), idx.StoreSize, idx.Pri, idx.Rep)
	}
}

func (p *Printer) Fields(index string, fields []string) {
	p.line("%s", p.style(HeaderStyle, index))
	for _, f := range fields {
		p.line("  %s", p.style(KeyStyle, f))
	}
}

func (p *Printer) Document(doc *es.Document) {
	p.line("%s %s", p.style(KeyStyle, doc.Index+"/"+doc.ID), p.style(DimStyle, fmt.Sprintf("version %d", doc.Version)))
	p.JSON(doc.Source)
}

func (p *Printer) Search(res *es.SearchResult) {
	p.line("%s", p.style(HeaderStyle, fmt.Sprintf("%s hits in %dms", FormatNumber(fmt.Sprint(res.Total)), res.Took)))
	if res.TimedOut {
		p.line("%s", p.fg(ColorYellow, "search timed out, results may be partial"))
	}
	for _, hit := range res.Hits {
		score := ""
		if hit.Score != nil {
			score = fmt.Sprintf(" score %.3f", *hit.Score)
		}
		p.line("%s%s", p.style(KeyStyle, hit.Index+"/"+hit.ID), p.style(DimStyle, score))
		p.JSON(hit.Source)
	}
}

func (p *Printer) Validation(res *es.ValidateResult) {
	if res.Valid {
		p.line("%s", p.style(PassStyle, "query is valid"))
		return
	}
	p.line("%s %s", p.style(FailStyle, "query is invalid:"), res.Error)
}

func (p *Printer) Request(method, path string, res *es.RequestResult) {
	status := fmt.Sprint(res.StatusCode)
	p.line("%s %s %s %s", method, path,
		p.fg(StatusColor(res.StatusCode), status),
		p.style(DimStyle, FormatDuration(res.Duration)))
	if res.Body != "" {
		p.JSON([]byte(res.Body))
	}
}

// Report prints scenario results grouped by driver and returns the number of
// failed scenarios.
func (p *Printer) Report(results []scenario.Result) int {
	failed := 0
	driver := ""
	for _, res := range results {
		if res.Driver != driver {
			driver = res.Driver
			p.line("%s", p.style(HeaderStyle, "driver "+driver))
		}

		mark := p.style(PassStyle, "PASS")
		if !res.Passed() {
			mark = p.style(FailStyle, "FAIL")
			failed++
		}
		p.line("%s %s %s", mark, res.Scenario, p.style(DimStyle, FormatDuration(res.Duration)))

		for _, step := range res.Steps {
			if step.Err != nil {
				p.line("     %s %s: %v", p.fg(ColorRed, "x"), step.Name, step.Err)
				continue
			}
			p.line("     %s %s %s", p.fg(ColorGreen, "ok"), step.Name, p.style(DimStyle, FormatDuration(step.Duration)))
		}
		if res.Err != nil && len(res.Steps) == 0 {
			p.line("     %s %v", p.fg(ColorRed, "x"), res.Err)
		}
	}

	summary := fmt.Sprintf("%d passed, %d failed", len(results)-failed, failed)
	if failed > 0 {
		p.line("%s", p.style(FailStyle, summary))
	} else {
		p.line("%s", p.style(PassStyle, summary))
	}
	return failed
}
