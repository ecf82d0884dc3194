package ranges

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/martinsuchenak/geotoolkit/internal/inventory"
	"github.com/martinsuchenak/geotoolkit/internal/iprange"
	"github.com/martinsuchenak/geotoolkit/internal/model"
	"golang.org/x/term"
)

const (
	formatAuto = "auto"
	formatText = "text"
	formatJSON = "json"
)

var statusStyles = map[iprange.Severity]lipgloss.Style{
	iprange.SeverityValid:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	iprange.SeverityInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	iprange.SeverityWarning:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	iprange.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

// printer writes reports as a text table or as JSON
type printer struct {
	w     io.Writer
	json  bool
	color bool
}

// newPrinter resolves "auto" to text on a terminal and JSON otherwise
func newPrinter(w io.Writer, format string) *printer {
	tty := isTerminal(w)
	p := &printer{w: w, color: tty}
	switch strings.ToLower(format) {
	case formatJSON:
		p.json = true
	case formatText:
	default:
		p.json = !tty
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) status(s iprange.Severity) string {
	if !p.color {
		return s.String()
	}
	return statusStyles[s].Render(s.String())
}

func (p *printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) report(report inventory.Report) error {
	if p.json {
		return p.writeJSON(report)
	}

	names := make([]string, len(report.Results))
	for i := range report.Results {
		names[i] = report.Results[i].Range.DisplayName(i)
	}
	p.table(names, report.Results)
	p.summary(report.Summary)
	return nil
}

func (p *printer) audit(report inventory.AuditReport) error {
	if p.json {
		return p.writeJSON(report)
	}

	names := make([]string, len(report.Entries))
	results := make([]iprange.Result, len(report.Entries))
	for i, e := range report.Entries {
		names[i] = e.Range.DisplayName(i)
		results[i] = e.Result
	}
	p.table(names, results)
	p.summary(report.Summary)
	return nil
}

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle })
}

// table prints one row per result, then the issues of every range that has any
func (p *printer) table(names []string, results []iprange.Result) {
	t := newTable("#", "NAME", "START", "END", "SIZE", "ISSUES", "STATUS")
	for i, res := range results {
		t.Row(strconv.Itoa(i+1), names[i], res.Range.Start, res.Range.End,
			humanize.Comma(res.Size), strconv.Itoa(len(res.Issues)), p.status(res.Status))
	}
	fmt.Fprintln(p.w, t.Render())

	for i, res := range results {
		if len(res.Issues) == 0 {
			continue
		}
		fmt.Fprintln(p.w)
		p.result(names[i], res)
	}
}

func (p *printer) result(name string, res iprange.Result) {
	fmt.Fprintf(p.w, "%s (%s - %s): %s\n", name, res.Range.Start, res.Range.End, p.status(res.Status))
	for _, issue := range res.Issues {
		fmt.Fprintf(p.w, "  - [%s] %s: %s\n", p.status(issue.Severity), issue.Type, issue.Message)
		for _, o := range issue.Overlaps {
			fmt.Fprintf(p.w, "      overlaps #%d %s (%s - %s)\n", o.Index+1, o.Name, o.Start, o.End)
		}
	}
}

func (p *printer) summary(sum iprange.Summary) {
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "Ranges: %d (%s addresses)\n", sum.TotalRanges, humanize.Comma(sum.TotalIPAddresses))
	fmt.Fprintf(p.w, "Valid: %d, Info: %d, Warnings: %d, Errors: %d\n",
		sum.ValidRanges, sum.RangesWithInfo, sum.RangesWithWarnings, sum.RangesWithErrors)
	fmt.Fprintf(p.w, "Issues: %d\n", sum.TotalIssues)
	for _, t := range issueOrder {
		if n := sum.IssueBreakdown[t]; n > 0 {
			fmt.Fprintf(p.w, "  %s: %d\n", t, n)
		}
	}
}

var issueOrder = []iprange.IssueType{
	iprange.IssueInvalidIP,
	iprange.IssueInvertedRange,
	iprange.IssueExtremelyLargeRange,
	iprange.IssueLargeRange,
	iprange.IssueMixedPrivatePublic,
	iprange.IssueContainsReserved,
	iprange.IssuePrivateIPRange,
	iprange.IssueOverlappingRanges,
	iprange.IssueSingleIPAsRange,
}

func (p *printer) knownRanges(ranges []model.KnownRange) error {
	if p.json {
		return p.writeJSON(ranges)
	}
	if len(ranges) == 0 {
		fmt.Fprintln(p.w, "No ranges found.")
		return nil
	}

	t := newTable("ID", "NAME", "START", "END", "TAGS")
	for _, r := range ranges {
		t.Row(r.ID, r.Name, r.StartIP, r.EndIP, strings.Join(r.Tags, ","))
	}
	_, err := fmt.Fprintln(p.w, t.Render())
	return err
}
