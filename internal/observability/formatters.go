// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/wizard"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the inspection commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		line = truncate(line, boxWidth-4)
		// %-*s pads by bytes; pad by runes so non-ASCII names keep the border aligned.
		pad := boxWidth - 4 - len([]rune(line))
		fmt.Fprintf(p.out, "│ %s%s │\n", line, strings.Repeat(" ", pad))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// PrintCV outputs the record header and where the wizard stands for it.
func (p *Printer) PrintCV(rec *types.CVRecord) {
	if rec == nil {
		return
	}
	status := wizard.BuildStatus(rec.Data, rec.CurrentStep)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:     %s\n", rec.Title))
	sb.WriteString(fmt.Sprintf("ID:        %s\n", rec.ID))
	if rec.TemplateID != nil {
		sb.WriteString(fmt.Sprintf("Template:  %s\n", *rec.TemplateID))
	}
	if !rec.UpdatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Updated:   %s\n", rec.UpdatedAt.Local().Format(time.DateTime)))
	}
	sb.WriteString(fmt.Sprintf("Complete:  %t\n", rec.IsComplete))
	sb.WriteString(fmt.Sprintf("Step:      %d of %d, %s (%.0f%%)\n",
		status.Step, len(status.Steps), status.Title, status.Progress))
	if len(status.Missing) > 0 {
		sb.WriteString(fmt.Sprintf("Missing:   %s\n", strings.Join(status.Missing, ", ")))
	}

	p.printBox("CV", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSteps outputs the checklist of wizard steps.
func (p *Printer) PrintSteps(status wizard.Status) {
	var sb strings.Builder
	for _, s := range status.Steps {
		mark := " "
		if s.Satisfied {
			mark = "✓"
		}
		kind := "optional"
		if s.Required {
			kind = "required"
		}
		current := ""
		if s.Number == status.Step {
			current = "  <"
		}
		sb.WriteString(fmt.Sprintf("[%s] %d. %-16s %s%s\n", mark, s.Number, s.Title, kind, current))
	}
	p.printBox("WIZARD STEPS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSections outputs how many items each section of doc holds, with a preview of
// the first few.
func (p *Printer) PrintSections(doc types.CVDocument) {
	var sb strings.Builder

	section := func(title string, items []string) {
		sb.WriteString(fmt.Sprintf("%s: %d\n", title, len(items)))
		count := min(len(items), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
		}
		if len(items) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
		}
	}

	section("Education", mapItems(doc.Education, func(e types.Education) string { return joinNonEmpty(", ", e.Degree, e.School) }))
	section("Skills", doc.Skills)
	section("Experience", mapItems(doc.Experience, func(e types.Experience) string { return joinNonEmpty(" at ", e.Position, e.Company) }))
	section("Projects", mapItems(doc.Projects, func(pr types.Project) string { return pr.Title }))
	section("Certifications", mapItems(doc.Certifications, func(c types.Certification) string { return c.Name }))
	section("Languages", mapItems(doc.Languages, func(l types.Language) string { return l.Language }))
	section("Volunteer work", mapItems(doc.VolunteerWork, func(e types.Experience) string { return joinNonEmpty(" at ", e.Position, e.Company) }))
	section("Awards", doc.Awards)
	section("Interests", doc.Interests)

	p.printBox("SECTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

func mapItems[T any](entries []T, label func(T) string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		s := label(e)
		if s == "" {
			s = "(untitled)"
		}
		out = append(out, s)
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
