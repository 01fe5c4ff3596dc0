package rendering

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/jonathan/cv-builder/internal/types"
)

//go:embed templates/resume.tex
var builtinTemplates embed.FS

const defaultTemplate = "templates/resume.tex"

// TemplateData represents the data structure passed to the LaTeX template. Every
// string is already escaped.
type TemplateData struct {
	Name           string
	Contact        []string
	Links          []Link
	Summary        string
	Experience     []EntrySection
	Education      []EntrySection
	Skills         []string
	Projects       []EntrySection
	Certifications []EntrySection
	Languages      []string
	VolunteerWork  []EntrySection
	Awards         []string
	Interests      []string
}

// Link is a labelled URL in the header
type Link struct {
	Label string
	URL   string
}

// EntrySection is one dated entry: a role, degree, project or certification
type EntrySection struct {
	Title    string
	Org      string
	Location string
	Dates    string
	Detail   string
	Tags     []string
}

// RenderLaTeX renders doc with the template at templatePath, or with the built-in
// template when templatePath is empty.
func RenderLaTeX(doc types.CVDocument, templatePath string) (string, error) {
	tmpl, err := parseTemplate(templatePath)
	if err != nil {
		return "", err
	}

	data := buildTemplateData(doc)

	var result strings.Builder
	if err := tmpl.Execute(&result, data); err != nil {
		return "", &TemplateError{
			Message: "failed to execute template",
			Cause:   err,
		}
	}

	return result.String(), nil
}

func parseTemplate(templatePath string) (*template.Template, error) {
	var (
		content []byte
		err     error
	)
	if templatePath == "" {
		content, err = builtinTemplates.ReadFile(defaultTemplate)
	} else {
		content, err = os.ReadFile(templatePath)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &TemplateError{
				Message: fmt.Sprintf("template file not found: %s", templatePath),
				Cause:   err,
			}
		}
		return nil, &TemplateError{
			Message: fmt.Sprintf("failed to read template file: %s", templatePath),
			Cause:   err,
		}
	}

	tmpl, err := template.New("resume").Funcs(template.FuncMap{
		"escape": EscapeLaTeX,
		"join":   strings.Join,
	}).Parse(string(content))
	if err != nil {
		return nil, &TemplateError{
			Message: "failed to parse template",
			Cause:   err,
		}
	}

	return tmpl, nil
}

// latexDates formats a date range with a LaTeX en dash.
func latexDates(start, end string, current bool) string {
	return EscapeLaTeX(strings.Replace(DateRange(start, end, current), " - ", " -- ", 1))
}

func buildTemplateData(doc types.CVDocument) *TemplateData {
	pi := doc.PersonalInfo
	data := &TemplateData{
		Name:      EscapeLaTeX(pi.FullName),
		Contact:   escapeAll([]string{pi.Email, pi.Phone, pi.Location}),
		Summary:   EscapeLaTeX(strings.TrimSpace(doc.Summary)),
		Skills:    escapeAll(doc.Skills),
		Awards:    escapeAll(doc.Awards),
		Interests: escapeAll(doc.Interests),
	}

	for _, l := range []struct{ label, url string }{
		{"LinkedIn", pi.LinkedIn},
		{"GitHub", pi.GitHub},
		{"Website", pi.Website},
		{"Portfolio", pi.Portfolio},
	} {
		if l.url != "" {
			data.Links = append(data.Links, Link{Label: l.label, URL: escapeURL(l.url)})
		}
	}

	data.Experience = roleSections(doc.Experience)
	data.VolunteerWork = roleSections(doc.VolunteerWork)

	for _, e := range doc.Education {
		data.Education = append(data.Education, EntrySection{
			Title: EscapeLaTeX(e.Degree + inField(e.Field)),
			Org:   EscapeLaTeX(e.School),
			Dates: latexDates(e.StartDate, e.EndDate, e.Current),
		})
	}
	for _, p := range doc.Projects {
		data.Projects = append(data.Projects, EntrySection{
			Title:  EscapeLaTeX(p.Title),
			Dates:  latexDates(p.StartDate, p.EndDate, false),
			Detail: EscapeLaTeX(p.Description),
			Tags:   escapeAll(p.Technologies),
		})
	}
	for _, c := range doc.Certifications {
		data.Certifications = append(data.Certifications, EntrySection{
			Title: EscapeLaTeX(c.Name),
			Org:   EscapeLaTeX(c.Issuer),
			Dates: EscapeLaTeX(c.Date),
		})
	}
	for _, l := range doc.Languages {
		if l.Language == "" {
			continue
		}
		data.Languages = append(data.Languages, EscapeLaTeX(l.Language)+" ("+EscapeLaTeX(l.Proficiency)+")")
	}

	return data
}

// roleSections formats experience entries, most recent first: current roles lead,
// then by end date descending. Entries with equal keys keep document order.
func roleSections(entries []types.Experience) []EntrySection {
	sorted := append([]types.Experience{}, entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Current != b.Current {
			return a.Current
		}
		// YYYY-MM compares lexicographically
		return a.EndDate > b.EndDate
	})

	out := make([]EntrySection, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, EntrySection{
			Title:    EscapeLaTeX(e.Position),
			Org:      EscapeLaTeX(e.Company),
			Location: EscapeLaTeX(e.Location),
			Dates:    latexDates(e.StartDate, e.EndDate, e.Current),
			Detail:   EscapeLaTeX(e.Description),
		})
	}
	return out
}

// escapeURL escapes only what breaks the argument of \href.
func escapeURL(u string) string {
	return strings.NewReplacer(`%`, `\%`, `#`, `\#`, `{`, `%7B`, `}`, `%7D`).Replace(u)
}
