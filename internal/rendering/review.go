package rendering

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/cv-builder/internal/types"
)

// Review is the read-only summary shown on the final wizard step. Sections with no
// content are omitted.
type Review struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Phone    string          `json:"phone,omitempty"`
	Location string          `json:"location,omitempty"`
	Links    []string        `json:"links"`
	Summary  string          `json:"summary,omitempty"`
	Sections []ReviewSection `json:"sections"`
}

// ReviewSection is one titled block of the review
type ReviewSection struct {
	Key   types.Section `json:"key"`
	Title string        `json:"title"`
	Items []ReviewItem  `json:"items,omitempty"`
	Tags  []string      `json:"tags,omitempty"` // badge-style sections: skills, languages, interests
}

// ReviewItem is one entry of a list-style section
type ReviewItem struct {
	Heading    string   `json:"heading"`
	Subheading string   `json:"subheading,omitempty"`
	Dates      string   `json:"dates,omitempty"`
	Detail     string   `json:"detail,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// DateRange formats a start/end pair, showing "Present" for a current entry.
func DateRange(start, end string, current bool) string {
	if current {
		end = "Present"
	}
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start
	}
	return start + " - " + end
}

// BuildReview assembles the review of doc.
func BuildReview(doc types.CVDocument) *Review {
	pi := doc.PersonalInfo
	r := &Review{
		Name:     pi.FullName,
		Email:    pi.Email,
		Phone:    pi.Phone,
		Location: pi.Location,
		Links:    linkBadges(pi),
		Summary:  doc.Summary,
		Sections: []ReviewSection{},
	}

	if len(doc.Education) > 0 {
		s := ReviewSection{Key: types.SectionEducation, Title: counted("Education", len(doc.Education))}
		for _, e := range doc.Education {
			s.Items = append(s.Items, ReviewItem{
				Heading:    e.Degree + inField(e.Field),
				Subheading: e.School,
				Dates:      DateRange(e.StartDate, e.EndDate, e.Current),
			})
		}
		r.Sections = append(r.Sections, s)
	}

	if len(doc.Skills) > 0 {
		r.Sections = append(r.Sections, ReviewSection{
			Key:   types.SectionSkills,
			Title: counted("Skills", len(doc.Skills)),
			Tags:  append([]string{}, doc.Skills...),
		})
	}

	if len(doc.Experience) > 0 {
		r.Sections = append(r.Sections, experienceSection(types.SectionExperience, "Work Experience", doc.Experience))
	}

	if len(doc.Projects) > 0 {
		s := ReviewSection{Key: types.SectionProjects, Title: counted("Projects", len(doc.Projects))}
		for _, p := range doc.Projects {
			s.Items = append(s.Items, ReviewItem{
				Heading: p.Title,
				Dates:   DateRange(p.StartDate, p.EndDate, false),
				Detail:  p.Description,
				Tags:    append([]string{}, p.Technologies...),
			})
		}
		r.Sections = append(r.Sections, s)
	}

	if len(doc.Certifications) > 0 {
		s := ReviewSection{Key: types.SectionCertifications, Title: counted("Certifications", len(doc.Certifications))}
		for _, c := range doc.Certifications {
			s.Items = append(s.Items, ReviewItem{
				Heading:    c.Name,
				Subheading: c.Issuer,
				Dates:      c.Date,
			})
		}
		r.Sections = append(r.Sections, s)
	}

	if len(doc.Languages) > 0 {
		s := ReviewSection{Key: types.SectionLanguages, Title: counted("Languages", len(doc.Languages))}
		for _, l := range doc.Languages {
			s.Tags = append(s.Tags, l.Language+" - "+l.Proficiency)
		}
		r.Sections = append(r.Sections, s)
	}

	if len(doc.VolunteerWork) > 0 {
		r.Sections = append(r.Sections, experienceSection(types.SectionVolunteerWork, "Volunteer Work", doc.VolunteerWork))
	}

	if len(doc.Awards) > 0 {
		s := ReviewSection{Key: types.SectionAwards, Title: counted("Awards & Achievements", len(doc.Awards))}
		for _, a := range doc.Awards {
			s.Items = append(s.Items, ReviewItem{Heading: a})
		}
		r.Sections = append(r.Sections, s)
	}

	if len(doc.Interests) > 0 {
		r.Sections = append(r.Sections, ReviewSection{
			Key:   types.SectionInterests,
			Title: "Interests",
			Tags:  append([]string{}, doc.Interests...),
		})
	}

	return r
}

func experienceSection(key types.Section, title string, entries []types.Experience) ReviewSection {
	s := ReviewSection{Key: key, Title: counted(title, len(entries))}
	for _, e := range entries {
		s.Items = append(s.Items, ReviewItem{
			Heading:    e.Position,
			Subheading: joinNonEmpty(" • ", e.Company, e.Location),
			Dates:      DateRange(e.StartDate, e.EndDate, e.Current),
			Detail:     e.Description,
		})
	}
	return s
}

func linkBadges(pi types.PersonalInfo) []string {
	links := []string{}
	if pi.LinkedIn != "" {
		links = append(links, "LinkedIn")
	}
	if pi.GitHub != "" {
		links = append(links, "GitHub")
	}
	if pi.Website != "" {
		links = append(links, "Website")
	}
	if pi.Portfolio != "" {
		links = append(links, "Portfolio")
	}
	return links
}

func counted(title string, n int) string {
	return fmt.Sprintf("%s (%d)", title, n)
}

func inField(field string) string {
	if field == "" {
		return ""
	}
	return " in " + field
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// WriteText writes the review as plain text.
func (r *Review) WriteText(w io.Writer) error {
	var b strings.Builder

	b.WriteString("Personal Information\n")
	fmt.Fprintf(&b, "  %s\n", r.Name)
	for _, line := range []string{r.Email, r.Phone, r.Location} {
		if line != "" {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	if len(r.Links) > 0 {
		fmt.Fprintf(&b, "  [%s]\n", strings.Join(r.Links, "] ["))
	}

	if r.Summary != "" {
		fmt.Fprintf(&b, "\nProfessional Summary\n  %s\n", r.Summary)
	}

	for _, s := range r.Sections {
		fmt.Fprintf(&b, "\n%s\n", s.Title)
		for _, it := range s.Items {
			fmt.Fprintf(&b, "  - %s\n", it.Heading)
			if it.Subheading != "" {
				fmt.Fprintf(&b, "    %s\n", it.Subheading)
			}
			if it.Dates != "" {
				fmt.Fprintf(&b, "    %s\n", it.Dates)
			}
			if it.Detail != "" {
				fmt.Fprintf(&b, "    %s\n", it.Detail)
			}
			if len(it.Tags) > 0 {
				fmt.Fprintf(&b, "    %s\n", strings.Join(it.Tags, ", "))
			}
		}
		if len(s.Tags) > 0 {
			fmt.Fprintf(&b, "  %s\n", strings.Join(s.Tags, ", "))
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return &RenderError{Message: "failed to write review", Cause: err}
	}
	return nil
}
