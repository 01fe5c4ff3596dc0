// Package types provides type definitions for structured data used throughout the cv-builder system.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Section names one top-level slice of a CVDocument. The values match the JSON keys
// of the persisted cv_data payload.
type Section string

// Known document sections
const (
	SectionPersonalInfo   Section = "personalInfo"
	SectionEducation      Section = "education"
	SectionSkills         Section = "skills"
	SectionExperience     Section = "experience"
	SectionSummary        Section = "summary"
	SectionProjects       Section = "projects"
	SectionCertifications Section = "certifications"
	SectionLanguages      Section = "languages"
	SectionReferences     Section = "references"
	SectionVolunteerWork  Section = "volunteerWork"
	SectionAwards         Section = "awards"
	SectionInterests      Section = "interests"
)

// AllSections lists every section in document order.
var AllSections = []Section{
	SectionPersonalInfo,
	SectionEducation,
	SectionSkills,
	SectionExperience,
	SectionSummary,
	SectionProjects,
	SectionCertifications,
	SectionLanguages,
	SectionReferences,
	SectionVolunteerWork,
	SectionAwards,
	SectionInterests,
}

// ParseSection returns the Section for name, or an error if it is unknown.
func ParseSection(name string) (Section, error) {
	for _, s := range AllSections {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown section: %q", name)
}

// PersonalInfo holds the contact block of a CV.
type PersonalInfo struct {
	FullName  string `json:"fullName" yaml:"fullName"`
	Email     string `json:"email" yaml:"email"`
	Phone     string `json:"phone" yaml:"phone"`
	Location  string `json:"location" yaml:"location"`
	LinkedIn  string `json:"linkedin" yaml:"linkedin"`
	Website   string `json:"website" yaml:"website"`
	GitHub    string `json:"github" yaml:"github"`
	Portfolio string `json:"portfolio" yaml:"portfolio"`
}

// HasIdentity reports whether an identity-bearing field (name or email) is set.
func (p PersonalInfo) HasIdentity() bool {
	return p.FullName != "" || p.Email != ""
}

// CVDocument is the complete structured résumé being edited.
type CVDocument struct {
	PersonalInfo   PersonalInfo    `json:"personalInfo" yaml:"personalInfo"`
	Education      []Education     `json:"education" yaml:"education"`
	Skills         []string        `json:"skills" yaml:"skills"`
	Experience     []Experience    `json:"experience" yaml:"experience"`
	Summary        string          `json:"summary" yaml:"summary"`
	Projects       []Project       `json:"projects" yaml:"projects"`
	Certifications []Certification `json:"certifications" yaml:"certifications"`
	Languages      []Language      `json:"languages" yaml:"languages"`
	References     []Reference     `json:"references" yaml:"references"`
	VolunteerWork  []Experience    `json:"volunteerWork" yaml:"volunteerWork"`
	Awards         []string        `json:"awards" yaml:"awards"`
	Interests      []string        `json:"interests" yaml:"interests"`
}

// NewCVDocument returns the initial empty document with every sequence non-nil.
func NewCVDocument() CVDocument {
	return CVDocument{
		Education:      []Education{},
		Skills:         []string{},
		Experience:     []Experience{},
		Projects:       []Project{},
		Certifications: []Certification{},
		Languages:      []Language{},
		References:     []Reference{},
		VolunteerWork:  []Experience{},
		Awards:         []string{},
		Interests:      []string{},
	}
}

// Normalize replaces nil sequences with empty ones so that a document decoded from
// storage compares equal to the one that was written.
func (d *CVDocument) Normalize() {
	if d.Education == nil {
		d.Education = []Education{}
	}
	if d.Skills == nil {
		d.Skills = []string{}
	}
	if d.Experience == nil {
		d.Experience = []Experience{}
	}
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	for i := range d.Projects {
		if d.Projects[i].Technologies == nil {
			d.Projects[i].Technologies = []string{}
		}
	}
	if d.Certifications == nil {
		d.Certifications = []Certification{}
	}
	if d.Languages == nil {
		d.Languages = []Language{}
	}
	if d.References == nil {
		d.References = []Reference{}
	}
	if d.VolunteerWork == nil {
		d.VolunteerWork = []Experience{}
	}
	if d.Awards == nil {
		d.Awards = []string{}
	}
	if d.Interests == nil {
		d.Interests = []string{}
	}
}

// Clone returns a deep copy of the document.
func (d CVDocument) Clone() CVDocument {
	out := d
	out.Education = append([]Education{}, d.Education...)
	out.Skills = append([]string{}, d.Skills...)
	out.Experience = append([]Experience{}, d.Experience...)
	out.Projects = make([]Project, len(d.Projects))
	for i, p := range d.Projects {
		p.Technologies = append([]string{}, p.Technologies...)
		out.Projects[i] = p
	}
	out.Certifications = append([]Certification{}, d.Certifications...)
	out.Languages = append([]Language{}, d.Languages...)
	out.References = append([]Reference{}, d.References...)
	out.VolunteerWork = append([]Experience{}, d.VolunteerWork...)
	out.Awards = append([]string{}, d.Awards...)
	out.Interests = append([]string{}, d.Interests...)
	return out
}

// SectionValue returns the current value of a section as an untyped value whose
// dynamic type is the section's Go type.
func (d CVDocument) SectionValue(section Section) (any, error) {
	switch section {
	case SectionPersonalInfo:
		return d.PersonalInfo, nil
	case SectionEducation:
		return d.Education, nil
	case SectionSkills:
		return d.Skills, nil
	case SectionExperience:
		return d.Experience, nil
	case SectionSummary:
		return d.Summary, nil
	case SectionProjects:
		return d.Projects, nil
	case SectionCertifications:
		return d.Certifications, nil
	case SectionLanguages:
		return d.Languages, nil
	case SectionReferences:
		return d.References, nil
	case SectionVolunteerWork:
		return d.VolunteerWork, nil
	case SectionAwards:
		return d.Awards, nil
	case SectionInterests:
		return d.Interests, nil
	default:
		return nil, fmt.Errorf("unknown section: %q", section)
	}
}

// DecodeSection decodes the JSON form of a section into the section's Go type.
func DecodeSection(section Section, raw []byte) (any, error) {
	var (
		v   any
		err error
	)
	switch section {
	case SectionPersonalInfo:
		var p PersonalInfo
		err = json.Unmarshal(raw, &p)
		v = p
	case SectionEducation:
		var e []Education
		err = json.Unmarshal(raw, &e)
		v = e
	case SectionExperience, SectionVolunteerWork:
		var e []Experience
		err = json.Unmarshal(raw, &e)
		v = e
	case SectionProjects:
		var p []Project
		err = json.Unmarshal(raw, &p)
		v = p
	case SectionCertifications:
		var c []Certification
		err = json.Unmarshal(raw, &c)
		v = c
	case SectionLanguages:
		var l []Language
		err = json.Unmarshal(raw, &l)
		v = l
	case SectionReferences:
		var r []Reference
		err = json.Unmarshal(raw, &r)
		v = r
	case SectionSkills, SectionAwards, SectionInterests:
		var s []string
		err = json.Unmarshal(raw, &s)
		v = s
	case SectionSummary:
		var s string
		err = json.Unmarshal(raw, &s)
		v = s
	default:
		return nil, fmt.Errorf("unknown section: %q", section)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", section, err)
	}
	return v, nil
}

// AddSkill appends a trimmed skill unless it is blank or already present.
// The returned bool reports whether the sequence changed.
func AddSkill(skills []string, skill string) ([]string, bool) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return skills, false
	}
	for _, s := range skills {
		if s == skill {
			return skills, false
		}
	}
	out := make([]string, 0, len(skills)+1)
	out = append(out, skills...)
	return append(out, skill), true
}

// RemoveSkill drops every occurrence of skill.
func RemoveSkill(skills []string, skill string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if s != skill {
			out = append(out, s)
		}
	}
	return out
}

// ParseTechnologies splits a comma-delimited string into trimmed tags.
// Empty segments are kept so that the editing field round-trips as typed.
func ParseTechnologies(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
