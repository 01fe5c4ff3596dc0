package types

import (
	"fmt"

	"github.com/google/uuid"
)

// Entry is one identifiable item within a repeated section.
type Entry interface {
	EntryID() string
}

// Education represents an education entry
type Education struct {
	ID        string `json:"id" yaml:"id"`
	School    string `json:"school" yaml:"school"`
	Degree    string `json:"degree" yaml:"degree"`
	Field     string `json:"field" yaml:"field"`
	StartDate string `json:"startDate" yaml:"startDate"` // YYYY-MM or empty
	EndDate   string `json:"endDate" yaml:"endDate"`
	Current   bool   `json:"current" yaml:"current"`
}

// Experience represents a work or volunteer position
type Experience struct {
	ID          string `json:"id" yaml:"id"`
	Company     string `json:"company" yaml:"company"`
	Position    string `json:"position" yaml:"position"`
	Location    string `json:"location" yaml:"location"`
	StartDate   string `json:"startDate" yaml:"startDate"`
	EndDate     string `json:"endDate" yaml:"endDate"`
	Current     bool   `json:"current" yaml:"current"`
	Description string `json:"description" yaml:"description"`
}

// Project represents a personal or professional project
type Project struct {
	ID           string   `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	Description  string   `json:"description" yaml:"description"`
	Technologies []string `json:"technologies" yaml:"technologies"`
	Link         string   `json:"link" yaml:"link"`
	StartDate    string   `json:"startDate" yaml:"startDate"`
	EndDate      string   `json:"endDate" yaml:"endDate"`
}

// Certification represents a certificate. It has no current flag.
type Certification struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Issuer       string `json:"issuer" yaml:"issuer"`
	Date         string `json:"date" yaml:"date"`
	ExpiryDate   string `json:"expiryDate" yaml:"expiryDate"`
	CredentialID string `json:"credentialId" yaml:"credentialId"`
}

// Language represents a spoken language and its proficiency
type Language struct {
	ID          string `json:"id" yaml:"id"`
	Language    string `json:"language" yaml:"language"`
	Proficiency string `json:"proficiency" yaml:"proficiency"`
}

// Reference is stored with the document but no wizard step edits it.
type Reference struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Position string `json:"position" yaml:"position"`
	Company  string `json:"company" yaml:"company"`
	Email    string `json:"email" yaml:"email"`
	Phone    string `json:"phone" yaml:"phone"`
}

// Proficiency levels offered for language entries
const (
	ProficiencyNative       = "native"
	ProficiencyFluent       = "fluent"
	ProficiencyAdvanced     = "advanced"
	ProficiencyIntermediate = "intermediate"
	ProficiencyBeginner     = "beginner"
)

// Proficiencies lists the allowed proficiency values, strongest first.
var Proficiencies = []string{
	ProficiencyNative,
	ProficiencyFluent,
	ProficiencyAdvanced,
	ProficiencyIntermediate,
	ProficiencyBeginner,
}

func (e Education) EntryID() string     { return e.ID }
func (e Experience) EntryID() string    { return e.ID }
func (p Project) EntryID() string       { return p.ID }
func (c Certification) EntryID() string { return c.ID }
func (l Language) EntryID() string      { return l.ID }
func (r Reference) EntryID() string     { return r.ID }

// NewEntryID returns a fresh identifier for an entry.
func NewEntryID() string {
	return uuid.NewString()
}

// AppendEntry returns a new slice with e appended.
func AppendEntry[T Entry](entries []T, e T) []T {
	out := make([]T, 0, len(entries)+1)
	out = append(out, entries...)
	return append(out, e)
}

// RemoveEntry returns a new slice without the entry whose id matches.
func RemoveEntry[T Entry](entries []T, id string) ([]T, bool) {
	out := make([]T, 0, len(entries))
	removed := false
	for _, e := range entries {
		if e.EntryID() == id {
			removed = true
			continue
		}
		out = append(out, e)
	}
	return out, removed
}

// PatchEntry returns a new slice where patch has been applied to the entry with id.
func PatchEntry[T Entry](entries []T, id string, patch func(*T) error) ([]T, error) {
	out := make([]T, len(entries))
	copy(out, entries)
	for i := range out {
		if out[i].EntryID() == id {
			if err := patch(&out[i]); err != nil {
				return nil, err
			}
			return out, nil
		}
	}
	return nil, &EntryNotFoundError{ID: id}
}

// EntryNotFoundError indicates no entry in a section carries the given id
type EntryNotFoundError struct {
	ID string
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("entry not found: %s", e.ID)
}

// FieldError indicates an entry field name or value is not accepted
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Message)
}

func stringValue(field string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", &FieldError{Field: field, Message: fmt.Sprintf("expected string, got %T", value)}
	}
	return s, nil
}

func boolValue(field string, value any) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, &FieldError{Field: field, Message: fmt.Sprintf("expected bool, got %T", value)}
	}
	return b, nil
}

// SetField sets one field by its JSON name.
func (e *Education) SetField(field string, value any) error {
	if field == "current" {
		b, err := boolValue(field, value)
		if err != nil {
			return err
		}
		e.Current = b
		return nil
	}
	s, err := stringValue(field, value)
	if err != nil {
		return err
	}
	switch field {
	case "school":
		e.School = s
	case "degree":
		e.Degree = s
	case "field":
		e.Field = s
	case "startDate":
		e.StartDate = s
	case "endDate":
		e.EndDate = s
	default:
		return &FieldError{Field: field, Message: "unknown education field"}
	}
	return nil
}

// SetField sets one field by its JSON name.
func (e *Experience) SetField(field string, value any) error {
	if field == "current" {
		b, err := boolValue(field, value)
		if err != nil {
			return err
		}
		e.Current = b
		return nil
	}
	s, err := stringValue(field, value)
	if err != nil {
		return err
	}
	switch field {
	case "company":
		e.Company = s
	case "position":
		e.Position = s
	case "location":
		e.Location = s
	case "startDate":
		e.StartDate = s
	case "endDate":
		e.EndDate = s
	case "description":
		e.Description = s
	default:
		return &FieldError{Field: field, Message: "unknown experience field"}
	}
	return nil
}

// SetField sets one field by its JSON name. Technologies accept either a
// comma-delimited string or a list of strings.
func (p *Project) SetField(field string, value any) error {
	if field == "technologies" {
		switch v := value.(type) {
		case string:
			p.Technologies = ParseTechnologies(v)
		case []string:
			p.Technologies = append([]string{}, v...)
		case []any:
			tags := make([]string, 0, len(v))
			for _, t := range v {
				s, err := stringValue(field, t)
				if err != nil {
					return err
				}
				tags = append(tags, s)
			}
			p.Technologies = tags
		default:
			return &FieldError{Field: field, Message: fmt.Sprintf("expected string or list, got %T", value)}
		}
		return nil
	}
	s, err := stringValue(field, value)
	if err != nil {
		return err
	}
	switch field {
	case "title":
		p.Title = s
	case "description":
		p.Description = s
	case "link":
		p.Link = s
	case "startDate":
		p.StartDate = s
	case "endDate":
		p.EndDate = s
	default:
		return &FieldError{Field: field, Message: "unknown project field"}
	}
	return nil
}

// SetField sets one field by its JSON name.
func (c *Certification) SetField(field string, value any) error {
	s, err := stringValue(field, value)
	if err != nil {
		return err
	}
	switch field {
	case "name":
		c.Name = s
	case "issuer":
		c.Issuer = s
	case "date":
		c.Date = s
	case "expiryDate":
		c.ExpiryDate = s
	case "credentialId":
		c.CredentialID = s
	default:
		return &FieldError{Field: field, Message: "unknown certification field"}
	}
	return nil
}

// SetField sets one field by its JSON name. Proficiency must be one of Proficiencies.
func (l *Language) SetField(field string, value any) error {
	s, err := stringValue(field, value)
	if err != nil {
		return err
	}
	switch field {
	case "language":
		l.Language = s
	case "proficiency":
		if !validProficiency(s) {
			return &FieldError{Field: field, Message: fmt.Sprintf("unsupported proficiency %q", s)}
		}
		l.Proficiency = s
	default:
		return &FieldError{Field: field, Message: "unknown language field"}
	}
	return nil
}

func validProficiency(p string) bool {
	for _, v := range Proficiencies {
		if v == p {
			return true
		}
	}
	return false
}
