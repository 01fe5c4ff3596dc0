package wizard

import (
	"fmt"

	"github.com/jonathan/cv-builder/internal/types"
)

// Updater is the part of the store the step views edit through. Every edit reads the
// current document and writes the affected section back wholesale.
type Updater interface {
	Document() types.CVDocument
	Update(section types.Section, value any) error
}

// SectionKindError indicates an operation was applied to a section of the wrong shape
type SectionKindError struct {
	Section types.Section
	Want    string
}

func (e *SectionKindError) Error() string {
	return fmt.Sprintf("section %s does not hold %s", e.Section, e.Want)
}

// IndexRangeError indicates a list position outside the section
type IndexRangeError struct {
	Section types.Section
	Index   int
	Len     int
}

func (e *IndexRangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range (len %d)", e.Section, e.Index, e.Len)
}

// EntrySections are the sections made of identified entries.
var EntrySections = []types.Section{
	types.SectionEducation,
	types.SectionExperience,
	types.SectionProjects,
	types.SectionCertifications,
	types.SectionLanguages,
	types.SectionVolunteerWork,
}

// freshID returns an id not carried by any of entries.
func freshID[T types.Entry](entries []T) string {
	for {
		id := types.NewEntryID()
		taken := false
		for _, e := range entries {
			if e.EntryID() == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

// AddEntry appends an empty entry with a fresh id to section and returns the id.
// New language entries start at intermediate proficiency.
func AddEntry(u Updater, section types.Section) (string, error) {
	doc := u.Document()
	var id string
	var value any

	switch section {
	case types.SectionEducation:
		id = freshID(doc.Education)
		value = types.AppendEntry(doc.Education, types.Education{ID: id})
	case types.SectionExperience:
		id = freshID(doc.Experience)
		value = types.AppendEntry(doc.Experience, types.Experience{ID: id})
	case types.SectionVolunteerWork:
		id = freshID(doc.VolunteerWork)
		value = types.AppendEntry(doc.VolunteerWork, types.Experience{ID: id})
	case types.SectionProjects:
		id = freshID(doc.Projects)
		value = types.AppendEntry(doc.Projects, types.Project{ID: id, Technologies: []string{}})
	case types.SectionCertifications:
		id = freshID(doc.Certifications)
		value = types.AppendEntry(doc.Certifications, types.Certification{ID: id})
	case types.SectionLanguages:
		id = freshID(doc.Languages)
		value = types.AppendEntry(doc.Languages, types.Language{ID: id, Proficiency: types.ProficiencyIntermediate})
	default:
		return "", &SectionKindError{Section: section, Want: "entries"}
	}

	if err := u.Update(section, value); err != nil {
		return "", err
	}
	return id, nil
}

func removeByID[T types.Entry](entries []T, id string) ([]T, error) {
	out, removed := types.RemoveEntry(entries, id)
	if !removed {
		return nil, &types.EntryNotFoundError{ID: id}
	}
	return out, nil
}

// RemoveEntry deletes the entry with id from section. Other entries are untouched
// even when their fields are identical.
func RemoveEntry(u Updater, section types.Section, id string) error {
	doc := u.Document()
	var value any
	var err error

	switch section {
	case types.SectionEducation:
		value, err = removeByID(doc.Education, id)
	case types.SectionExperience:
		value, err = removeByID(doc.Experience, id)
	case types.SectionVolunteerWork:
		value, err = removeByID(doc.VolunteerWork, id)
	case types.SectionProjects:
		value, err = removeByID(doc.Projects, id)
	case types.SectionCertifications:
		value, err = removeByID(doc.Certifications, id)
	case types.SectionLanguages:
		value, err = removeByID(doc.Languages, id)
	default:
		return &SectionKindError{Section: section, Want: "entries"}
	}
	if err != nil {
		return err
	}
	return u.Update(section, value)
}

func patchField[T types.Entry, PT interface {
	*T
	SetField(field string, value any) error
}](entries []T, id, field string, value any) ([]T, error) {
	return types.PatchEntry(entries, id, func(e *T) error {
		return PT(e).SetField(field, value)
	})
}

// PatchEntry sets one field of the entry with id in section.
func PatchEntry(u Updater, section types.Section, id, field string, value any) error {
	doc := u.Document()
	var next any
	var err error

	switch section {
	case types.SectionEducation:
		next, err = patchField(doc.Education, id, field, value)
	case types.SectionExperience:
		next, err = patchField(doc.Experience, id, field, value)
	case types.SectionVolunteerWork:
		next, err = patchField(doc.VolunteerWork, id, field, value)
	case types.SectionProjects:
		next, err = patchField(doc.Projects, id, field, value)
	case types.SectionCertifications:
		next, err = patchField(doc.Certifications, id, field, value)
	case types.SectionLanguages:
		next, err = patchField(doc.Languages, id, field, value)
	default:
		return &SectionKindError{Section: section, Want: "entries"}
	}
	if err != nil {
		return err
	}
	return u.Update(section, next)
}

// AddSkill adds a trimmed skill. Blank and duplicate skills leave the document
// unchanged and report false.
func AddSkill(u Updater, skill string) (bool, error) {
	skills, changed := types.AddSkill(u.Document().Skills, skill)
	if !changed {
		return false, nil
	}
	return true, u.Update(types.SectionSkills, skills)
}

// RemoveSkill removes skill from the skills section.
func RemoveSkill(u Updater, skill string) error {
	return u.Update(types.SectionSkills, types.RemoveSkill(u.Document().Skills, skill))
}

func listSection(doc types.CVDocument, section types.Section) ([]string, error) {
	switch section {
	case types.SectionAwards:
		return doc.Awards, nil
	case types.SectionInterests:
		return doc.Interests, nil
	default:
		return nil, &SectionKindError{Section: section, Want: "a free-text list"}
	}
}

// AddItem appends a blank item to awards or interests and returns its index.
func AddItem(u Updater, section types.Section) (int, error) {
	items, err := listSection(u.Document(), section)
	if err != nil {
		return 0, err
	}
	next := append(append([]string{}, items...), "")
	if err := u.Update(section, next); err != nil {
		return 0, err
	}
	return len(next) - 1, nil
}

// SetItem replaces the item at index in awards or interests.
func SetItem(u Updater, section types.Section, index int, value string) error {
	items, err := listSection(u.Document(), section)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(items) {
		return &IndexRangeError{Section: section, Index: index, Len: len(items)}
	}
	next := append([]string{}, items...)
	next[index] = value
	return u.Update(section, next)
}

// RemoveItem deletes the item at index from awards or interests.
func RemoveItem(u Updater, section types.Section, index int) error {
	items, err := listSection(u.Document(), section)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(items) {
		return &IndexRangeError{Section: section, Index: index, Len: len(items)}
	}
	next := make([]string, 0, len(items)-1)
	next = append(next, items[:index]...)
	next = append(next, items[index+1:]...)
	return u.Update(section, next)
}
