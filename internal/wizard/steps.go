// Package wizard implements the nine-step CV wizard: the per-step editing operations,
// the linear step machine with its gating rules, and the sessions that hold one
// store per open wizard.
package wizard

import (
	"fmt"

	"github.com/jonathan/cv-builder/internal/store"
	"github.com/jonathan/cv-builder/internal/types"
)

// StepDefinition defines metadata for a wizard step
type StepDefinition struct {
	Number   int
	Title    string
	Required bool
	Sections []types.Section
	// Satisfied reports whether Next may leave the step. Nil means always.
	Satisfied func(doc types.CVDocument) bool
}

// Steps lists the wizard steps in order. Steps 1-5 are required, the rest optional.
var Steps = []StepDefinition{
	{
		Number:    1,
		Title:     "Personal Info",
		Required:  true,
		Sections:  []types.Section{types.SectionPersonalInfo},
		Satisfied: personalInfoComplete,
	},
	{
		Number:   2,
		Title:    "Education",
		Required: true,
		Sections: []types.Section{types.SectionEducation},
	},
	{
		Number:   3,
		Title:    "Skills",
		Required: true,
		Sections: []types.Section{types.SectionSkills},
		Satisfied: func(doc types.CVDocument) bool {
			return len(doc.Skills) > 0
		},
	},
	{
		Number:   4,
		Title:    "Experience",
		Required: true,
		Sections: []types.Section{types.SectionExperience},
	},
	{
		Number:   5,
		Title:    "Summary",
		Required: true,
		Sections: []types.Section{types.SectionSummary},
		Satisfied: func(doc types.CVDocument) bool {
			return doc.Summary != ""
		},
	},
	{
		Number:   6,
		Title:    "Projects",
		Sections: []types.Section{types.SectionProjects},
	},
	{
		Number:   7,
		Title:    "Certifications",
		Sections: []types.Section{types.SectionCertifications},
	},
	{
		Number:   8,
		Title:    "Languages",
		Sections: []types.Section{types.SectionLanguages},
	},
	{
		Number:   9,
		Title:    "Additional",
		Sections: []types.Section{types.SectionAwards, types.SectionInterests, types.SectionVolunteerWork},
	},
}

func init() {
	if len(Steps) != store.FinalStep {
		panic(fmt.Sprintf("wizard defines %d steps, store expects %d", len(Steps), store.FinalStep))
	}
}

func personalInfoComplete(doc types.CVDocument) bool {
	p := doc.PersonalInfo
	return p.FullName != "" && p.Email != "" && p.Phone != ""
}

// Lookup returns the definition of step n.
func Lookup(n int) (StepDefinition, error) {
	if n < 1 || n > len(Steps) {
		return StepDefinition{}, &store.StepRangeError{Step: n}
	}
	return Steps[n-1], nil
}

// StepSatisfied reports whether step n's required fields are present in doc.
func StepSatisfied(doc types.CVDocument, n int) bool {
	def, err := Lookup(n)
	if err != nil {
		return false
	}
	if def.Satisfied == nil {
		return true
	}
	return def.Satisfied(doc)
}

// MissingFields names the fields that keep step n from being satisfied.
func MissingFields(doc types.CVDocument, n int) []string {
	var missing []string
	switch n {
	case 1:
		p := doc.PersonalInfo
		if p.FullName == "" {
			missing = append(missing, "fullName")
		}
		if p.Email == "" {
			missing = append(missing, "email")
		}
		if p.Phone == "" {
			missing = append(missing, "phone")
		}
	case 3:
		if len(doc.Skills) == 0 {
			missing = append(missing, "skills")
		}
	case 5:
		if doc.Summary == "" {
			missing = append(missing, "summary")
		}
	}
	return missing
}

// ProgressPercent is the share of the wizard behind step, from 0 on the first step to 100 on the last.
func ProgressPercent(step int) float64 {
	if step <= 1 {
		return 0
	}
	if step >= len(Steps) {
		return 100
	}
	return float64(step-1) / float64(len(Steps)-1) * 100
}
