package types

import (
	"time"

	"github.com/google/uuid"
)

// UntitledCV is the title given to a CV created before a name was entered.
const UntitledCV = "Untitled CV"

// CVRecord is the persisted form of one CV
type CVRecord struct {
	ID          uuid.UUID  `json:"id" yaml:"id"`
	UserID      uuid.UUID  `json:"user_id" yaml:"user_id"`
	Title       string     `json:"title" yaml:"title"`
	Data        CVDocument `json:"cv_data" yaml:"cv_data"`
	CurrentStep int        `json:"current_step" yaml:"current_step"`
	IsComplete  bool       `json:"is_complete" yaml:"is_complete"`
	TemplateID  *string    `json:"template_id" yaml:"template_id"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
}

// CVPatch carries the fields written by an update keyed by CV id
type CVPatch struct {
	Data        CVDocument `json:"cv_data"`
	CurrentStep int        `json:"current_step"`
	IsComplete  bool       `json:"is_complete"`
	TemplateID  *string    `json:"template_id"`
}

// CVSummary is the dashboard projection of a CV
type CVSummary struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	UpdatedAt  time.Time `json:"updated_at"`
	IsComplete bool      `json:"is_complete"`
}

// Template is a selectable CV layout
type Template struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TitleFor derives the record title from a document at create time.
func TitleFor(doc CVDocument) string {
	if doc.PersonalInfo.FullName != "" {
		return doc.PersonalInfo.FullName
	}
	return UntitledCV
}
