package types

import (
	"github.com/google/uuid"
)

// StartSessionRequest opens a wizard session. CVID resumes an existing CV;
// TemplateID applies only to a CV that has not been created yet.
type StartSessionRequest struct {
	TemplateID *string    `json:"template_id,omitempty"`
	CVID       *uuid.UUID `json:"cv_id,omitempty"`
}

// PatchEntryRequest sets one field of one entry.
type PatchEntryRequest struct {
	Field string `json:"field" validate:"required"`
	Value any    `json:"value"`
}

// SkillRequest adds a skill.
type SkillRequest struct {
	Skill string `json:"skill" validate:"required"`
}

// ItemRequest sets the text of one award or interest.
type ItemRequest struct {
	Value string `json:"value"`
}

// Validate validates the PatchEntryRequest.
func (r *PatchEntryRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the SkillRequest.
func (r *SkillRequest) Validate() error {
	return validate.Struct(r)
}
