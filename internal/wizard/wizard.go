package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/cv-builder/internal/types"
)

// StepStore is the part of the store the shell drives.
type StepStore interface {
	Updater
	Step() int
	SetStep(step int) error
	Persist(ctx context.Context) error
}

// StepIncompleteError indicates Next was refused because the step's required fields are missing
type StepIncompleteError struct {
	Step    int
	Missing []string
}

func (e *StepIncompleteError) Error() string {
	return fmt.Sprintf("step %d incomplete: missing %s", e.Step, strings.Join(e.Missing, ", "))
}

// Transition describes the outcome of a navigation action.
type Transition struct {
	From     int  `json:"from"`
	To       int  `json:"to"`
	Finished bool `json:"finished"`
	Saved    bool `json:"saved"`
	// SaveErr is the persist failure of a Next. The step still advances.
	SaveErr error `json:"-"`
}

// Shell is the linear nine-step machine over a store.
type Shell struct {
	store StepStore
}

// NewShell creates a Shell driving st.
func NewShell(st StepStore) *Shell {
	return &Shell{store: st}
}

func lastStep() int { return len(Steps) }

// Next persists and then advances. It is refused while the current step is not
// satisfied. On the last step it persists and finishes the wizard.
func (sh *Shell) Next(ctx context.Context) (Transition, error) {
	step := sh.store.Step()
	doc := sh.store.Document()
	if !StepSatisfied(doc, step) {
		return Transition{From: step, To: step}, &StepIncompleteError{Step: step, Missing: MissingFields(doc, step)}
	}

	err := sh.store.Persist(ctx)
	t := Transition{From: step, To: step, Saved: err == nil, SaveErr: err}
	if step >= lastStep() {
		t.Finished = true
		return t, nil
	}
	if err := sh.store.SetStep(step + 1); err != nil {
		return t, err
	}
	t.To = step + 1
	return t, nil
}

// Skip advances without gating or saving. On the last step it finishes the wizard.
func (sh *Shell) Skip() (Transition, error) {
	step := sh.store.Step()
	t := Transition{From: step, To: step}
	if step >= lastStep() {
		t.Finished = true
		return t, nil
	}
	if err := sh.store.SetStep(step + 1); err != nil {
		return t, err
	}
	t.To = step + 1
	return t, nil
}

// Back moves to the previous step. It stays on the first step.
func (sh *Shell) Back() (Transition, error) {
	step := sh.store.Step()
	t := Transition{From: step, To: step}
	if step <= 1 {
		return t, nil
	}
	if err := sh.store.SetStep(step - 1); err != nil {
		return t, err
	}
	t.To = step - 1
	return t, nil
}

// StepStatus is the navigation view of one step.
type StepStatus struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Required  bool   `json:"required"`
	Satisfied bool   `json:"satisfied"`
}

// Status is the navigation view of the whole wizard.
type Status struct {
	Step       int          `json:"current_step"`
	Title      string       `json:"title"`
	Progress   float64      `json:"progress"`
	CanAdvance bool         `json:"can_advance"`
	CanGoBack  bool         `json:"can_go_back"`
	Optional   bool         `json:"optional"`
	Last       bool         `json:"last"`
	Missing    []string     `json:"missing,omitempty"`
	Steps      []StepStatus `json:"steps"`
}

// Status reports where the wizard is and which steps are satisfied by the document.
func (sh *Shell) Status() Status {
	return BuildStatus(sh.store.Document(), sh.store.Step())
}

// BuildStatus derives the wizard status for doc at step.
func BuildStatus(doc types.CVDocument, step int) Status {
	def, err := Lookup(step)
	if err != nil {
		def = Steps[0]
		step = 1
	}

	st := Status{
		Step:       step,
		Title:      def.Title,
		Progress:   ProgressPercent(step),
		CanAdvance: StepSatisfied(doc, step),
		CanGoBack:  step > 1,
		Optional:   !def.Required,
		Last:       step == lastStep(),
		Missing:    MissingFields(doc, step),
		Steps:      make([]StepStatus, 0, len(Steps)),
	}
	for _, s := range Steps {
		st.Steps = append(st.Steps, StepStatus{
			Number:    s.Number,
			Title:     s.Title,
			Required:  s.Required,
			Satisfied: StepSatisfied(doc, s.Number),
		})
	}
	return st
}
