// Package store holds the in-progress CV document of one wizard session and owns its
// persistence lifecycle: wholesale section updates, create-or-update saves, hydration
// from an existing record, and debounced auto-save.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/remote"
	"github.com/jonathan/cv-builder/internal/types"
	"go.uber.org/zap"
)

// FinalStep is the number of the last wizard step. A CV saved on it is complete.
const FinalStep = 9

// DefaultAutosaveDelay is the quiescence window before an edit is auto-saved.
const DefaultAutosaveDelay = 2 * time.Second

// Client is the slice of the persistence client the store needs.
type Client interface {
	CurrentIdentity(ctx context.Context) (uuid.UUID, error)
	ReadCV(ctx context.Context, id uuid.UUID) (*types.CVRecord, error)
	CreateCV(ctx context.Context, rec *types.CVRecord) (uuid.UUID, error)
	UpdateCV(ctx context.Context, id uuid.UUID, patch *types.CVPatch) error
}

// Options configures a Store
type Options struct {
	AutosaveDelay time.Duration // defaults to DefaultAutosaveDelay
	Notifier      Notifier
	Logger        *zap.Logger
	TemplateID    *string
}

// Store is the single source of truth for one in-progress document.
//
// Persist calls are not serialized against each other: a manual save racing a
// just-fired auto-save may issue two writes, and two creates when no id has been
// assigned yet. The first create to return wins the id.
type Store struct {
	client   Client
	notifier Notifier
	logger   *zap.Logger
	delay    time.Duration

	mu         sync.Mutex
	doc        types.CVDocument
	step       int
	cvID       uuid.UUID
	templateID *string

	saving atomic.Int32

	changes   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	loop      sync.WaitGroup
	writes    sync.WaitGroup
}

// New creates a Store holding the initial empty document at step 1 and starts its
// auto-save task. Call Close when the wizard is left.
func New(client Client, opts Options) *Store {
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = DefaultAutosaveDelay
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Store{
		client:     client,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		delay:      opts.AutosaveDelay,
		doc:        types.NewCVDocument(),
		step:       1,
		templateID: opts.TemplateID,
		changes:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	s.loop.Add(1)
	go s.autosave()
	return s
}

// Document returns a copy of the current document.
func (s *Store) Document() types.CVDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Step returns the current wizard step.
func (s *Store) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SetStep moves the session to step. Only the wizard shell should call this.
func (s *Store) SetStep(step int) error {
	if step < 1 || step > FinalStep {
		return &StepRangeError{Step: step}
	}
	s.mu.Lock()
	s.step = step
	s.mu.Unlock()
	return nil
}

// CVID returns the id of the persisted record, or uuid.Nil before the first save.
func (s *Store) CVID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cvID
}

// TemplateID returns the template chosen for the CV, if any.
func (s *Store) TemplateID() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templateID
}

// SetTemplateID sets the template. It is only accepted before the CV is created.
func (s *Store) SetTemplateID(id *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cvID != uuid.Nil {
		return fmt.Errorf("template cannot change after cv %s was created", s.cvID)
	}
	s.templateID = id
	return nil
}

// Saving reports whether a save is in flight.
func (s *Store) Saving() bool {
	return s.saving.Load() > 0
}

// Update replaces the named section wholesale with value and re-arms the auto-save
// timer. value must have the section's Go type (e.g. []types.Education for education).
func (s *Store) Update(section types.Section, value any) error {
	s.mu.Lock()
	next := s.doc
	if err := assign(&next, section, value); err != nil {
		s.mu.Unlock()
		return err
	}
	next.Normalize()
	s.doc = next.Clone()
	armed := s.doc.PersonalInfo.HasIdentity()
	s.mu.Unlock()

	if armed {
		s.signal()
	}
	return nil
}

func assign(doc *types.CVDocument, section types.Section, value any) error {
	ok := true
	switch section {
	case types.SectionPersonalInfo:
		doc.PersonalInfo, ok = value.(types.PersonalInfo)
	case types.SectionEducation:
		doc.Education, ok = value.([]types.Education)
	case types.SectionSkills:
		doc.Skills, ok = value.([]string)
	case types.SectionExperience:
		doc.Experience, ok = value.([]types.Experience)
	case types.SectionSummary:
		doc.Summary, ok = value.(string)
	case types.SectionProjects:
		doc.Projects, ok = value.([]types.Project)
	case types.SectionCertifications:
		doc.Certifications, ok = value.([]types.Certification)
	case types.SectionLanguages:
		doc.Languages, ok = value.([]types.Language)
	case types.SectionReferences:
		doc.References, ok = value.([]types.Reference)
	case types.SectionVolunteerWork:
		doc.VolunteerWork, ok = value.([]types.Experience)
	case types.SectionAwards:
		doc.Awards, ok = value.([]string)
	case types.SectionInterests:
		doc.Interests, ok = value.([]string)
	default:
		return fmt.Errorf("unknown section: %q", section)
	}
	if !ok {
		return &SectionTypeError{Section: section, Got: value}
	}
	return nil
}

// Persist saves the full document, the current step, the derived completion flag and
// the template id. The first successful save creates the record and adopts its id;
// later saves update it. The outcome is also published to the notifier.
func (s *Store) Persist(ctx context.Context) error {
	s.saving.Add(1)
	defer s.saving.Add(-1)

	err := s.persist(ctx)
	if err != nil {
		s.logger.Warn("persist failed", zap.Stringer("cv_id", s.CVID()), zap.Error(err))
		s.notifier.Notify(Notification{
			Level:   LevelError,
			Title:   "Error",
			Message: persistMessage(err),
			At:      time.Now(),
		})
		return err
	}

	s.logger.Debug("persisted cv", zap.Stringer("cv_id", s.CVID()))
	s.notifier.Notify(Notification{
		Level:   LevelInfo,
		Title:   "Saved",
		Message: "Your CV has been saved successfully",
		At:      time.Now(),
	})
	return nil
}

func (s *Store) persist(ctx context.Context) error {
	if _, err := s.client.CurrentIdentity(ctx); err != nil {
		return &PersistError{Op: "identity", Cause: err}
	}

	s.mu.Lock()
	doc := s.doc.Clone()
	step := s.step
	cvID := s.cvID
	templateID := s.templateID
	s.mu.Unlock()

	isComplete := step == FinalStep

	if cvID == uuid.Nil {
		id, err := s.client.CreateCV(ctx, &types.CVRecord{
			Title:       types.TitleFor(doc),
			Data:        doc,
			CurrentStep: step,
			IsComplete:  isComplete,
			TemplateID:  templateID,
		})
		if err != nil {
			return &PersistError{Op: "create", Cause: err}
		}
		s.mu.Lock()
		if s.cvID == uuid.Nil {
			s.cvID = id
		}
		s.mu.Unlock()
		return nil
	}

	err := s.client.UpdateCV(ctx, cvID, &types.CVPatch{
		Data:        doc,
		CurrentStep: step,
		IsComplete:  isComplete,
		TemplateID:  templateID,
	})
	if err != nil {
		return &PersistError{Op: "update", Cause: err}
	}
	return nil
}

func persistMessage(err error) string {
	var authErr *remote.AuthRequiredError
	if errors.As(err, &authErr) {
		return "You must be logged in to save your CV"
	}
	if err != nil {
		return err.Error()
	}
	return "Failed to save CV"
}

// Hydrate replaces the document, step and identifiers with the record stored under id.
// A missing record yields a *remote.NotFoundError; the caller should abandon the session.
func (s *Store) Hydrate(ctx context.Context, id uuid.UUID) error {
	rec, err := s.client.ReadCV(ctx, id)
	if err != nil {
		s.logger.Warn("hydrate failed", zap.Stringer("cv_id", id), zap.Error(err))
		s.notifier.Notify(Notification{
			Level:   LevelError,
			Title:   "Error",
			Message: err.Error(),
			At:      time.Now(),
		})
		return fmt.Errorf("hydrate cv %s: %w", id, err)
	}

	doc := rec.Data.Clone()
	doc.Normalize()
	step := rec.CurrentStep
	if step < 1 || step > FinalStep {
		step = 1
	}

	s.mu.Lock()
	s.doc = doc
	s.step = step
	s.cvID = rec.ID
	s.templateID = rec.TemplateID
	s.mu.Unlock()

	s.logger.Debug("hydrated cv", zap.Stringer("cv_id", rec.ID), zap.Int("step", step))
	return nil
}

// Close disarms a pending auto-save and stops the auto-save task. Writes already in
// flight are not cancelled; use Wait to block until they finish.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.loop.Wait()
}

// Wait blocks until auto-save writes already started have returned.
func (s *Store) Wait() {
	s.writes.Wait()
}
