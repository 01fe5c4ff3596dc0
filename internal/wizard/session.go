package wizard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/remote"
	"github.com/jonathan/cv-builder/internal/store"
	"github.com/jonathan/cv-builder/internal/types"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown sessions and for sessions of another user.
var ErrSessionNotFound = errors.New("wizard session not found")

// Session is one open wizard. It owns its store and serializes edits to it.
type Session struct {
	id       uuid.UUID
	owner    uuid.UUID
	identity *remote.TokenIdentity

	mu     sync.Mutex
	store  *store.Store
	shell  *Shell
	events *store.Broadcaster

	lastUsed atomic.Int64
	release  func()
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// Owner returns the user the session belongs to.
func (s *Session) Owner() uuid.UUID { return s.owner }

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// RefreshToken replaces the bearer token the session's saves are authorized with.
func (s *Session) RefreshToken(token string) {
	if s.identity != nil {
		s.identity.SetToken(token)
	}
}

// Subscribe streams the session's save notifications.
func (s *Session) Subscribe() (<-chan store.Notification, func()) {
	return s.events.Subscribe()
}

// Document returns a copy of the document being edited.
func (s *Session) Document() types.CVDocument {
	s.touch()
	return s.store.Document()
}

// CVID returns the id of the persisted CV, or uuid.Nil before the first save.
func (s *Session) CVID() uuid.UUID {
	return s.store.CVID()
}

// View is the client-facing snapshot of a session.
type View struct {
	SessionID  uuid.UUID        `json:"session_id"`
	CVID       *uuid.UUID       `json:"cv_id"`
	TemplateID *string          `json:"template_id"`
	Saving     bool             `json:"saving"`
	Status     Status           `json:"status"`
	Document   types.CVDocument `json:"cv_data"`
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	v := View{
		SessionID:  s.id,
		TemplateID: s.store.TemplateID(),
		Saving:     s.store.Saving(),
		Status:     s.shell.Status(),
		Document:   s.store.Document(),
	}
	if id := s.store.CVID(); id != uuid.Nil {
		v.CVID = &id
	}
	return v
}

func (s *Session) edit(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return fn()
}

// ReplaceSection replaces section wholesale with value.
func (s *Session) ReplaceSection(section types.Section, value any) error {
	return s.edit(func() error { return s.store.Update(section, value) })
}

// AddEntry appends an empty entry to section and returns its id.
func (s *Session) AddEntry(section types.Section) (string, error) {
	var id string
	err := s.edit(func() error {
		var err error
		id, err = AddEntry(s.store, section)
		return err
	})
	return id, err
}

// RemoveEntry removes the entry with id from section.
func (s *Session) RemoveEntry(section types.Section, id string) error {
	return s.edit(func() error { return RemoveEntry(s.store, section, id) })
}

// PatchEntry sets one field of an entry.
func (s *Session) PatchEntry(section types.Section, id, field string, value any) error {
	return s.edit(func() error { return PatchEntry(s.store, section, id, field, value) })
}

// AddSkill adds a skill and reports whether the skills changed.
func (s *Session) AddSkill(skill string) (bool, error) {
	var changed bool
	err := s.edit(func() error {
		var err error
		changed, err = AddSkill(s.store, skill)
		return err
	})
	return changed, err
}

// RemoveSkill removes a skill.
func (s *Session) RemoveSkill(skill string) error {
	return s.edit(func() error { return RemoveSkill(s.store, skill) })
}

// AddItem appends a blank award or interest and returns its index.
func (s *Session) AddItem(section types.Section) (int, error) {
	var index int
	err := s.edit(func() error {
		var err error
		index, err = AddItem(s.store, section)
		return err
	})
	return index, err
}

// SetItem replaces an award or interest.
func (s *Session) SetItem(section types.Section, index int, value string) error {
	return s.edit(func() error { return SetItem(s.store, section, index, value) })
}

// RemoveItem deletes an award or interest.
func (s *Session) RemoveItem(section types.Section, index int) error {
	return s.edit(func() error { return RemoveItem(s.store, section, index) })
}

// Save persists the document now.
func (s *Session) Save(ctx context.Context) error {
	s.touch()
	return s.store.Persist(ctx)
}

// Next saves and advances. When the wizard finishes the session is left.
func (s *Session) Next(ctx context.Context) (Transition, error) {
	return s.navigate(func() (Transition, error) { return s.shell.Next(ctx) })
}

// Skip advances without saving. When the wizard finishes the session is left.
func (s *Session) Skip() (Transition, error) {
	return s.navigate(s.shell.Skip)
}

// Back returns to the previous step.
func (s *Session) Back() (Transition, error) {
	return s.navigate(s.shell.Back)
}

func (s *Session) navigate(fn func() (Transition, error)) (Transition, error) {
	s.mu.Lock()
	s.touch()
	t, err := fn()
	s.mu.Unlock()

	if err == nil && t.Finished {
		s.release()
	}
	return t, err
}

// close disarms auto-save and ends the event stream. An in-flight write is not cancelled.
func (s *Session) close() {
	s.store.Close()
	s.events.Close()
}

// ManagerOptions configures a Manager
type ManagerOptions struct {
	AutosaveDelay time.Duration
	IdleTimeout   time.Duration // zero disables the janitor
	EventBuffer   int
	Logger        *zap.Logger
}

// Manager holds the open wizard sessions.
type Manager struct {
	opts   ManagerOptions
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	draining sync.WaitGroup
}

// NewManager creates a Manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 16
	}
	return &Manager{
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// StartParams describes a session to open.
type StartParams struct {
	Owner  uuid.UUID
	Client store.Client
	// Identity, when set, is refreshed by Session.RefreshToken.
	Identity *remote.TokenIdentity
	Request  types.StartSessionRequest
}

// Start opens a session. With a CV id the stored CV is hydrated first; when that fails
// no session is kept and the error is returned.
func (m *Manager) Start(ctx context.Context, p StartParams) (*Session, error) {
	events := store.NewBroadcaster(m.opts.EventBuffer)
	st := store.New(p.Client, store.Options{
		AutosaveDelay: m.opts.AutosaveDelay,
		Notifier:      events,
		Logger:        m.logger,
		TemplateID:    p.Request.TemplateID,
	})

	sess := &Session{
		id:       uuid.New(),
		owner:    p.Owner,
		identity: p.Identity,
		store:    st,
		shell:    NewShell(st),
		events:   events,
	}
	sess.touch()
	sess.release = func() { m.leave(sess) }

	if p.Request.CVID != nil {
		if err := st.Hydrate(ctx, *p.Request.CVID); err != nil {
			sess.close()
			return nil, err
		}
	}

	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()

	m.logger.Info("wizard session started",
		zap.Stringer("session_id", sess.id),
		zap.Stringer("owner", p.Owner),
		zap.Stringer("cv_id", st.CVID()),
	)
	return sess, nil
}

// Get returns the session with id if it belongs to owner.
func (m *Manager) Get(id, owner uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || sess.owner != owner {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Leave discards the session: the pending auto-save is disarmed and the document dropped.
func (m *Manager) Leave(id, owner uuid.UUID) error {
	sess, err := m.Get(id, owner)
	if err != nil {
		return err
	}
	m.leave(sess)
	return nil
}

func (m *Manager) leave(sess *Session) {
	m.mu.Lock()
	if _, ok := m.sessions[sess.id]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, sess.id)
	m.draining.Add(1)
	m.mu.Unlock()

	sess.close()
	go func() {
		defer m.draining.Done()
		sess.store.Wait()
	}()
	m.logger.Info("wizard session left", zap.Stringer("session_id", sess.id))
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep leaves every session idle since before now minus the idle timeout and
// returns how many were left.
func (m *Manager) Sweep(now time.Time) int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var idle []*Session
	for _, sess := range m.sessions {
		if sess.idleSince().Before(cutoff) {
			idle = append(idle, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		m.logger.Info("leaving idle wizard session", zap.Stringer("session_id", sess.id))
		m.leave(sess)
	}
	return len(idle)
}

// Run sweeps idle sessions until ctx is done, then leaves every session.
func (m *Manager) Run(ctx context.Context) error {
	if m.opts.IdleTimeout <= 0 {
		<-ctx.Done()
		m.Close()
		return nil
	}

	interval := m.opts.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			m.Sweep(now)
		case <-ctx.Done():
			m.Close()
			return nil
		}
	}
}

// Close leaves every session and waits for writes already in flight.
func (m *Manager) Close() {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		open = append(open, sess)
	}
	m.mu.Unlock()

	for _, sess := range open {
		m.leave(sess)
	}
	m.draining.Wait()
}
