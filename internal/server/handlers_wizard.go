package server

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/jonathan/cv-builder/internal/remote"
	"github.com/jonathan/cv-builder/internal/server/middleware"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/wizard"
)

// navigationResponse is returned by next, back and skip.
type navigationResponse struct {
	Transition wizard.Transition `json:"transition"`
	SaveError  string            `json:"save_error,omitempty"`
	Session    wizard.View       `json:"session"`
}

// session resolves the {sid} path value to one of the caller's sessions and refreshes
// the token its saves are authorized with.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	sid, err := pathUUID(r, "sid")
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	sess, err := s.sessions.Get(sid, userID)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	if token, err := middleware.GetToken(r); err == nil {
		sess.RefreshToken(token)
	}
	return sess, true
}

func pathSection(r *http.Request) (types.Section, error) {
	section, err := types.ParseSection(r.PathValue("section"))
	if err != nil {
		return "", &ErrValidation{Field: "section", Message: err.Error()}
	}
	return section, nil
}

// handleStartSession opens a wizard session, hydrating it when a CV id is given.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	token, err := middleware.GetToken(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.StartSessionRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}

	if req.TemplateID != nil && req.CVID == nil {
		if err := s.checkTemplate(r, *req.TemplateID); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	identity := remote.NewTokenIdentity(token, s.jwtService.UserIDFromToken)
	client := remote.NewClient(s.backend, identity,
		remote.WithTemplateSource(s.templates),
		remote.WithLogger(s.logger),
	)

	sess, err := s.sessions.Start(r.Context(), wizard.StartParams{
		Owner:    userID,
		Client:   client,
		Identity: identity,
		Request:  req,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, sess.View())
}

func (s *Server) checkTemplate(r *http.Request, id string) error {
	templates, err := s.templates.ListActiveTemplates(r.Context())
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(templates, func(t types.Template) bool { return t.ID == id }) {
		return &ErrValidation{Field: "template_id", Message: "unknown template " + id}
	}
	return nil
}

// handleGetSession returns the session snapshot.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.View())
}

// handleLeaveSession discards the session. A pending auto-save is disarmed.
func (s *Server) handleLeaveSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Leave(sess.ID(), sess.Owner()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionReview renders the review of the in-progress document.
func (s *Server) handleSessionReview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeReview(w, r, sess.Document())
}

// handleReplaceSection replaces one section wholesale with the JSON body.
func (s *Server) handleReplaceSection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	section, err := pathSection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}
	value, err := types.DecodeSection(section, raw)
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: string(section), Message: err.Error()})
		return
	}

	if err := sess.ReplaceSection(section, value); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.View())
}

// handleAddEntry appends an empty entry to a section.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	section, err := pathSection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	id, err := sess.AddEntry(section)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"id":      id,
		"session": sess.View(),
	})
}

// handlePatchEntry sets one field of one entry.
func (s *Server) handlePatchEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	section, err := pathSection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req types.PatchEntryRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	if err := sess.PatchEntry(section, r.PathValue("entry_id"), req.Field, req.Value); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.View())
}

// handleRemoveEntry removes one entry by id.
func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	section, err := pathSection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := sess.RemoveEntry(section, r.PathValue("entry_id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.View())
}

// handleAddSkill adds a skill. Blank and duplicate skills are ignored.
func (s *Server) handleAddSkill(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req types.SkillRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	added, err := sess.AddSkill(req.Skill)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"added":   added,
		"session": sess.View(),
	})
}

// handleRemoveSkill removes a skill by exact value.
func (s *Server) handleRemoveSkill(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.RemoveSkill(r.PathValue("skill")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.View())
}

// pathList resolves {list} to a free-text list section. Anything else is not a route.
func pathList(r *http.Request) (types.Section, bool) {
	switch section := types.Section(r.PathValue("list")); section {
	case types.SectionAwards, types.SectionInterests:
		return section, true
	}
	return "", false
}

func pathIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return 0, &ErrValidation{Field: "index", Message: "must be an integer"}
	}
	return index, nil
}

// handleAddItem appends a blank award or interest.
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	section, ok := pathList(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	index, err := sess.AddItem(section)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"index":   index,
		"session": sess.View(),
	})
}

// handleSetItem sets the text of one award or interest.
func (s *Server) handleSetItem(w http.ResponseWriter, r *http.Request) {
	section, ok := pathList(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := pathIndex(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req types.ItemRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := sess.SetItem(section, index, req.Value); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.View())
}

// handleRemoveItem removes one award or interest by position.
func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	section, ok := pathList(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := pathIndex(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := sess.RemoveItem(section, index); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.View())
}

// handleNext saves and advances. An incomplete step is refused with the missing fields.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	t, err := sess.Next(r.Context())
	if err != nil {
		var incomplete *wizard.StepIncompleteError
		if errors.As(err, &incomplete) {
			s.jsonResponse(w, http.StatusConflict, map[string]any{
				"error":   err.Error(),
				"step":    incomplete.Step,
				"missing": incomplete.Missing,
			})
			return
		}
		s.fail(w, r, err)
		return
	}
	s.navigated(w, sess, t)
}

// handleBack moves to the previous step without saving.
func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	t, err := sess.Back()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.navigated(w, sess, t)
}

// handleSkip advances without gating or saving.
func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	t, err := sess.Skip()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.navigated(w, sess, t)
}

func (s *Server) navigated(w http.ResponseWriter, sess *wizard.Session, t wizard.Transition) {
	resp := navigationResponse{Transition: t, Session: sess.View()}
	if t.SaveErr != nil {
		resp.SaveError = t.SaveErr.Error()
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleSave persists the document now.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Save(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.View())
}
