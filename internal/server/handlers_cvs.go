package server

import (
	"bytes"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/remote"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/server/middleware"
	"github.com/jonathan/cv-builder/internal/types"
	"go.uber.org/zap"
)

// clientFor returns a persistence client acting as the authenticated user.
func (s *Server) clientFor(r *http.Request) (*remote.Client, uuid.UUID, error) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		return nil, uuid.Nil, &remote.AuthRequiredError{Reason: "no authenticated user", Cause: err}
	}
	client := remote.NewClient(s.backend, remote.StaticIdentity(userID),
		remote.WithTemplateSource(s.templates),
		remote.WithLogger(s.logger),
	)
	return client, userID, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: name, Message: "must be a UUID"}
	}
	return id, nil
}

// handleListTemplates returns the active templates a new CV may use.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.templates.ListActiveTemplates(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"templates": templates,
		"count":     len(templates),
	})
}

// handleListCVs returns the caller's CVs, most recently updated first.
func (s *Server) handleListCVs(w http.ResponseWriter, r *http.Request) {
	client, userID, err := s.clientFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	cvs, err := client.ListCVs(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if cvs == nil {
		cvs = []types.CVSummary{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"cvs":   cvs,
		"count": len(cvs),
	})
}

func (s *Server) readCV(w http.ResponseWriter, r *http.Request) (*types.CVRecord, bool) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	client, _, err := s.clientFor(r)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	rec, err := client.ReadCV(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return rec, true
}

// handleGetCV returns one stored CV.
func (s *Server) handleGetCV(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.readCV(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleDeleteCV deletes one of the caller's CVs.
func (s *Server) handleDeleteCV(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	client, userID, err := s.clientFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := client.DeleteCV(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("cv deleted", zap.Stringer("cv_id", id), zap.Stringer("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}

// handleCVReview renders the review of a stored CV as JSON, or as text with ?format=text.
func (s *Server) handleCVReview(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.readCV(w, r)
	if !ok {
		return
	}
	s.writeReview(w, r, rec.Data)
}

// handleCVResumeTex renders a stored CV as LaTeX.
func (s *Server) handleCVResumeTex(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.readCV(w, r)
	if !ok {
		return
	}
	tex, err := rendering.RenderLaTeX(rec.Data, s.templatePath)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-tex; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="resume.tex"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(tex))
}

func (s *Server) writeReview(w http.ResponseWriter, r *http.Request, doc types.CVDocument) {
	review := rendering.BuildReview(doc)
	if r.URL.Query().Get("format") != "text" {
		s.jsonResponse(w, http.StatusOK, review)
		return
	}

	var buf bytes.Buffer
	if err := review.WriteText(&buf); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
