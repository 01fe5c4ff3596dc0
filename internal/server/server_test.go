package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/server/ratelimit"
	"github.com/jonathan/cv-builder/internal/sqlitedb"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	srv     *Server
	backend *sqlitedb.DB
	handler http.Handler
}

func newTestEnv(t *testing.T, rl *ratelimit.Config) *testEnv {
	t.Helper()
	backend, err := sqlitedb.Open(context.Background(), sqlitedb.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	if rl == nil {
		rl = &ratelimit.Config{Enabled: false}
	}
	srv, err := New(Config{
		Backend: backend,
		JWT: &config.JWTConfig{
			Secret:          testJWTSecret,
			ExpirationHours: 1,
			Issuer:          config.DefaultJWTIssuer,
		},
		Password:  &config.PasswordConfig{BcryptCost: bcrypt.MinCost},
		RateLimit: rl,
		// Long enough that auto-save never fires during a test.
		Sessions: wizard.ManagerOptions{AutosaveDelay: time.Hour},
	})
	require.NoError(t, err)
	t.Cleanup(srv.Sessions().Close)

	return &testEnv{srv: srv, backend: backend, handler: srv.Handler()}
}

// do sends a request through the full middleware chain. A string body is sent as is,
// anything else is JSON encoded.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Ada Lovelace",
		"email":    email,
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[types.LoginResponse](t, w).Token
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type entryCreated struct {
	ID      string      `json:"id"`
	Session wizard.View `json:"session"`
}

type skillAdded struct {
	Added   bool        `json:"added"`
	Session wizard.View `json:"session"`
}

type cvList struct {
	CVs   []types.CVSummary `json:"cvs"`
	Count int               `json:"count"`
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"wizard_sessions":0`)
}

func TestHealth_BackendDown(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.backend.Close())

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodOptions, "/v1/cvs", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRateLimit_Login(t *testing.T) {
	env := newTestEnv(t, &ratelimit.Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(),
	})
	t.Cleanup(env.srv.rateLimiter.Stop)

	body := map[string]string{"email": "nobody@example.com", "password": "wrong-password"}
	for i := 0; i < 5; i++ {
		w := env.do(t, http.MethodPost, "/v1/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
	}

	w := env.do(t, http.MethodPost, "/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRoutes_RequireAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/v1/me"},
		{http.MethodGet, "/v1/templates"},
		{http.MethodGet, "/v1/cvs"},
		{http.MethodPost, "/v1/wizard/sessions"},
		{http.MethodPost, "/v1/wizard/sessions/" + uuid.NewString() + "/next"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			w := env.do(t, route.method, route.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	w := env.do(t, http.MethodGet, "/v1/cvs", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	token := env.register(t, "Ada@Example.com ")

	w := env.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decodeBody[types.User](t, w)
	assert.Equal(t, "ada@example.com", me.Email)
	assert.Equal(t, "Ada Lovelace", me.Name)

	t.Run("duplicate email", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
			"name": "Someone", "email": "ada@example.com", "password": "another-password",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("login", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email": "ADA@example.com", "password": "correct-horse-battery",
		})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[types.LoginResponse](t, w)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, me.ID, resp.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email": "ada@example.com", "password": "not-the-password",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid email or password")
	})

	t.Run("unknown email", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email": "charles@example.com", "password": "correct-horse-battery",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid email or password")
	})
}

func TestListTemplates(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "ada@example.com")

	w := env.do(t, http.MethodGet, "/v1/templates", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody[struct {
		Templates []types.Template `json:"templates"`
		Count     int              `json:"count"`
	}](t, w)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "modern", resp.Templates[0].ID)
}

// wizardClient drives one session over HTTP.
type wizardClient struct {
	t     *testing.T
	env   *testEnv
	token string
	sid   string
}

func (c *wizardClient) path(suffix string) string {
	return "/v1/wizard/sessions/" + c.sid + suffix
}

func (c *wizardClient) do(method, suffix string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.env.do(c.t, method, c.path(suffix), c.token, body)
}

func (c *wizardClient) navigate(action string) navigationResponse {
	c.t.Helper()
	w := c.do(http.MethodPost, "/"+action, nil)
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	return decodeBody[navigationResponse](c.t, w)
}

func startSession(t *testing.T, env *testEnv, token string, req any) *wizardClient {
	t.Helper()
	w := env.do(t, http.MethodPost, "/v1/wizard/sessions", token, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decodeBody[wizard.View](t, w)
	return &wizardClient{t: t, env: env, token: token, sid: view.SessionID.String()}
}

func TestWizardFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "ada@example.com")

	wc := startSession(t, env, token, map[string]string{"template_id": "modern"})

	w := wc.do(http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeBody[wizard.View](t, w)
	assert.Equal(t, 1, view.Status.Step)
	assert.Nil(t, view.CVID)
	require.NotNil(t, view.TemplateID)
	assert.Equal(t, "modern", *view.TemplateID)

	// Step 1 is gated on name, email and phone.
	w = wc.do(http.MethodPost, "/next", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	refused := decodeBody[struct {
		Step    int      `json:"step"`
		Missing []string `json:"missing"`
	}](t, w)
	assert.Equal(t, 1, refused.Step)
	assert.Equal(t, []string{"fullName", "email", "phone"}, refused.Missing)

	w = wc.do(http.MethodPut, "/sections/personalInfo", types.PersonalInfo{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "555-0100",
		GitHub:   "https://github.com/ada",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	nav := wc.navigate("next")
	assert.Equal(t, 1, nav.Transition.From)
	assert.Equal(t, 2, nav.Transition.To)
	assert.True(t, nav.Transition.Saved)
	assert.Empty(t, nav.SaveError)
	require.NotNil(t, nav.Session.CVID, "first save creates the record")
	cvID := *nav.Session.CVID

	// Step 2: education entries
	w = wc.do(http.MethodPost, "/sections/education/entries", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	entry := decodeBody[entryCreated](t, w)
	require.NotEmpty(t, entry.ID)

	w = wc.do(http.MethodPatch, "/sections/education/entries/"+entry.ID, map[string]any{
		"field": "school", "value": "University of London",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decodeBody[wizard.View](t, w)
	require.Len(t, view.Document.Education, 1)
	assert.Equal(t, "University of London", view.Document.Education[0].School)

	w = wc.do(http.MethodPatch, "/sections/education/entries/"+entry.ID, map[string]any{
		"field": "current", "value": "yes",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "wrong value type")

	w = wc.do(http.MethodPatch, "/sections/education/entries/missing", map[string]any{
		"field": "school", "value": "x",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = wc.do(http.MethodPost, "/sections/summary/entries", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "summary has no entries")

	w = wc.do(http.MethodPost, "/sections/hobbies/entries", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 3, wc.navigate("next").Transition.To)

	// Step 3: skills
	w = wc.do(http.MethodPost, "/skills", map[string]string{"skill": " Go "})
	require.Equal(t, http.StatusOK, w.Code)
	added := decodeBody[skillAdded](t, w)
	assert.True(t, added.Added)
	assert.Equal(t, []string{"Go"}, added.Session.Document.Skills)

	w = wc.do(http.MethodPost, "/skills", map[string]string{"skill": "Go"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeBody[skillAdded](t, w).Added, "duplicates are ignored")

	w = wc.do(http.MethodPost, "/skills", map[string]string{"skill": "Mathematics"})
	require.Equal(t, http.StatusOK, w.Code)
	w = wc.do(http.MethodDelete, "/skills/Mathematics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Go"}, decodeBody[wizard.View](t, w).Document.Skills)

	assert.Equal(t, 4, wc.navigate("next").Transition.To)

	// Step 4 may be skipped; step 5 needs a summary.
	skip := wc.navigate("skip")
	assert.Equal(t, 5, skip.Transition.To)
	assert.False(t, skip.Transition.Saved)

	w = wc.do(http.MethodPost, "/next", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = wc.do(http.MethodPut, "/sections/summary", `"Wrote the first published algorithm."`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = wc.do(http.MethodPut, "/sections/summary", `["not", "a", "string"]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 6, wc.navigate("next").Transition.To)

	back := wc.navigate("back")
	assert.Equal(t, 5, back.Transition.To)
	assert.False(t, back.Transition.Saved)

	assert.Equal(t, 6, wc.navigate("next").Transition.To)
	assert.Equal(t, 7, wc.navigate("skip").Transition.To)
	assert.Equal(t, 8, wc.navigate("skip").Transition.To)
	assert.Equal(t, 9, wc.navigate("skip").Transition.To)

	// Step 9: free-text lists
	w = wc.do(http.MethodPost, "/awards", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"index":0`)

	w = wc.do(http.MethodPut, "/awards/0", map[string]string{"value": "Best Paper"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = wc.do(http.MethodPut, "/awards/3", map[string]string{"value": "out of range"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = wc.do(http.MethodPut, "/awards/first", map[string]string{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = wc.do(http.MethodPost, "/hobbies", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = wc.do(http.MethodPost, "/interests", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = wc.do(http.MethodDelete, "/interests/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view = decodeBody[wizard.View](t, w)
	assert.Empty(t, view.Document.Interests)
	assert.Equal(t, []string{"Best Paper"}, view.Document.Awards)

	w = wc.do(http.MethodPost, "/save", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = wc.do(http.MethodGet, "/review", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Skills (1)")

	finish := wc.navigate("next")
	assert.True(t, finish.Transition.Finished)
	assert.True(t, finish.Transition.Saved)

	// A finished session is gone.
	w = wc.do(http.MethodGet, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/v1/cvs/"+cvID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decodeBody[types.CVRecord](t, w)
	assert.Equal(t, "Ada Lovelace", rec.Title)
	assert.True(t, rec.IsComplete)
	assert.Equal(t, 9, rec.CurrentStep)
	assert.Equal(t, []string{"Go"}, rec.Data.Skills)
	assert.Equal(t, []string{"Best Paper"}, rec.Data.Awards)
	require.NotNil(t, rec.TemplateID)
	assert.Equal(t, "modern", *rec.TemplateID)
}

func TestWizard_StartValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "ada@example.com")

	w := env.do(t, http.MethodPost, "/v1/wizard/sessions", token, map[string]string{"template_id": "baroque"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/v1/wizard/sessions", token, map[string]string{"cv_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/v1/wizard/sessions", token, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 0, env.srv.Sessions().Len())
}

func TestWizard_SessionsAreOwned(t *testing.T) {
	env := newTestEnv(t, nil)
	ada := env.register(t, "ada@example.com")
	charles := env.register(t, "charles@example.com")

	wc := startSession(t, env, ada, nil)

	w := env.do(t, http.MethodGet, wc.path(""), charles, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, wc.path(""), charles, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/v1/wizard/sessions/not-a-uuid", ada, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = wc.do(http.MethodDelete, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, env.srv.Sessions().Len())
}

func TestWizard_ResumeExistingCV(t *testing.T) {
	env := newTestEnv(t, nil)
	ada := env.register(t, "ada@example.com")
	charles := env.register(t, "charles@example.com")

	wc := startSession(t, env, ada, nil)
	w := wc.do(http.MethodPut, "/sections/personalInfo", types.PersonalInfo{
		FullName: "Ada Lovelace", Email: "ada@example.com", Phone: "555-0100",
	})
	require.Equal(t, http.StatusOK, w.Code)
	nav := wc.navigate("next")
	require.NotNil(t, nav.Session.CVID)
	cvID := nav.Session.CVID.String()

	// Next saved before advancing; save again so the record is on step 2.
	require.Equal(t, http.StatusOK, wc.do(http.MethodPost, "/save", nil).Code)
	require.Equal(t, http.StatusNoContent, wc.do(http.MethodDelete, "", nil).Code)

	resumed := startSession(t, env, ada, map[string]string{"cv_id": cvID})
	w = resumed.do(http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeBody[wizard.View](t, w)
	assert.Equal(t, 2, view.Status.Step)
	assert.Equal(t, "Ada Lovelace", view.Document.PersonalInfo.FullName)
	require.NotNil(t, view.CVID)
	assert.Equal(t, cvID, view.CVID.String())

	// Another user cannot open it.
	w = env.do(t, http.MethodPost, "/v1/wizard/sessions", charles, map[string]string{"cv_id": cvID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCVs_Dashboard(t *testing.T) {
	env := newTestEnv(t, nil)
	ada := env.register(t, "ada@example.com")
	charles := env.register(t, "charles@example.com")

	w := env.do(t, http.MethodGet, "/v1/cvs", ada, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeBody[cvList](t, w).Count)

	wc := startSession(t, env, ada, nil)
	w = wc.do(http.MethodPut, "/sections/personalInfo", types.PersonalInfo{
		FullName: "Ada Lovelace", Email: "ada@example.com", Phone: "555-0100", Location: "London",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, http.StatusOK, wc.do(http.MethodPost, "/save", nil).Code)

	w = env.do(t, http.MethodGet, "/v1/cvs", ada, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[cvList](t, w)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Ada Lovelace", list.CVs[0].Title)
	assert.False(t, list.CVs[0].IsComplete)
	cvPath := "/v1/cvs/" + list.CVs[0].ID.String()

	t.Run("review json", func(t *testing.T) {
		w := env.do(t, http.MethodGet, cvPath+"/review", ada, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"name":"Ada Lovelace"`)
	})

	t.Run("review text", func(t *testing.T) {
		w := env.do(t, http.MethodGet, cvPath+"/review?format=text", ada, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "Personal Information\n  Ada Lovelace\n")
	})

	t.Run("latex", func(t *testing.T) {
		w := env.do(t, http.MethodGet, cvPath+"/resume.tex", ada, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/x-tex")
		assert.Contains(t, w.Body.String(), `\documentclass`)
		assert.Contains(t, w.Body.String(), "Ada Lovelace")
	})

	t.Run("other users see nothing", func(t *testing.T) {
		w := env.do(t, http.MethodGet, cvPath, charles, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(t, http.MethodDelete, cvPath, charles, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(t, http.MethodGet, "/v1/cvs", charles, nil)
		assert.Equal(t, 0, decodeBody[cvList](t, w).Count)
	})

	w = env.do(t, http.MethodDelete, cvPath, ada, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, cvPath, ada, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/v1/cvs/not-a-uuid", ada, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "ada@example.com")
	wc := startSession(t, env, token, nil)

	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+wc.path("/events"), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream ended before %q", prefix)
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}

	require.Equal(t, http.StatusOK, wc.do(http.MethodPost, "/save", nil).Code)
	assert.Equal(t, "event: info", waitFor("event: "))
	assert.Contains(t, waitFor("data: "), `"title":"Saved"`)

	require.Equal(t, http.StatusNoContent, wc.do(http.MethodDelete, "", nil).Code)
	assert.Equal(t, "event: closed", waitFor("event: "))
	assert.Equal(t, fmt.Sprintf(`data: {"session_id":%q}`, wc.sid), waitFor("data: "))
}
