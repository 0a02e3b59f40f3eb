package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nbeast/nbeast/internal/auth"
	"github.com/nbeast/nbeast/internal/domain"
	"github.com/nbeast/nbeast/internal/signin"
	"github.com/nbeast/nbeast/internal/transport/http/handler"
	"github.com/nbeast/nbeast/internal/transport/http/middleware"
)

type fakeSessionReader struct {
	session *domain.Session
	err     error
}

func (f *fakeSessionReader) GetSession(_ context.Context, _ string) (*domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.session == nil {
		return nil, domain.ErrSessionNotFound
	}
	return f.session, nil
}

type recordingSender struct {
	mu    sync.Mutex
	addrs []string
}

func (r *recordingSender) send(_ context.Context, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addrs = append(r.addrs, addr)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.addrs)
}

type pagesEnv struct {
	engine *gin.Engine
	store  *signin.Store
	sender *recordingSender
}

func newPagesEnv(t *testing.T, sessions *fakeSessionReader) *pagesEnv {
	t.Helper()
	sender := &recordingSender{}
	store := signin.NewStore(sender.send)
	t.Cleanup(store.Stop)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	pages := handler.NewPages(store, sessions, logger, "nbeast")

	r := gin.New()
	r.SetHTMLTemplate(handler.Templates())
	group := r.Group("/:locale")
	group.GET("", pages.Home)
	group.GET("/auth/signin", pages.SigninForm)
	group.POST("/auth/signin", pages.SigninSubmit)
	group.POST("/auth/signin/resend", pages.SigninResend)
	group.POST("/auth/signin/back", pages.SigninBack)
	group.GET("/auth/callback", pages.Callback)
	group.GET("/account", middleware.RequireSession(sessions, logger), pages.Account)

	return &pagesEnv{engine: r, store: store, sender: sender}
}

func (e *pagesEnv) get(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *pagesEnv) postForm(path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	e.engine.ServeHTTP(w, req)
	return w
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// ---- Home ----

func TestHome_AnonymousShowsSignInLink(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{})
	w := env.get("/en", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/en/auth/signin") {
		t.Error("body missing sign-in link")
	}
}

func TestHome_SignedInShowsEmail(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{session: &domain.Session{
		ID:        "s1",
		Email:     "test@example.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}})
	w := env.get("/es", []*http.Cookie{{Name: auth.SessionCookieName, Value: "jwt"}})

	body := w.Body.String()
	if !strings.Contains(body, "test@example.com") {
		t.Error("body missing signed-in email")
	}
	if !strings.Contains(body, "Sesión iniciada como") {
		t.Error("body not localized to es")
	}
}

// ---- Sign-in flow ----

func TestSignin_FormRendersLocalized(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{})
	w := env.get("/es/auth/signin", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Introduce tu correo") {
		t.Error("form not localized to es")
	}
	if cookieNamed(w, "flow_id") == nil {
		t.Error("first visit did not set a flow cookie")
	}
}

func TestSignin_SubmitSendsAndShowsSentView(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{})

	first := env.get("/en/auth/signin", nil)
	flowCookie := cookieNamed(first, "flow_id")
	if flowCookie == nil {
		t.Fatal("no flow cookie")
	}
	cookies := []*http.Cookie{{Name: "flow_id", Value: flowCookie.Value}}

	w := env.postForm("/en/auth/signin", url.Values{"email": {"test@example.com"}}, cookies)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if env.sender.count() != 1 {
		t.Fatalf("sends = %d, want 1", env.sender.count())
	}
	if lang := cookieNamed(w, "lang"); lang == nil || lang.Value != "en" {
		t.Error("submit did not set the one-shot lang cookie")
	}

	sent := env.get("/en/auth/signin", cookies)
	body := sent.Body.String()
	if !strings.Contains(body, "Check your email") {
		t.Errorf("body does not show the sent view:\n%s", body)
	}
	if !strings.Contains(body, "test@example.com") {
		t.Error("sent view missing the address")
	}
	if !strings.Contains(body, "You can resend the link in") {
		t.Error("sent view missing the countdown hint")
	}
}

func TestSignin_InvalidEmailShowsValidationError(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{})

	first := env.get("/en/auth/signin", nil)
	cookies := []*http.Cookie{{Name: "flow_id", Value: cookieNamed(first, "flow_id").Value}}

	env.postForm("/en/auth/signin", url.Values{"email": {"not-an-email"}}, cookies)
	if env.sender.count() != 0 {
		t.Fatalf("sends = %d, want 0", env.sender.count())
	}

	w := env.get("/en/auth/signin", cookies)
	if !strings.Contains(w.Body.String(), "Please enter a valid email address") {
		t.Error("validation error not rendered")
	}
}

func TestSignin_DuplicateSubmitDoesNotResend(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{})

	first := env.get("/en/auth/signin", nil)
	cookies := []*http.Cookie{{Name: "flow_id", Value: cookieNamed(first, "flow_id").Value}}
	form := url.Values{"email": {"test@example.com"}}

	env.postForm("/en/auth/signin", form, cookies)
	env.postForm("/en/auth/signin/back", nil, cookies)
	env.postForm("/en/auth/signin", url.Values{"email": {" TEST@example.com "}}, cookies)

	if env.sender.count() != 1 {
		t.Errorf("sends = %d, want 1 (cooldown suppresses the duplicate)", env.sender.count())
	}
}

func TestSignin_ResendBeforeCountdownRejected(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{})

	first := env.get("/en/auth/signin", nil)
	cookies := []*http.Cookie{{Name: "flow_id", Value: cookieNamed(first, "flow_id").Value}}

	env.postForm("/en/auth/signin", url.Values{"email": {"test@example.com"}}, cookies)
	env.postForm("/en/auth/signin/resend", nil, cookies)

	if env.sender.count() != 1 {
		t.Errorf("sends = %d, want 1 (resend gated by the countdown)", env.sender.count())
	}
}

func TestSignin_ErrorQueryParamRendered(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{})
	w := env.get("/en/auth/signin?error=invalid_link", nil)

	if !strings.Contains(w.Body.String(), "invalid or has expired") {
		t.Error("invalid-link error not rendered")
	}
}

// ---- Callback ----

func TestCallback_RendersRedirectTarget(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{})
	w := env.get("/en/auth/callback?source=signin&redirect=/", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `url=/`) {
		t.Error("callback missing refresh target")
	}
}

func TestCallback_SanitizesExternalRedirect(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{})
	w := env.get("/en/auth/callback?redirect=//evil.example.com", nil)

	if strings.Contains(w.Body.String(), "evil.example.com") {
		t.Error("external redirect target not sanitized")
	}
}

// ---- Account ----

func TestAccount_RequiresSession(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{})
	w := env.get("/en/account", nil)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/en/auth/signin" {
		t.Errorf("Location = %q", loc)
	}
}

func TestAccount_RendersSessionDetails(t *testing.T) {
	env := newPagesEnv(t, &fakeSessionReader{session: &domain.Session{
		ID:        "s1",
		Email:     "test@example.com",
		Name:      "Ada",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}})
	w := env.get("/es/account", []*http.Cookie{{Name: auth.SessionCookieName, Value: "jwt"}})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Ada", "test@example.com", "2025-03-14", "Miembro desde"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}
