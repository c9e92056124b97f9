package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestSessions(t *testing.T) *Sessions {
	t.Helper()
	s, err := NewSessions(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewSessions returned error: %v", err)
	}
	return s
}

func issuedCookie(t *testing.T, s *Sessions, username string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := s.Issue(rec, username); err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName {
		t.Fatalf("expected one session cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatal("expected HttpOnly cookie")
	}
	return cookies[0]
}

func TestNewSessionsRejectsShortSecret(t *testing.T) {
	if _, err := NewSessions([]byte("short"), time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestIssueAndReadSession(t *testing.T) {
	s := newTestSessions(t)
	cookie := issuedCookie(t, s, "admin")

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)

	username, err := s.Username(req)
	if err != nil {
		t.Fatalf("Username returned error: %v", err)
	}
	if username != "admin" {
		t.Fatalf("expected admin, got %q", username)
	}
}

func TestUsernameRejectsForeignAndExpiredTokens(t *testing.T) {
	s := newTestSessions(t)

	other, _ := NewSessions([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(issuedCookie(t, other, "admin"))
	if _, err := s.Username(req); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}

	expired := newTestSessions(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(issuedCookie(t, expired, "admin"))
	if _, err := s.Username(req); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := s.Username(req); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRequireSession(t *testing.T) {
	s := newTestSessions(t)
	var seen string
	handler := s.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UsernameFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, path := range []string{"/dashboard", "/api/stats"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
			t.Fatalf("%s: expected redirect to /login, got %d %q", path, rec.Code, rec.Header().Get("Location"))
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(issuedCookie(t, s, "admin"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
	if seen != "admin" {
		t.Fatalf("expected username in context, got %q", seen)
	}
}

func TestClearExpiresCookie(t *testing.T) {
	s := newTestSessions(t)
	rec := httptest.NewRecorder()
	s.Clear(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 || cookies[0].Value != "" {
		t.Fatalf("expected an expired empty cookie, got %+v", cookies)
	}
}
