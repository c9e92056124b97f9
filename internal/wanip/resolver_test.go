package wanip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeSource struct {
	name  string
	ip    string
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Lookup(context.Context) (string, error) {
	f.calls++
	return f.ip, f.err
}

func TestResolver_FirstValidSourceWins(t *testing.T) {
	router := &fakeSource{name: "router", err: ErrUnavailable}
	private := &fakeSource{name: "private", ip: "192.168.1.10"}
	public := &fakeSource{name: "public", ip: "5.6.7.8"}
	never := &fakeSource{name: "never", ip: "9.9.9.9"}

	ip, err := NewResolver(router, private, public, never).Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if ip != "5.6.7.8" {
		t.Fatalf("Resolve = %q, want 5.6.7.8", ip)
	}
	if never.calls != 0 {
		t.Fatal("resolver consulted a source after a valid answer")
	}
}

func TestResolver_AllSourcesFail(t *testing.T) {
	_, err := NewResolver(
		&fakeSource{name: "router", err: ErrUnavailable},
		&fakeSource{name: "broken", err: errors.New("timeout")},
	).Resolve(context.Background())
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("Resolve error = %v, want ErrUnresolved", err)
	}
}

func TestResolver_NoSources(t *testing.T) {
	if _, err := NewResolver().Resolve(context.Background()); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("Resolve error = %v, want ErrUnresolved", err)
	}
}

func TestRouterSourceIsStub(t *testing.T) {
	src := RouterSource{Address: "192.168.88.1", Username: "admin", Password: "pw"}
	if _, err := src.Lookup(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("router lookup error = %v, want ErrUnavailable", err)
	}
}

func TestHTTPSource_FallsBackAcrossServices(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>rate limited</html>"))
	}))
	defer garbage.Close()

	private := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("10.1.2.3\n"))
	}))
	defer private.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("203.0.113.7\n"))
	}))
	defer good.Close()

	src := NewHTTPSource([]string{failing.URL, garbage.URL, private.URL, good.URL}, good.Client())
	ip, err := src.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if ip != "203.0.113.7" {
		t.Fatalf("Lookup = %q, want 203.0.113.7", ip)
	}
}

func TestHTTPSource_AllInvalid(t *testing.T) {
	private := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("172.20.0.1"))
	}))
	defer private.Close()

	src := NewHTTPSource([]string{private.URL}, private.Client())
	if _, err := src.Lookup(context.Background()); err == nil {
		t.Fatal("expected error when only private addresses are returned")
	}
}

func TestSTUNSourceWithoutServers(t *testing.T) {
	if _, err := NewSTUNSource(nil).Lookup(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Lookup error = %v, want ErrUnavailable", err)
	}
}
