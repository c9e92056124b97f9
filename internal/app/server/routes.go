package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"essops/internal/auth"
	"essops/internal/orchestration"
	"essops/internal/synapse"
	"essops/internal/system"
)

//go:embed templates/*.html
var templateFS embed.FS

const shutdownTimeout = 10 * time.Second

// UserDirectory lists and registers the homeserver's accounts.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]synapse.User, error)
	CreateUser(ctx context.Context, user synapse.NewUser) error
}

// CountryLocator tags audit entries with a country code.
type CountryLocator interface {
	Country(ip string) string
}

type Dependencies struct {
	Sessions *auth.Sessions
	Services orchestration.Controller
	System   system.Provider
	// Users and Geo are optional.
	Users UserDirectory
	Geo   CountryLocator
}

type Server struct {
	deps  Dependencies
	pages *template.Template
}

func New(deps Dependencies) (*Server, error) {
	if deps.Sessions == nil || deps.Services == nil || deps.System == nil {
		return nil, errors.New("server: sessions, services and system provider are required")
	}
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse templates: %w", err)
	}
	return &Server{deps: deps, pages: pages}, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, page, data); err != nil {
		log.Error("render page", "page", page, "error", err)
	}
}

// clientIP is the peer address of the connection, without port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) Routes() http.Handler {
	protect := func(h http.HandlerFunc) http.Handler {
		return s.deps.Sessions.RequireSession(h)
	}

	router := http.NewServeMux()
	router.HandleFunc("GET /{$}", s.index)
	router.HandleFunc("GET /login", s.loginPage)
	router.HandleFunc("POST /login", s.login)
	router.HandleFunc("GET /logout", s.logout)
	router.HandleFunc("GET /version", getVersion)

	router.Handle("GET /dashboard", protect(s.dashboard))
	router.Handle("GET /users", protect(underDevelopment("User management")))
	router.Handle("GET /services", protect(underDevelopment("Service management")))
	router.Handle("GET /logs", protect(underDevelopment("Operation log")))
	router.Handle("GET /restart_service/{name}", protect(s.restartService))

	router.Handle("GET /api/stats", protect(s.apiStats))
	router.Handle("GET /api/services", protect(s.apiServices))
	router.Handle("GET /api/users", protect(s.apiUsers))
	router.Handle("POST /api/users", protect(s.apiCreateUser))
	router.Handle("GET /api/logs", protect(s.apiLogs))

	log.Debug("Routes opened")
	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting ess-admin on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("Shutting down ess-admin")
		return server.Shutdown(shutdownCtx)
	}
}
