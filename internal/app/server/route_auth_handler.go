package server

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"essops/internal/database"
	"essops/internal/domain"
)

const (
	operationLogin  = "login"
	operationLogout = "logout"
)

type loginView struct {
	Username string
	Error    string
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Sessions.Username(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) loginPage(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "login.html", loginView{})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "login.html", loginView{Error: "Invalid form submission"})
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	ok, err := database.AuthenticateAdmin(username, password)
	if err != nil {
		log.Error("admin authentication failed", "username", username, "error", err)
		s.render(w, http.StatusInternalServerError, "login.html", loginView{Username: username, Error: "Login is temporarily unavailable"})
		return
	}
	if !ok {
		log.Warn("rejected admin login", "username", username, "ip", clientIP(r))
		s.render(w, http.StatusOK, "login.html", loginView{Username: username, Error: "Invalid username or password"})
		return
	}

	if err := s.deps.Sessions.Issue(w, username); err != nil {
		log.Error("issue session", "username", username, "error", err)
		s.render(w, http.StatusInternalServerError, "login.html", loginView{Username: username, Error: "Login is temporarily unavailable"})
		return
	}

	s.audit(r, username, operationLogin, "")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if username, err := s.deps.Sessions.Username(r); err == nil {
		s.audit(r, username, operationLogout, "")
	}
	s.deps.Sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// audit appends an operation log entry. A store failure is logged only.
func (s *Server) audit(r *http.Request, username, operation, details string) {
	ip := clientIP(r)
	entry := domain.OperationLog{
		AdminUsername: username,
		Operation:     operation,
		Details:       details,
		IPAddress:     ip,
	}
	if s.deps.Geo != nil {
		entry.Country = s.deps.Geo.Country(ip)
	}
	if err := database.LogOperation(entry); err != nil {
		log.Error("write operation log", "operation", operation, "error", err)
	}
}
