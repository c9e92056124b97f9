package server

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"essops/internal/auth"
)

func underDevelopment(feature string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": feature + " is under development"})
	}
}

func (s *Server) restartService(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	username, _ := auth.UsernameFromContext(r.Context())

	result := "success"
	if err := s.deps.Services.Restart(r.Context(), name); err != nil {
		log.Warn("restart requested from console failed", "service", name, "admin", username, "error", err)
		result = "failure"
	}

	s.audit(r, username, fmt.Sprintf("restart service: %s", name), "result: "+result)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
