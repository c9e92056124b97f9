package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"essops/internal/auth"
	"essops/internal/database"
	"essops/internal/synapse"
)

const maxCreateUserBody = 4 << 10

type createUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Admin       bool   `json:"admin"`
	DisplayName string `json:"displayname"`
}

func (s *Server) apiStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.System.Stats(r.Context()))
}

func (s *Server) apiServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.listServices(r.Context()))
}

func (s *Server) apiUsers(w http.ResponseWriter, r *http.Request) {
	if s.deps.Users == nil {
		writeJSON(w, http.StatusOK, []synapse.User{})
		return
	}

	users, err := s.deps.Users.ListUsers(r.Context())
	if err != nil {
		if !errors.Is(err, synapse.ErrNotConfigured) {
			log.Warn("list matrix users", "error", err)
		}
		writeJSON(w, http.StatusOK, []synapse.User{})
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) apiCreateUser(w http.ResponseWriter, r *http.Request) {
	if s.deps.Users == nil {
		writeError(w, "Matrix admin API is not configured", http.StatusServiceUnavailable)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateUserBody)).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	err := s.deps.Users.CreateUser(r.Context(), synapse.NewUser{
		Username:    req.Username,
		Password:    req.Password,
		Admin:       req.Admin,
		DisplayName: req.DisplayName,
	})
	if errors.Is(err, synapse.ErrNotConfigured) {
		writeError(w, "Matrix admin API is not configured", http.StatusServiceUnavailable)
		return
	}

	admin, _ := auth.UsernameFromContext(r.Context())
	operation := "create user: " + req.Username
	if err != nil {
		log.Warn("create matrix user", "user", req.Username, "admin", admin, "error", err)
		s.audit(r, admin, operation, "result: failure")
		writeError(w, "Failed to create user", http.StatusBadGateway)
		return
	}

	s.audit(r, admin, operation, "result: success")
	writeJSON(w, http.StatusCreated, map[string]string{"user": req.Username})
}

func (s *Server) apiLogs(w http.ResponseWriter, r *http.Request) {
	limit := database.DefaultOperationLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	logs, err := database.RecentOperationLogs(limit)
	if err != nil {
		log.Error("read operation logs", "error", err)
		writeError(w, "Failed to read operation logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
