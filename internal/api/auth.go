package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/myles/perch/internal/serverdb"
)

const (
	minPasswordLen = 8
	maxNameLen     = 80
)

var loginRE = regexp.MustCompile(`^[a-z0-9_]{2,32}$`)

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	Login  string `json:"login"`
	Name   string `json:"name"`
}

// handleRegister creates an account and returns a session token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.config.AllowSignup {
		writeError(w, http.StatusForbidden, ErrCodeSignupDisabled, "signups are disabled on this server")
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	login := strings.ToLower(strings.TrimSpace(req.Login))
	if !loginRE.MatchString(login) {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "login must be 2-32 characters of a-z, 0-9 or _")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "password must be at least 8 characters")
		return
	}
	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) > maxNameLen {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "name is too long")
		return
	}

	user, err := s.store.CreateUser(login, req.Password, name)
	if errors.Is(err, serverdb.ErrLoginTaken) {
		writeError(w, http.StatusConflict, ErrCodeLoginTaken, "login already taken")
		return
	}
	if err != nil {
		logFor(r.Context()).Error("create user", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to create account")
		return
	}

	s.writeSession(w, r, http.StatusCreated, user)
}

// handleLogin authenticates a login/password pair and returns a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	user, err := s.store.VerifyPassword(req.Login, req.Password)
	if err != nil {
		logFor(r.Context()).Error("verify password", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to verify credentials")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid login or password")
		return
	}

	s.writeSession(w, r, http.StatusOK, user)
}

// writeSession issues a fresh token for the user and writes the session response.
func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, user *serverdb.User) {
	token, _, err := s.store.GenerateToken(user.ID)
	if err != nil {
		logFor(r.Context()).Error("generate token", "err", err, "uid", user.ID)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to create session")
		return
	}

	writeJSON(w, status, SessionResponse{
		Token:  token,
		UserID: user.ID,
		Login:  user.Login,
		Name:   user.Name,
	})
}
