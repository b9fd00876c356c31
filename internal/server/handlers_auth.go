package server

import (
	"encoding/json"
	"net/http"
)

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	AccountID int64  `json:"account_id"`
	Name      string `json:"name"`
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Password == "" {
		jsonError(w, "name and password required", http.StatusBadRequest)
		return
	}

	account, err := s.db.GetAccountByName(req.Name)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if account == nil || !s.db.ValidatePassword(account, req.Password) {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !account.Active {
		jsonError(w, "account is disabled", http.StatusForbidden)
		return
	}

	token, expiresAt, err := s.jwt.Generate(account.ID, account.Name)
	if err != nil {
		jsonError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		AccountID: account.ID,
		Name:      account.Name,
	}, http.StatusOK)
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Password == "" {
		jsonError(w, "name and password required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		jsonError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	existing, _ := s.db.GetAccountByName(req.Name)
	if existing != nil {
		jsonError(w, "name already exists", http.StatusConflict)
		return
	}

	account, err := s.db.CreateAccount(req.Name, req.Password)
	if err != nil {
		jsonError(w, "failed to create account", http.StatusInternalServerError)
		return
	}

	token, expiresAt, err := s.jwt.Generate(account.ID, account.Name)
	if err != nil {
		jsonError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		AccountID: account.ID,
		Name:      account.Name,
	}, http.StatusCreated)
}

// SiteInfoResponse is the public identity peers fetch before following.
type SiteInfoResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (s *Server) siteInfoHandler(w http.ResponseWriter, r *http.Request) {
	admin, err := s.db.AdminAccount()
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if admin == nil {
		jsonError(w, "instance has no account", http.StatusNotFound)
		return
	}

	name := s.cfg.SiteName
	if name == "" {
		name = admin.Name
	}
	image := s.cfg.SiteAvatar
	if image == "" {
		image = admin.Image
	}

	jsonResponse(w, SiteInfoResponse{ID: admin.ID, Name: name, Image: image}, http.StatusOK)
}
