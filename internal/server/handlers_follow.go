package server

import (
	"encoding/json"
	"net/http"
)

type FollowRequest struct {
	SiteURL   string `json:"site_url"`
	MySiteURL string `json:"my_site_url"`
}

func (s *Server) followHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SiteURL == "" || req.MySiteURL == "" {
		jsonError(w, "site_url and my_site_url required", http.StatusBadRequest)
		return
	}

	created, err := s.follows.Follow(account.ID, req.SiteURL, req.MySiteURL)
	if err != nil {
		// When the remote notification failed the local row still committed;
		// return it alongside the upstream error so the caller sees the
		// divergence.
		if created != nil {
			jsonResponse(w, map[string]any{
				"error":  err.Error(),
				"follow": created,
			}, http.StatusBadGateway)
			return
		}
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, created, http.StatusCreated)
}

type FollowFromRequest struct {
	AccountID  int64  `json:"account_id,omitempty"`
	SiteURL    string `json:"site_url"`
	SiteName   string `json:"site_name"`
	SiteAvatar string `json:"site_avatar"`
}

func (s *Server) followFromHandler(w http.ResponseWriter, r *http.Request) {
	var req FollowFromRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SiteURL == "" {
		jsonError(w, "site_url required", http.StatusBadRequest)
		return
	}

	followRow, err := s.follows.FollowFrom(req.AccountID, req.SiteURL, req.SiteName, req.SiteAvatar)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, followRow, http.StatusOK)
}

func (s *Server) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SiteURL == "" || req.MySiteURL == "" {
		jsonError(w, "site_url and my_site_url required", http.StatusBadRequest)
		return
	}

	if err := s.follows.Unfollow(account.ID, req.SiteURL, req.MySiteURL); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type UnfollowFromRequest struct {
	AccountID int64  `json:"account_id,omitempty"`
	SiteURL   string `json:"site_url"`
}

func (s *Server) unfollowFromHandler(w http.ResponseWriter, r *http.Request) {
	var req UnfollowFromRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SiteURL == "" {
		jsonError(w, "site_url required", http.StatusBadRequest)
		return
	}

	if err := s.follows.UnfollowFrom(req.AccountID, req.SiteURL); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) followListHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)
	follows, err := s.follows.FollowList(account.ID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"follows": follows}, http.StatusOK)
}

func (s *Server) followerListHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)
	followers, err := s.follows.FollowerList(account.ID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"follows": followers}, http.StatusOK)
}

func (s *Server) isFollowingHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)
	siteURL := r.URL.Query().Get("site_url")
	if siteURL == "" {
		jsonError(w, "site_url required", http.StatusBadRequest)
		return
	}

	following, err := s.follows.IsFollowing(account.ID, siteURL)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, map[string]bool{"is_following": following}, http.StatusOK)
}
