// Package remote talks to peer instances over their public federation API.
package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUpstream marks failures of the remote peer rather than this instance.
var ErrUpstream = errors.New("upstream request failed")

type Client struct {
	httpClient *http.Client
}

// SiteInfo is what a peer publishes at /api/v1/public/site-info.
type SiteInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// FollowFromRequest announces that the site at SiteURL now follows the peer.
type FollowFromRequest struct {
	SiteURL    string `json:"site_url"`
	SiteName   string `json:"site_name"`
	SiteAvatar string `json:"site_avatar"`
}

type UnfollowFromRequest struct {
	SiteURL string `json:"site_url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) FetchSiteInfo(origin string) (*SiteInfo, error) {
	var info SiteInfo
	if err := c.get(origin+"/api/v1/public/site-info", &info); err != nil {
		return nil, fmt.Errorf("failed to fetch site info from %s: %w: %w", origin, ErrUpstream, err)
	}
	return &info, nil
}

func (c *Client) NotifyFollow(origin string, req FollowFromRequest) error {
	if err := c.post(origin+"/api/v1/follows/follow-from", req, nil); err != nil {
		return fmt.Errorf("failed to notify %s of follow: %w: %w", origin, ErrUpstream, err)
	}
	return nil
}

func (c *Client) NotifyUnfollow(origin string, req UnfollowFromRequest) error {
	if err := c.post(origin+"/api/v1/follows/unfollow-from", req, nil); err != nil {
		return fmt.Errorf("failed to notify %s of unfollow: %w: %w", origin, ErrUpstream, err)
	}
	return nil
}

// HTTP helpers

func (c *Client) get(url string, result any) error {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return err
	}
	return c.doRequest(req, result)
}

func (c *Client) post(url string, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, result)
}

func (c *Client) doRequest(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
