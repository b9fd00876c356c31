// Package enhance calls an external query-enhancement service that expands a
// plain search query into semantically related terms.
package enhance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	endpoint   string
	httpClient *http.Client
}

type enhanceRequest struct {
	Query string `json:"query"`
}

type enhanceResponse struct {
	Queries []string `json:"queries"`
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// Enhance returns the expanded query set for q. The original query is always
// included so a sparse enhancement still matches direct hits.
func (c *Client) Enhance(q string) ([]string, error) {
	if !c.Enabled() {
		return []string{q}, nil
	}

	body, err := json.Marshal(enhanceRequest{Query: q})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enhance request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("enhance endpoint returned status %d", resp.StatusCode)
	}

	var out enhanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode enhance response: %w", err)
	}

	queries := []string{q}
	for _, expanded := range out.Queries {
		if expanded != "" && expanded != q {
			queries = append(queries, expanded)
		}
	}
	return queries, nil
}
