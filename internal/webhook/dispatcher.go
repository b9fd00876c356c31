// Package webhook notifies an external endpoint about note lifecycle events.
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryotakamura/notefed/internal/db"
)

const (
	ActionCreate = "create"
	ActionDelete = "delete"
)

type Event struct {
	Action      string          `json:"action"`
	Note        *db.Note        `json:"note"`
	Attachments []db.Attachment `json:"attachments,omitempty"`
	Context     map[string]any  `json:"context,omitempty"`
}

// Dispatcher posts events to a single configured endpoint. Deliveries are
// single-attempt; a failure is logged and never surfaced to the caller.
type Dispatcher struct {
	endpoint   string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewDispatcher(endpoint string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

func (d *Dispatcher) Enabled() bool {
	return d != nil && d.endpoint != ""
}

func (d *Dispatcher) Send(event Event) {
	if !d.Enabled() {
		return
	}

	if err := d.send(event); err != nil {
		d.log.Warn().Err(err).
			Str("action", event.Action).
			Int64("note_id", event.Note.ID).
			Msg("webhook delivery failed")
	}
}

func (d *Dispatcher) send(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequest("POST", d.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
