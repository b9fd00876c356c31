package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ryotakamura/notefed/internal/db"
)

func TestSendDeliversEvent(t *testing.T) {
	var mu sync.Mutex
	var received []Event
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("failed to decode event: %v", err)
		}
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
	}))
	defer ts.Close()

	d := NewDispatcher(ts.URL, zerolog.Nop())
	d.Send(Event{
		Action: ActionCreate,
		Note:   &db.Note{ID: 7, Content: "hello"},
	})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(received))
	}
	if received[0].Action != ActionCreate || received[0].Note.ID != 7 {
		t.Errorf("unexpected event: %+v", received[0])
	}
}

func TestDisabledDispatcherSendsNothing(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	d := NewDispatcher("", zerolog.Nop())
	if d.Enabled() {
		t.Error("expected dispatcher without endpoint to be disabled")
	}
	d.Send(Event{Action: ActionDelete, Note: &db.Note{ID: 1}})

	if calls != 0 {
		t.Errorf("expected no deliveries, got %d", calls)
	}
}

func TestFailedDeliveryDoesNotPanic(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	d := NewDispatcher(ts.URL, zerolog.Nop())
	d.Send(Event{Action: ActionCreate, Note: &db.Note{ID: 2}})
}
