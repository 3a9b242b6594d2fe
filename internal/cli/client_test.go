package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/ragqa/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

func TestClientAsk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/ask" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req models.AskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(models.AskResponse{Answer: "echo: " + req.Question, Success: true})
	})
	resp, err := c.Ask(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "echo: hello" || !resp.Success {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestClientAsk_badRequestIsAnAnswer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(models.AskResponse{Answer: "Please enter a question!", Error: "question cannot be empty"})
	})
	resp, err := c.Ask(context.Background(), " ")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestClientStatus_serverError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := c.Status(context.Background())
	if err == nil || !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected server error, got %v", err)
	}
}

func TestClientHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/history" || r.URL.Query().Get("limit") != "3" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_ = json.NewEncoder(w).Encode(models.History{Entries: []*models.ChatEntry{{ID: 1, Question: "q", Answer: "a"}}, Total: 1})
	})
	h, err := c.History(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if h.Total != 1 || len(h.Entries) != 1 || h.Entries[0].Question != "q" {
		t.Errorf("unexpected history: %+v", h)
	}
}

func TestClient_unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	if _, err := c.Status(context.Background()); err == nil {
		t.Error("expected error for unreachable server")
	}
}
