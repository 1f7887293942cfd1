package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"tuneplane/pkg/api"
)

func TestStatusCommand_WithBest(t *testing.T) {
	resetViper()

	result := 0.042
	cost := 12.5
	now := time.Now().UTC()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/experiments/exp-1/candidates" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(api.AllCandidatesResponse{
			Working: []api.CandidateResponse{{ID: "w1", State: api.CandidateStateWorking}},
			Finished: []api.CandidateResponse{{
				ID: "f1", State: api.CandidateStateFinished, Result: &result,
			}},
			Best: &api.CandidateResponse{
				ID:           "f1",
				Params:       map[string]any{"x": 1.5, "kernel": "rbf"},
				Result:       &result,
				Cost:         &cost,
				State:        api.CandidateStateFinished,
				LastUpdateAt: now,
			},
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"status", "exp-1"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	for _, want := range []string{"exp-1", "Best candidate", "f1", "0.042", "kernel = rbf", "x = 1.5"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestStatusCommand_NoBest(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.AllCandidatesResponse{
			Pending: []api.CandidateResponse{{ID: "p1", State: api.CandidateStatePending}},
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"status", "exp-1"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "No finished candidate yet") {
		t.Errorf("expected empty-best message, got: %s", stdout.String())
	}
}

func TestStatusCommand_NotFound(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "experiment not found", Code: "404"})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"status", "nope"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "404") || !strings.Contains(output, "not found") {
		t.Errorf("expected not-found message, got: %s", output)
	}
}
