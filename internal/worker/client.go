package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tuneplane/pkg/api"
)

// Client talks to the controller's candidate endpoints for one
// experiment.
type Client struct {
	baseURL      string
	experimentID string
	apiKey       string
	httpClient   *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey makes the client present the key as a bearer token on
// every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// NewClient creates a controller client scoped to one experiment.
func NewClient(controllerURL, experimentID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(controllerURL, "/"),
		experimentID: experimentID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NextCandidate claims the next candidate to evaluate.
func (c *Client) NextCandidate(ctx context.Context, workerInfo json.RawMessage) (api.CandidateResponse, error) {
	url := fmt.Sprintf("%s/experiments/%s/candidates/next", c.baseURL, c.experimentID)
	var resp api.CandidateResponse
	err := c.post(ctx, url, api.NextCandidateRequest{WorkerInfo: workerInfo}, &resp)
	return resp, err
}

// Report delivers the evaluation outcome for a claimed candidate.
func (c *Client) Report(ctx context.Context, candidateID string, req api.ReportRequest) (api.CandidateResponse, error) {
	url := fmt.Sprintf("%s/experiments/%s/candidates/%s/result", c.baseURL, c.experimentID, candidateID)
	var resp api.CandidateResponse
	err := c.post(ctx, url, req, &resp)
	return resp, err
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("controller returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("controller returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
