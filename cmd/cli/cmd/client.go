package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"tuneplane/pkg/api"
)

// ExperimentClient handles API calls to the tuneplane controller.
type ExperimentClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewExperimentClient creates a new client with the given base URL.
func NewExperimentClient(baseURL string) *ExperimentClient {
	return &ExperimentClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// newClientFromConfig builds a client from the resolved viper config.
func newClientFromConfig() *ExperimentClient {
	c := NewExperimentClient(viper.GetString("url"))
	c.APIKey = viper.GetString("api_key")
	return c
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// InitExperiment sends POST /experiments to create a new experiment.
func (c *ExperimentClient) InitExperiment(req api.InitExperimentRequest) (*api.InitExperimentResponse, error) {
	var result api.InitExperimentResponse
	if err := c.do(http.MethodPost, "/experiments", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListExperiments sends GET /experiments.
func (c *ExperimentClient) ListExperiments() (*api.ListExperimentsResponse, error) {
	var result api.ListExperimentsResponse
	if err := c.do(http.MethodGet, "/experiments", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AllCandidates sends GET /experiments/{id}/candidates.
func (c *ExperimentClient) AllCandidates(experimentID string) (*api.AllCandidatesResponse, error) {
	var result api.AllCandidatesResponse
	if err := c.do(http.MethodGet, fmt.Sprintf("/experiments/%s/candidates", experimentID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// NextCandidate sends POST /experiments/{id}/candidates/next to claim a candidate.
func (c *ExperimentClient) NextCandidate(experimentID string, req api.NextCandidateRequest) (*api.CandidateResponse, error) {
	var result api.CandidateResponse
	if err := c.do(http.MethodPost, fmt.Sprintf("/experiments/%s/candidates/next", experimentID), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReportResult sends POST /experiments/{id}/candidates/{cid}/result.
func (c *ExperimentClient) ReportResult(experimentID, candidateID string, req api.ReportRequest) (*api.CandidateResponse, error) {
	var result api.CandidateResponse
	path := fmt.Sprintf("/experiments/%s/candidates/%s/result", experimentID, candidateID)
	if err := c.do(http.MethodPost, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *ExperimentClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
