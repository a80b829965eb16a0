// Package e2e drives a running corpatlas server over plain HTTP. The suite
// only assumes the demo provider is registered, which it always is, so no
// upstream credentials are needed to run it.
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TestContext carries shared state between steps of one scenario: the last
// response and, when a step saved it, an earlier response to compare against.
type TestContext struct {
	baseURL string
	apiKey  string
	client  *http.Client

	lastStatus int
	lastBody   []byte
	savedBody  []byte
}

// NewTestContext builds a context targeting baseURL. apiKey may be empty for
// servers running without authentication.
func NewTestContext(baseURL, apiKey string) *TestContext {
	return &TestContext{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.savedBody = nil
}

// GET issues a request against the server and records status and body.
func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequest(http.MethodGet, tc.baseURL+path, nil)
	if err != nil {
		return err
	}
	if tc.apiKey != "" {
		req.Header.Set("X-Api-Key", tc.apiKey)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("GET %s: read body: %w", path, err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastBody = body
	return nil
}

// GetLastResponseStatus returns the status code of the last request.
func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

// GetLastResponseBody returns the raw body of the last request.
func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

// SaveLastResponse stashes the current body for a later comparison.
func (tc *TestContext) SaveLastResponse() {
	tc.savedBody = tc.lastBody
}

// GetSavedResponseBody returns the stashed body, nil when nothing was saved.
func (tc *TestContext) GetSavedResponseBody() []byte {
	return tc.savedBody
}

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(name string) (interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(tc.lastBody, &payload); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	value, ok := payload[name]
	if !ok {
		return nil, fmt.Errorf("response has no field %q, body: %s", name, tc.lastBody)
	}
	return value, nil
}
