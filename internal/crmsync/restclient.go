package crmsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StatusError carries the HTTP status of a failed CRM request so adapters
// can classify 4xx as non-retryable and 5xx as retryable.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("crm request failed with status %d: %s", e.StatusCode, e.Body)
}

// Retryable is true for 5xx responses, false for 4xx.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// DoJSON issues a JSON request against an in-repo simulated CRM REST
// endpoint, the same raw-net/http idiom the base layer's own provider
// clients use: marshal, NewRequestWithContext, set headers, Do, check
// status, decode. client is always injected so tests can substitute a
// RoundTripper that returns canned responses without a live network call.
func DoJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("crmsync: encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("crmsync: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("crmsync: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
