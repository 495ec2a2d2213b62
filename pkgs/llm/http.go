package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of an error response is kept in APIError.
const maxErrorBody = 4 << 10

// PostJSON marshals body, POSTs it to url and decodes the JSON response into
// out. Non-2xx responses become *APIError tagged with provider.
func PostJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Response: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ResponseError{Provider: provider, Message: "failed to decode response", Err: err}
	}
	return nil
}
