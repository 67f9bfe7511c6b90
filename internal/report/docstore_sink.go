package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DocStoreSink creates one document per report in a JSONBin-compatible
// document store.
type DocStoreSink struct {
	baseURL   string
	masterKey string
	client    *http.Client
}

// NewDocStoreSink creates a new DocStoreSink.
func NewDocStoreSink(baseURL, masterKey string) *DocStoreSink {
	return &DocStoreSink{
		baseURL:   strings.TrimRight(baseURL, "/"),
		masterKey: masterKey,
		client:    &http.Client{},
	}
}

// Name implements Sink.
func (s *DocStoreSink) Name() string { return "docstore" }

// Deliver creates a new bin holding the structured payload.
func (s *DocStoreSink) Deliver(ctx context.Context, r *Report) error {
	body, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/b", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.masterKey != "" {
		req.Header.Set("X-Master-Key", s.masterKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("document store returned status %d", resp.StatusCode)
	}
	return nil
}
