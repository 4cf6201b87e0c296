package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"

	"github.com/bft-labs/feedship/internal/ports"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// Config configures the HTTP sink.
type Config struct {
	// URL receives one POST per group.
	URL string
	// AuthKey is sent as a bearer token when non-empty.
	AuthKey string
	// Hostname is reported in the X-Agent-Hostname header when non-empty.
	Hostname string
}

// Sink implements ports.Sink by POSTing each group as a JSON array.
type Sink struct {
	client ports.HTTPClient
	config Config
}

// NewSink creates an HTTP sink. client is usually an *http.Client with a timeout.
func NewSink(client ports.HTTPClient, config Config) *Sink {
	return &Sink{client: client, config: config}
}

// Deliver POSTs payload to the configured URL. Any non-2xx status is an error.
func (s *Sink) Deliver(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-OSArch", runtime.GOOS+"/"+runtime.GOARCH)
	if s.config.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.AuthKey)
	}
	if s.config.Hostname != "" {
		req.Header.Set("X-Agent-Hostname", s.config.Hostname)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}
