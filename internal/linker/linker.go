package linker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Linker runs the account-linking handshake for one service and blocks
// until the remote side reports the connection active, up to a timeout.
// The returned token is opaque; the planner only stores it.
type Linker interface {
	LinkAndWait(ctx context.Context, userID, authConfigID string) (json.RawMessage, error)
}

// HTTPLinker drives the hosted linking flow: start the flow, show the
// operator the redirect URL, poll until the connection goes active.
type HTTPLinker struct {
	baseURL      string
	apiKey       string
	timeout      time.Duration
	pollInterval time.Duration
	httpc        *http.Client
}

func NewHTTPLinker(baseURL, apiKey string, timeout time.Duration) *HTTPLinker {
	return &HTTPLinker{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		timeout:      timeout,
		pollInterval: 3 * time.Second,
		httpc:        &http.Client{Timeout: 30 * time.Second},
	}
}

type linkResponse struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
	Status      string `json:"status"`
}

func (l *HTTPLinker) LinkAndWait(ctx context.Context, userID, authConfigID string) (json.RawMessage, error) {
	log.Printf("🔗 Starting link flow (auth_config_id=%s)", authConfigID)

	started, err := l.startLink(ctx, userID, authConfigID)
	if err != nil {
		return nil, fmt.Errorf("failed to start link flow: %w", err)
	}

	if started.RedirectURL != "" {
		log.Printf("🌐 Open this URL in your browser to authorize:")
		log.Printf("   %s", started.RedirectURL)
	} else {
		log.Printf("⚠️ No redirect URL returned - complete auth via the provider dashboard if needed")
	}

	deadline := time.Now().Add(l.timeout)
	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out after %s waiting for connection %s", l.timeout, started.ID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.pollInterval):
		}

		raw, status, err := l.pollConnection(ctx, started.ID)
		if err != nil {
			return nil, fmt.Errorf("error waiting for connection: %w", err)
		}
		switch strings.ToUpper(status) {
		case "ACTIVE", "CONNECTED":
			log.Printf("✅ Account linked")
			return raw, nil
		case "FAILED", "EXPIRED":
			return nil, fmt.Errorf("link flow ended in status %s", status)
		}
	}
}

func (l *HTTPLinker) startLink(ctx context.Context, userID, authConfigID string) (*linkResponse, error) {
	body, _ := json.Marshal(map[string]any{
		"user_id":        userID,
		"auth_config_id": authConfigID,
		"callback_url":   "https://www.google.com",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/v3/connected_accounts/link", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.apiKey)

	resp, err := l.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(c io.Closer) {
		_ = c.Close()
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, raw)
	}
	var out linkResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode link response: %w", err)
	}
	return &out, nil
}

func (l *HTTPLinker) pollConnection(ctx context.Context, id string) (json.RawMessage, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/v3/connected_accounts/"+id, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("x-api-key", l.apiKey)

	resp, err := l.httpc.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func(c io.Closer) {
		_ = c.Close()
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, raw)
	}
	var probe struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, "", fmt.Errorf("decode connection: %w", err)
	}
	return raw, probe.Status, nil
}
