package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gridlease-backend/internal/config"
	"gridlease-backend/internal/domain"
)

// httpIntentParser calls the external natural-language parsing oracle over
// HTTP. The oracle's model is a black box here; only the structured result
// and its validity matter.
type httpIntentParser struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPIntentParser(cfg config.ParserConfig) IntentParser {
	return &httpIntentParser{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

type parseRequest struct {
	Message         string `json:"message"`
	RequesterWallet string `json:"requester_wallet"`
}

type parseResponse struct {
	Success bool                 `json:"success"`
	Intent  *domain.ParsedIntent `json:"intent,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func (p *httpIntentParser) Parse(ctx context.Context, freeText, requesterWallet string) (*domain.ParsedIntent, error) {
	payload, err := json.Marshal(parseRequest{Message: freeText, RequesterWallet: requesterWallet})
	if err != nil {
		return nil, fmt.Errorf("failed to encode parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parser request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read parser response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("parser returned status %d", resp.StatusCode)
	}

	var parsed parseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode parser response: %w", err)
	}
	if !parsed.Success || parsed.Intent == nil {
		if parsed.Error != "" {
			return nil, fmt.Errorf("parser rejected message: %s", parsed.Error)
		}
		return nil, fmt.Errorf("parser could not extract an intent")
	}
	return parsed.Intent, nil
}
