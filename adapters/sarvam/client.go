// Package sarvam talks to the Sarvam AI REST API: Saarika for speech
// recognition, Mayura for translation and Bulbul for speech synthesis.
package sarvam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain"
)

const (
	provider = "sarvam"

	defaultAPIBaseURL = "https://api.sarvam.ai"
	defaultSTTModel   = "saarika:v2.5"
	defaultMTModel    = "mayura:v1"
	defaultTTSModel   = "bulbul:v2"
	defaultSpeaker    = "anushka"
	defaultTimeout    = 60 * time.Second
)

// Config holds configuration for the Sarvam adapters.
// APIKey is required; everything else has a default.
type Config struct {
	APIKey     string
	APIBaseURL string
	STTModel   string
	MTModel    string
	TTSModel   string
	Speaker    string
	Timeout    time.Duration
}

// Client is the HTTP client shared by the Sarvam adapters
type Client struct {
	apiKey     string
	apiBaseURL string
	config     Config
	http       *http.Client
	logger     *zap.Logger
}

// NewClient validates config and applies defaults
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("sarvam API key is required")
	}
	if config.APIBaseURL == "" {
		config.APIBaseURL = defaultAPIBaseURL
	}
	if config.STTModel == "" {
		config.STTModel = defaultSTTModel
	}
	if config.MTModel == "" {
		config.MTModel = defaultMTModel
	}
	if config.TTSModel == "" {
		config.TTSModel = defaultTTSModel
	}
	if config.Speaker == "" {
		config.Speaker = defaultSpeaker
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Client{
		apiKey:     config.APIKey,
		apiBaseURL: strings.TrimRight(config.APIBaseURL, "/"),
		config:     config,
		http:       &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Sending request to Sarvam API", zap.String("path", req.URL.Path))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Sarvam API returned error",
			zap.String("path", req.URL.Path),
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(data)))
		return domain.NewServiceError(provider, resp.StatusCode, errorMessage(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return domain.FormatError(provider, err)
	}
	return nil
}

// errorMessage extracts error.message from a Sarvam error body, falling back to the raw body
func errorMessage(body []byte) []byte {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return []byte(envelope.Error.Message)
	}
	return body
}
