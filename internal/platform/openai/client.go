package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/govairn/govairn-backend/internal/platform/httpx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client interface {
	// CompleteJSON asks for a single JSON object and returns the raw message content.
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	// DisableTemperature omits the field entirely, for reasoning models that reject it.
	DisableTemperature bool
	Timeout            time.Duration
	MaxRetries         int
	BaseBackoff        time.Duration
	MaxBackoff         time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	return c
}

var ErrMissingAPIKey = errors.New("missing OPENAI_API_KEY")

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client

	noTempMu sync.RWMutex
	noTemp   map[string]bool
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	cfg = cfg.withDefaults()
	return &client{
		log:        log.With("service", "OpenAIClient", "model", cfg.Model),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		noTemp:     map[string]bool{},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// HTTPError is a non-2xx reply from the provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	req := &chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	c.applyTemperature(req)

	var out chatResponse
	if err := c.doWithTempFallback(ctx, req, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

func (c *client) applyTemperature(req *chatRequest) {
	if c.cfg.DisableTemperature {
		return
	}
	c.noTempMu.RLock()
	skip := c.noTemp[strings.ToLower(req.Model)]
	c.noTempMu.RUnlock()
	if skip {
		return
	}
	t := c.cfg.Temperature
	req.Temperature = &t
}

// doWithTempFallback retries once without temperature when the model rejects it,
// and remembers the model for the life of the client.
func (c *client) doWithTempFallback(ctx context.Context, req *chatRequest, out any) error {
	err := c.do(ctx, req, out)
	if err == nil || req.Temperature == nil || !rejectsTemperature(err) {
		return err
	}
	c.noTempMu.Lock()
	c.noTemp[strings.ToLower(req.Model)] = true
	c.noTempMu.Unlock()
	c.log.Warn("Model rejected temperature; retrying without it")
	req.Temperature = nil
	return c.do(ctx, req, out)
}

func rejectsTemperature(err error) bool {
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(he.Body)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, hint := range []string{"unsupported", "not supported", "does not support", "unknown parameter", "only the default"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

func (c *client) do(ctx context.Context, body any, out any) error {
	backoff := c.cfg.BaseBackoff
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, raw, err := c.doOnce(ctx, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode: %w", uErr)
			}
			return nil
		}
		if ctx.Err() != nil || !httpx.Retryable(err) || attempt >= c.cfg.MaxRetries {
			return err
		}

		wait := httpx.Jitter(httpx.RetryAfter(resp, backoff, c.cfg.MaxBackoff))
		c.log.Warn("OpenAI request retrying",
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", wait.String(),
			"error", err.Error(),
		)
		if sErr := httpx.Sleep(ctx, wait); sErr != nil {
			return sErr
		}
		backoff *= 2
	}
}

func (c *client) doOnce(ctx context.Context, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
