package glm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/barqyst/fpl-advisor/internal/domain/advisor"
	"github.com/barqyst/fpl-advisor/internal/platform/logging"
	"github.com/barqyst/fpl-advisor/internal/usecase"
)

// ErrNonRetryable marks failures that repeating the request cannot fix:
// missing or rejected credentials and malformed requests. It is attached at
// the point the upstream status is known, so the retry loop never has to
// parse message text.
var ErrNonRetryable = crerr.New("non-retryable completion failure")

const (
	defaultBaseURL        = "https://open.bigmodel.cn/api/paas/v4"
	defaultModel          = "glm-4.5-flash"
	defaultMaxAttempts    = 3
	defaultAttemptTimeout = 30 * time.Second
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 5 * time.Second
	defaultTemperature    = 0.7
	defaultMaxTokens      = 2000

	maxResponseBytes = 4 << 20
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float64
	MaxTokens      int
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	Logger         *logging.Logger
}

// Client calls the GLM chat-completion API. Transient upstream failures are
// retried with bounded exponential backoff; auth and request-shape failures
// fail immediately. Each attempt carries its own timeout so a stalled
// upstream cannot hold the caller past the attempt budget.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	model          string
	temperature    float64
	maxTokens      int
	maxAttempts    int
	attemptTimeout time.Duration
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	logger         *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	attemptTimeout := cfg.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}
	retryBaseDelay := cfg.RetryBaseDelay
	if retryBaseDelay <= 0 {
		retryBaseDelay = defaultRetryBaseDelay
	}
	retryMaxDelay := cfg.RetryMaxDelay
	if retryMaxDelay <= 0 {
		retryMaxDelay = defaultRetryMaxDelay
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		model:          model,
		temperature:    temperature,
		maxTokens:      maxTokens,
		maxAttempts:    maxAttempts,
		attemptTimeout: attemptTimeout,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		logger:         logger,
	}
}

// Complete sends the conversation to the model and returns the first choice.
func (c *Client) Complete(ctx context.Context, messages []advisor.Message) (usecase.Completion, error) {
	if c.apiKey == "" {
		return usecase.Completion{}, fmt.Errorf("%w: %w: completion api key is not configured", ErrNonRetryable, usecase.ErrUnauthorized)
	}
	if len(messages) == 0 {
		return usecase.Completion{}, fmt.Errorf("%w: %w: at least one message is required", ErrNonRetryable, usecase.ErrInvalidInput)
	}

	body, err := c.encodeRequest(messages)
	if err != nil {
		return usecase.Completion{}, fmt.Errorf("encode completion request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		completion, err := c.attempt(ctx, body)
		if err == nil {
			return completion, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return usecase.Completion{}, err
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := c.backoff(attempt)
		c.logger.WarnContext(ctx, "completion attempt failed, retrying",
			"attempt", attempt, "max_attempts", c.maxAttempts, "delay", delay, "error", err)
		if err := sleepCtx(ctx, delay); err != nil {
			return usecase.Completion{}, fmt.Errorf("wait before retry: %w", err)
		}
	}

	return usecase.Completion{}, fmt.Errorf("completion failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) encodeRequest(messages []advisor.Message) ([]byte, error) {
	wire := make([]wireMessage, 0, len(messages))
	for _, message := range messages {
		wire = append(wire, wireMessage{Role: message.Role, Content: message.Content})
	}
	return sonic.Marshal(completionRequest{
		Model:       c.model,
		Messages:    wire,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
}

func (c *Client) attempt(ctx context.Context, body []byte) (usecase.Completion, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return usecase.Completion{}, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return usecase.Completion{}, fmt.Errorf("%w: send completion request: %v", usecase.ErrDependencyUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return usecase.Completion{}, fmt.Errorf("%w: read completion response: %v", usecase.ErrDependencyUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return usecase.Completion{}, statusError(resp.StatusCode, raw)
	}

	var payload completionResponse
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return usecase.Completion{}, fmt.Errorf("%w: decode completion response: %v", usecase.ErrDependencyUnavailable, err)
	}
	if len(payload.Choices) == 0 {
		return usecase.Completion{}, fmt.Errorf("%w: completion response has no choices", usecase.ErrDependencyUnavailable)
	}

	return usecase.Completion{
		Content:          payload.Choices[0].Message.Content,
		Model:            payload.Model,
		PromptTokens:     payload.Usage.PromptTokens,
		CompletionTokens: payload.Usage.CompletionTokens,
		TotalTokens:      payload.Usage.TotalTokens,
	}, nil
}

// statusError tags the failure kind at the point the status code is known.
// Callers and the retry loop branch on the sentinel, never on message text.
func statusError(status int, raw []byte) error {
	detail := errorDetail(raw)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w: completion provider status=%d detail=%s", ErrNonRetryable, usecase.ErrUnauthorized, status, detail)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w: completion provider status=%d detail=%s", ErrNonRetryable, usecase.ErrInvalidInput, status, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: completion provider status=%d detail=%s", usecase.ErrRateLimited, status, detail)
	default:
		return fmt.Errorf("%w: completion provider status=%d detail=%s", usecase.ErrDependencyUnavailable, status, detail)
	}
}

func isRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrNonRetryable):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// backoff doubles the base delay per completed attempt, capped at the
// configured maximum.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.retryBaseDelay << (attempt - 1)
	if delay > c.retryMaxDelay {
		delay = c.retryMaxDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func errorDetail(raw []byte) string {
	var payload errorResponse
	if err := sonic.Unmarshal(raw, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	const limit = 160
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}
