// Package webhook provides the outbound HTTP webhook action.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/template"
)

const defaultTimeoutSeconds = 30

var (
	// ErrURLMissing is returned when the webhook URL is absent.
	ErrURLMissing = errors.New("webhook url is required")
	// ErrServerError is returned when the endpoint answers with a 5xx status.
	ErrServerError = errors.New("server error during webhook delivery")
)

// RetryConfig defines retry behavior for webhook delivery.
type RetryConfig struct {
	Attempts int
	Delay    int
}

// Action performs an HTTP request to a templated URL with optional headers,
// body and retry on 5xx responses.
type Action struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration
	Retry   RetryConfig
}

func NewAction(config map[string]any) (*Action, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, ErrURLMissing
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)

	if headersConfig, exists := config["headers"]; exists {
		if headersMap, ok := headersConfig.(map[string]any); ok {
			for k, v := range headersMap {
				if strVal, ok := v.(string); ok {
					headers[k] = strVal
				}
			}
		}
	}

	retry := RetryConfig{Attempts: 1, Delay: 0}
	if retryConfig, exists := config["retry"]; exists {
		retry = parseRetryConfig(retryConfig)
	}

	return &Action{
		URL:     url,
		Method:  strings.ToUpper(method),
		Headers: headers,
		Body:    body,
		Timeout: defaultTimeoutSeconds * time.Second,
		Retry:   retry,
	}, nil
}

func parseRetryConfig(retryConfig any) RetryConfig {
	retry := RetryConfig{Attempts: 1, Delay: 0}

	retryMap, ok := retryConfig.(map[string]any)
	if !ok {
		return retry
	}

	if attempts, ok := retryMap["attempts"].(float64); ok {
		retry.Attempts = int(attempts)
	}

	if delay, ok := retryMap["delay"].(float64); ok {
		retry.Delay = int(delay)
	}

	return retry
}

// Execute delivers the webhook with retry on transport and 5xx failures.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "webhook_action", "method", a.Method)

	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= a.Retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, "Webhook retry attempt", "attempt", attempt, "max", a.Retry.Attempts)
			time.Sleep(time.Duration(a.Retry.Delay) * time.Second)
		}

		req, err := a.buildRequest(ctx, executionCtx)
		if err != nil {
			lastErr = err

			continue
		}

		client := &http.Client{Timeout: a.Timeout}

		resp, err = client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("webhook request failed: %w", err)

			continue
		}

		if resp.StatusCode >= 500 && attempt < a.Retry.Attempts {
			if err := resp.Body.Close(); err != nil {
				logger.ErrorContext(ctx, "failed to close response body", "error", err)
			}

			lastErr = fmt.Errorf("status %d, retrying: %w", resp.StatusCode, ErrServerError)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return nil, fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
	}

	return a.processResponse(ctx, resp, logger)
}

func (a *Action) buildRequest(ctx context.Context, executionCtx models.ExecutionContext) (*http.Request, error) {
	url := template.RenderString(a.URL, executionCtx.Data)
	body := template.RenderString(a.Body, executionCtx.Data)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}

	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range a.Headers {
		req.Header.Set(key, template.RenderString(value, executionCtx.Data))
	}

	return req, nil
}

func (a *Action) processResponse(ctx context.Context, resp *http.Response, logger *slog.Logger) (map[string]any, error) {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	details := map[string]any{
		"status_code": resp.StatusCode,
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		details["body"] = decoded
	} else {
		details["body"] = string(raw)
	}

	if resp.StatusCode >= 400 {
		return details, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	logger.InfoContext(ctx, "Webhook delivered", "status", resp.StatusCode)

	return details, nil
}
