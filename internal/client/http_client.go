package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anmicius0/euvat-checker/internal/utils"
	"go.uber.org/zap"
	"resty.dev/v3"
)

// HTTPClient is a base HTTP client using resty for SOAP requests.
type HTTPClient struct {
	client *resty.Client
}

// HTTPError represents an HTTP error response from the remote API.
// It keeps the body because SOAP faults arrive with error statuses.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, truncate(e.Body, 200))
}

// NewHTTPClient creates a new HTTPClient with XML headers and no automatic retries.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: resty.New().
			SetHeader("Accept", "text/xml").
			SetHeader("Content-Type", "text/xml; charset=utf-8").
			SetRetryCount(0).
			SetTimeout(timeout),
	}
}

// Close releases idle connections held by the underlying client.
func (c *HTTPClient) Close() error {
	return c.client.Close()
}

// DoReq performs an HTTP request and returns the response for 2xx statuses.
// Statuses >= 400 come back as *HTTPError with the full body.
func (c *HTTPClient) DoReq(ctx context.Context, method, url string, body any) (*resty.Response, error) {
	request := c.client.R().
		SetContext(ctx).
		SetBody(body)

	utils.Logger.Debug("HTTP request start",
		zap.String("method", method),
		zap.String("url", url))

	start := time.Now()
	response, err := request.Execute(method, url)
	duration := time.Since(start)
	if err != nil {
		utils.Logger.Warn("HTTP request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}

	if response.StatusCode() >= 400 {
		responseBody := response.String()
		if response.StatusCode() >= 500 {
			utils.Logger.Warn("API error response (server)",
				zap.String("method", method),
				zap.String("url", url),
				zap.Int("status_code", response.StatusCode()),
				zap.String("body", truncate(strings.TrimSpace(responseBody), 1000)),
				zap.Duration("duration", duration))
		} else {
			utils.Logger.Warn("API error response (client)",
				zap.String("method", method),
				zap.String("url", url),
				zap.Int("status_code", response.StatusCode()),
				zap.String("body", truncate(strings.TrimSpace(responseBody), 1000)),
				zap.Duration("duration", duration))
		}
		return nil, &HTTPError{StatusCode: response.StatusCode(), Body: responseBody}
	}

	utils.Logger.Debug("HTTP request completed",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status_code", response.StatusCode()),
		zap.Duration("duration", duration))

	return response, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
