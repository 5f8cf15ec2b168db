package postman

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// previewResponse is returned for every call in preview mode.
var previewResponse = []byte(`{"dry_run":true,"id":"dry-run-id","uid":"dry-run-uid"}`)

// do performs one API call and returns the response body. Throttled calls
// are retried after ThrottleWait, up to MaxRetries times.
func (c *Client) do(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	if c.preview {
		c.logger.Info("[DRY RUN]", zap.String("method", method), zap.String("endpoint", endpoint))
		return previewResponse, nil
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		payload = b
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		status, respBody, err := c.send(ctx, method, endpoint, payload)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("postman call",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)

		if status == http.StatusTooManyRequests && attempt < c.maxRetries {
			c.logger.Warn("rate limited, waiting",
				zap.String("endpoint", endpoint),
				zap.Duration("wait", c.throttleWait),
			)
			if err := c.sleep(ctx, c.throttleWait); err != nil {
				return nil, err
			}
			continue
		}

		if status >= 400 {
			return nil, &APIError{
				Method:     method,
				Endpoint:   endpoint,
				StatusCode: status,
				Body:       truncate(string(respBody), maxErrorBody),
			}
		}
		return respBody, nil
	}
}

// send executes a single HTTP request.
func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, b, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
