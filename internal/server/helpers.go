package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// healthRetryInterval is how often WaitForHealthy retries.
const healthRetryInterval = 100 * time.Millisecond

// WaitForHealthy blocks until the server at baseURL answers GET /health with
// 200 OK. Once ctx is done it returns the context error together with the
// last failed attempt.
func WaitForHealthy(ctx context.Context, baseURL string) error {
	url := strings.TrimRight(baseURL, "/") + "/health"
	hc := &http.Client{Timeout: time.Second}

	ticker := time.NewTicker(healthRetryInterval)
	defer ticker.Stop()

	var last error
	for {
		last = checkHealth(ctx, hc, url)
		if last == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last attempt: %v)", ctx.Err(), last)
		case <-ticker.C:
		}
	}
}

func checkHealth(ctx context.Context, c *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %s", resp.Status)
	}
	return nil
}
