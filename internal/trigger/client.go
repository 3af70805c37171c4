// Package trigger calls the scraping API that seeds the top_posts table.
package trigger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"top-posts-report/report-backend/internal/config"
)

// Client posts the scrape request and reports whether generation should run.
type Client struct {
	httpClient *http.Client
	config     config.TriggerConfig
	logger     *zap.Logger
}

// NewClient creates a new trigger client
func NewClient(cfg config.TriggerConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     logger,
	}
}

// Trigger posts the form {auth, sr, top} to the API. It returns true only for
// a 200 response; any other status means generation is skipped. Transport
// failures are returned as errors.
func (c *Client) Trigger(ctx context.Context) (bool, error) {
	form := url.Values{}
	form.Set("auth", c.config.AuthKey)
	form.Set("sr", c.config.Subreddit)
	form.Set("top", strconv.Itoa(c.config.Top))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Info("Triggering scrape",
		zap.String("subreddit", c.config.Subreddit),
		zap.Int("top", c.config.Top))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("trigger request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode != http.StatusOK {
		c.logger.Info("Trigger declined, skipping report",
			zap.Int("status_code", resp.StatusCode))
		return false, nil
	}

	return true, nil
}
