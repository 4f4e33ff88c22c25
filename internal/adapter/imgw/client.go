// Package imgw fetches synoptic observations from the IMGW public data API.
package imgw

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/synop-dashboard/internal/domain"
	"github.com/couchcryptid/synop-dashboard/internal/observability"
)

// maxErrorBody caps how much of a failed response is echoed into the error.
const maxErrorBody = 512

// Client retrieves the current synop table.
type Client struct {
	httpClient *http.Client
	url        string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a synop client for the given endpoint.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		url:     url,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch performs one GET against the synop endpoint and decodes the station
// records. Records are returned as received; cleaning happens downstream.
func (c *Client) Fetch(ctx context.Context) ([]domain.RawObservation, error) {
	start := time.Now()
	raws, err := c.doRequest(ctx)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	c.logger.Debug("synop fetched", "records", len(raws), "duration", time.Since(start))
	return raws, nil
}

func (c *Client) doRequest(ctx context.Context) ([]domain.RawObservation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synop request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("synop API error: status %d: %s", resp.StatusCode, body)
	}

	var raws []domain.RawObservation
	if err := json.NewDecoder(resp.Body).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return raws, nil
}
