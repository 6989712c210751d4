package resourcemanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/models"
)

// Client talks to a remote resource-manager HTTP API. Reservation calls are
// retried on transport errors; a refusal (non-2xx answer) is final.
type Client struct {
	cfg    common.ResourceManagerConfig
	http   *http.Client
	logger arbor.ILogger
}

// NewClient creates a resource-manager HTTP client
func NewClient(cfg common.ResourceManagerConfig, logger arbor.ILogger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// refusedError marks a final refusal that must not be retried
type refusedError struct{ detail string }

func (e *refusedError) Error() string { return e.detail }

// Reserve posts the reservation request; failure aborts the service start
func (c *Client) Reserve(ctx context.Context, req *models.ReservationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: failed to encode reservation request: %v", models.ErrExternal, err)
	}

	attempts := uint(c.cfg.Retries)
	if attempts == 0 {
		attempts = 1
	}

	err = retry.Do(
		func() error { return c.post(ctx, "/reservation", body) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			_, refused := err.(*refusedError)
			return !refused
		}),
	)
	if err != nil {
		if refused, ok := err.(*refusedError); ok {
			return fmt.Errorf("%w: reservation for %s refused: %s", models.ErrResource, req.Name, refused.detail)
		}
		return fmt.Errorf("%w: resource manager unreachable: %v", models.ErrExternal, err)
	}

	c.logger.Info().
		Str("service", req.Name).
		Str("type", string(req.Type)).
		Int("servers", req.Servers).
		Msg("Reservation admitted")
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &refusedError{detail: fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))}
	}
	return nil
}

// ListLocations returns the location catalog of the resource manager
func (c *Client) ListLocations(ctx context.Context) ([]string, error) {
	return c.getList(ctx, "/locations")
}

// ListFlavors returns the flavor catalog of the resource manager
func (c *Client) ListFlavors(ctx context.Context) ([]string, error) {
	return c.getList(ctx, "/flavors")
}

func (c *Client) getList(ctx context.Context, path string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternal, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: resource manager unreachable: %v", models.ErrExternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: resource manager answered status %d for %s", models.ErrExternal, resp.StatusCode, path)
	}

	var items []string
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s listing: %v", models.ErrExternal, path, err)
	}
	return items, nil
}
