// Package deliver provides the HTTP client for the platform delivery gateway
package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	perr "fanflow/internal/platform/errors"
	"fanflow/internal/platform/logger"
	dom "fanflow/internal/services/dispatch/domain"
)

const (
	defaultTimeout = 15 * time.Second
	defaultUA      = "fanflow-dispatch"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// APIKey authenticates against the gateway, sent as a bearer token
	APIKey string
}

// Client posts one action per call and never retries; the delivery queue
// owns the retry budget. Responses map onto the platform error codes the
// queue's failure policy understands
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
	now  func() time.Time
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("deliver"),
		now:  time.Now,
	}
}

type deliverRequest struct {
	Platform   string `json:"platform"`
	Account    string `json:"account"`
	ExternalID string `json:"external_id"`
	ContentID  string `json:"content_id,omitempty"`
	Action     string `json:"action"`
	Payload    string `json:"payload,omitempty"`
}

type deliverResponse struct {
	PlatformID string `json:"platform_id"`
}

// Deliver performs one delivery attempt against the gateway
func (c *Client) Deliver(ctx context.Context, d dom.Delivery) (dom.Receipt, error) {
	body, err := json.Marshal(deliverRequest{
		Platform:   d.Platform,
		Account:    d.Account,
		ExternalID: d.ExternalID,
		ContentID:  d.ContentID,
		Action:     d.Action,
		Payload:    d.Payload,
	})
	if err != nil {
		return dom.Receipt{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "deliver encode failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/v1/actions", bytes.NewReader(body))
	if err != nil {
		return dom.Receipt{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "deliver new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		return dom.Receipt{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "deliver transport failed")
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().
		Str("platform", d.Platform).
		Str("action", d.Action).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Msg("deliver http response")

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var out deliverResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil && err != io.EOF {
			return dom.Receipt{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "deliver decode failed")
		}
		return dom.Receipt{PlatformID: out.PlatformID}, nil
	case resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusNoContent:
		return dom.Receipt{}, nil
	default:
		return dom.Receipt{}, statusError(resp, d.Platform)
	}
}

// statusError maps a non-success gateway status onto the error taxonomy
func statusError(resp *http.Response, platform string) error {
	tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := string(bytes.TrimSpace(tail))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return perr.Newf(perr.ErrorCodeTooManyRequests, "deliver %s rate limited: %s", platform, msg)
	case http.StatusUnauthorized:
		return perr.Newf(perr.ErrorCodeUnauthorized, "deliver %s auth rejected: %s", platform, msg)
	case http.StatusForbidden:
		return perr.Newf(perr.ErrorCodeForbidden, "deliver %s forbidden: %s", platform, msg)
	case http.StatusNotFound, http.StatusGone:
		return perr.Newf(perr.ErrorCodeNotFound, "deliver %s target missing: %s", platform, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return perr.Newf(perr.ErrorCodeInvalidArgument, "deliver %s rejected payload: %s", platform, msg)
	}
	if resp.StatusCode >= 500 {
		return perr.Newf(perr.ErrorCodeUnavailable, "deliver %s upstream %d: %s", platform, resp.StatusCode, msg)
	}
	return perr.Newf(perr.ErrorCodeUnknown, "deliver %s unexpected status %d: %s", platform, resp.StatusCode, msg)
}

var _ dom.Deliverer = (*Client)(nil)
