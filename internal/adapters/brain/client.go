// Package brain provides the HTTP client for the AI evaluation service
package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	perr "fanflow/internal/platform/errors"
	"fanflow/internal/platform/logger"
	adom "fanflow/internal/services/automations/domain"
	edom "fanflow/internal/services/engine/domain"
)

const (
	defaultTimeout = 20 * time.Second
	defaultUA      = "fanflow-brain"
	defaultModel   = "compact-v1"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	APIKey    string
	Model     string
}

// Client calls the evaluation service for AI rule conditions and reply
// generation. One attempt per call; evaluation errors make the matcher
// skip the rule and generation errors fail the pipeline upstream
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Model == "" {
		o.Model = defaultModel
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("brain"),
	}
}

type evaluateRequest struct {
	Model    string `json:"model"`
	Prompt   string `json:"prompt"`
	Platform string `json:"platform"`
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

type evaluateResponse struct {
	Match bool `json:"match"`
}

// Evaluate asks the service whether an AI condition holds for the input
func (c *Client) Evaluate(ctx context.Context, condition string, in adom.MatchInput) (bool, error) {
	if strings.TrimSpace(condition) == "" {
		return false, perr.Newf(perr.ErrorCodeInvalidArgument, "brain: empty condition prompt")
	}
	var out evaluateResponse
	err := c.post(ctx, "/v1/evaluate", evaluateRequest{
		Model:    c.opts.Model,
		Prompt:   condition,
		Platform: in.Platform,
		Kind:     string(in.Kind),
		Text:     in.Text,
		Category: string(in.Category),
	}, &out)
	if err != nil {
		return false, err
	}
	return out.Match, nil
}

type generateRequest struct {
	Model    string `json:"model"`
	Platform string `json:"platform"`
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Template string `json:"template,omitempty"`
}

type generateResponse struct {
	Reply string `json:"reply"`
}

// Generate renders reply text for a matched automation
func (c *Client) Generate(ctx context.Context, in edom.GenerateInput) (string, error) {
	var out generateResponse
	err := c.post(ctx, "/v1/generate", generateRequest{
		Model:    c.opts.Model,
		Platform: in.Platform,
		Kind:     in.Kind,
		Text:     in.Text,
		Category: in.Category,
		Template: in.Template,
	}, &out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Reply) == "" {
		return "", perr.Newf(perr.ErrorCodeUnknown, "brain: empty reply")
	}
	return out.Reply, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "brain encode failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "brain new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "brain transport failed")
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("brain http response")

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "brain decode failed")
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return perr.Newf(perr.ErrorCodeTooManyRequests, "brain rate limited")
	case resp.StatusCode == http.StatusUnauthorized:
		return perr.Newf(perr.ErrorCodeUnauthorized, "brain auth rejected")
	case resp.StatusCode >= 500:
		return perr.Newf(perr.ErrorCodeUnavailable, "brain upstream %d", resp.StatusCode)
	default:
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return perr.Newf(perr.ErrorCodeUnknown, "brain unexpected status %d: %s", resp.StatusCode, string(bytes.TrimSpace(tail)))
	}
}

var (
	_ adom.ConditionEvaluator = (*Client)(nil)
	_ edom.ResponseGenerator  = (*Client)(nil)
)
