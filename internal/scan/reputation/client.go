// Package reputation checks URLs against a VirusTotal-style URL analysis API.
package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"seqrpay/internal/platform/tracer"
	"seqrpay/internal/scan/ports"
	"seqrpay/pkg/platform/circuit"
)

const source = "reputation"

const statusCompleted = "completed"

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	PollInterval   time.Duration
	RequestsPerMin int
	HTTPClient     HTTPDoer
}

// Client submits a URL for analysis and polls until the analysis completes.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	client       HTTPDoer
	limiter      *rate.Limiter
	breaker      *circuit.Breaker
	tracer       tracer.Tracer
	logger       *slog.Logger
}

type Option func(*Client)

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client. A non-positive RequestsPerMin disables pacing.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerMin > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMin))
	}

	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
		client:       httpClient,
		limiter:      rate.NewLimiter(limit, 1),
		breaker:      circuit.New(source),
		tracer:       tracer.NewNoop(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type submitResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type analysisResponse struct {
	Data struct {
		Attributes struct {
			Status string `json:"status"`
			Stats  struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
				Undetected int `json:"undetected"`
			} `json:"stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// Scan reports a pass when no engine flags the URL as malicious or
// suspicious.
func (c *Client) Scan(ctx context.Context, target string) (finding ports.Finding, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanReputationScan)
	defer func() { span.End(err) }()

	if c.apiKey == "" {
		return ports.Finding{}, ports.NewError(ports.ErrorNotConfigured, source, "api key is not set", nil)
	}
	if !c.breaker.Allow() {
		return ports.Finding{}, ports.NewError(ports.ErrorOutage, source, "circuit open", nil)
	}

	finding, err = c.scan(ctx, target)
	c.record(err)
	if err != nil {
		return ports.Finding{}, err
	}
	span.SetAttributes(tracer.Bool(tracer.AttrPass, finding.Pass))
	return finding, nil
}

func (c *Client) scan(ctx context.Context, target string) (ports.Finding, error) {
	id, err := c.submit(ctx, target)
	if err != nil {
		return ports.Finding{}, err
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ports.Finding{}, ports.NewError(ports.ErrorTimeout, source, "analysis did not complete", ctx.Err())
		case <-timer.C:
		}

		analysis, err := c.poll(ctx, id)
		if err != nil {
			return ports.Finding{}, err
		}
		attrs := analysis.Data.Attributes
		if attrs.Status == statusCompleted {
			if attrs.Stats.Malicious == 0 && attrs.Stats.Suspicious == 0 {
				return ports.Finding{Pass: true, Detail: "no engine flagged the url"}, nil
			}
			return ports.Finding{
				Pass:   false,
				Detail: fmt.Sprintf("flagged by %d malicious and %d suspicious engines", attrs.Stats.Malicious, attrs.Stats.Suspicious),
			}, nil
		}
		c.logger.DebugContext(ctx, "analysis pending", "analysis_id", id, "status", attrs.Status)
		timer.Reset(c.pollInterval)
	}
}

func (c *Client) submit(ctx context.Context, target string) (string, error) {
	form := url.Values{"url": {target}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return "", ports.NewError(ports.ErrorInternal, source, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out submitResponse
	if err := c.do(ctx, req, &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", ports.NewError(ports.ErrorBadData, source, "submission returned no analysis id", nil)
	}
	return out.Data.ID, nil
}

func (c *Client) poll(ctx context.Context, id string) (analysisResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/analyses/"+url.PathEscape(id), nil)
	if err != nil {
		return analysisResponse{}, ports.NewError(ports.ErrorInternal, source, "failed to create request", err)
	}
	var out analysisResponse
	if err := c.do(ctx, req, &out); err != nil {
		return analysisResponse{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return ports.NewError(ports.ErrorTimeout, source, "rate limiter wait", err)
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ports.NewError(ports.ErrorTimeout, source, "request timeout", err)
		}
		return ports.NewError(ports.ErrorOutage, source, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ports.NewError(ports.ErrorBadData, source, "failed to read response", err)
	}
	if category, failed := statusCategory(resp.StatusCode); failed {
		return ports.NewError(category, source, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return ports.NewError(ports.ErrorBadData, source, "failed to decode response", err)
	}
	return nil
}

func statusCategory(status int) (ports.ErrorCategory, bool) {
	switch {
	case status >= 200 && status < 300:
		return "", false
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ports.ErrorAuthentication, true
	case status == http.StatusTooManyRequests:
		return ports.ErrorRateLimited, true
	case status >= 500:
		return ports.ErrorOutage, true
	default:
		return ports.ErrorBadData, true
	}
}

// record feeds the breaker. Only availability failures count against it.
func (c *Client) record(err error) {
	if err == nil {
		if change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.Info("reputation circuit closed")
		}
		return
	}
	var ce *ports.CollaboratorError
	if !errors.As(err, &ce) {
		return
	}
	switch ce.Category {
	case ports.ErrorOutage, ports.ErrorTimeout, ports.ErrorRateLimited:
		if change := c.breaker.RecordFailure(); change.Opened {
			c.logger.Warn("reputation circuit opened", "cause", ce.Category)
		}
	}
}
