// Package heuristic asks a generative model for a short risk opinion on a URL.
package heuristic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"seqrpay/internal/platform/tracer"
	"seqrpay/internal/scan/ports"
)

const source = "heuristic"

const promptTemplate = "Analyze the trustworthiness of this URL for a secure payment app user. " +
	"Is it safe, potentially risky, or malicious? " +
	"Provide a very brief explanation (1-2 sentences max). URL: %s"

// riskMarkers make an answer count as a failing opinion.
var riskMarkers = []string{"malicious", "risky", "unsafe", "phishing", "scam", "suspicious", "warning", "caution"}

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL    string
	Model      string
	APIKey     string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// Assessor calls a Gemini-style generateContent endpoint.
type Assessor struct {
	baseURL string
	model   string
	apiKey  string
	client  HTTPDoer
	tracer  tracer.Tracer
	logger  *slog.Logger
}

type Option func(*Assessor)

func WithTracer(t tracer.Tracer) Option {
	return func(a *Assessor) {
		if t != nil {
			a.tracer = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Assessor) {
		if l != nil {
			a.logger = l
		}
	}
}

func New(cfg Config, opts ...Option) *Assessor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	a := &Assessor{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		client:  client,
		tracer:  tracer.NewNoop(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Assess returns the model's answer as the finding detail. The finding fails
// when the answer carries any risk marker.
func (a *Assessor) Assess(ctx context.Context, target string) (finding ports.Finding, err error) {
	ctx, span := a.tracer.Start(ctx, tracer.SpanHeuristicAssess)
	defer func() { span.End(err) }()

	if a.apiKey == "" {
		return ports.Finding{}, ports.NewError(ports.ErrorNotConfigured, source, "api key is not set", nil)
	}

	text, err := a.generate(ctx, fmt.Sprintf(promptTemplate, target))
	if err != nil {
		return ports.Finding{}, err
	}
	finding = Rate(text)
	span.SetAttributes(tracer.Bool(tracer.AttrPass, finding.Pass))
	return finding, nil
}

// Rate turns a free-text opinion into a finding.
func Rate(text string) ports.Finding {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	for _, marker := range riskMarkers {
		if strings.Contains(lower, marker) {
			return ports.Finding{Pass: false, Detail: text}
		}
	}
	return ports.Finding{Pass: true, Detail: text}
}

func (a *Assessor) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", ports.NewError(ports.ErrorInternal, source, "failed to marshal request", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, url.PathEscape(a.model), url.QueryEscape(a.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", ports.NewError(ports.ErrorInternal, source, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ports.NewError(ports.ErrorTimeout, source, "request timeout", err)
		}
		return "", ports.NewError(ports.ErrorOutage, source, "failed to execute request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", ports.NewError(ports.ErrorBadData, source, "failed to read response", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ports.NewError(ports.ErrorAuthentication, source, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ports.NewError(ports.ErrorRateLimited, source, "quota exceeded", nil)
	case resp.StatusCode >= 500:
		return "", ports.NewError(ports.ErrorOutage, source, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 300:
		return "", ports.NewError(ports.ErrorBadData, source, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", ports.NewError(ports.ErrorBadData, source, "failed to decode response", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 ||
		strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text) == "" {
		return "", ports.NewError(ports.ErrorBadData, source, "empty response", nil)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
