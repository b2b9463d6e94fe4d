// Package directory resolves payee public keys for verification.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"seqrpay/internal/keys"
	"seqrpay/internal/platform/tracer"
	dErrors "seqrpay/pkg/domain-errors"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Entry is the wire shape of one published key.
type Entry struct {
	Identity  string `json:"identity"`
	PublicKey string `json:"publicKey"`
}

// Client looks keys up at GET {base}/v1/keys/{identity}.
type Client struct {
	baseURL string
	client  HTTPDoer
	tracer  tracer.Tracer
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c HTTPDoer) Option {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(cl *Client) {
		if t != nil {
			cl.tracer = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		tracer:  tracer.NewNoop(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// LookupPublicKey returns keys.ErrKeyNotFound for a 404 and rejects entries
// published under a different identity.
func (c *Client) LookupPublicKey(ctx context.Context, identity string) (pub keys.PublicKey, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanDirectoryLookup,
		tracer.String(tracer.AttrIdentity, tracer.HashIdentity(identity)))
	defer func() { span.End(err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/keys/"+url.PathEscape(identity), nil)
	if err != nil {
		return keys.PublicKey{}, dErrors.Wrap(err, dErrors.CodeInternal, "build directory request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return keys.PublicKey{}, dErrors.Wrap(err, dErrors.CodeTimeout, "directory lookup timed out")
		}
		return keys.PublicKey{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "directory unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return keys.PublicKey{}, &dErrors.Error{Code: dErrors.CodeKeyNotFound, Message: "no key for identity " + identity}
	case resp.StatusCode != http.StatusOK:
		return keys.PublicKey{}, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("directory returned status %d", resp.StatusCode))
	}

	var entry Entry
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&entry); err != nil {
		return keys.PublicKey{}, dErrors.Wrap(err, dErrors.CodeInternal, "decode directory entry")
	}
	if entry.Identity != identity {
		c.logger.WarnContext(ctx, "directory answered for another identity", "identity", identity, "answered", entry.Identity)
		return keys.PublicKey{}, dErrors.New(dErrors.CodeInvariantViolation, "directory entry identity mismatch")
	}
	return keys.ParsePublicKey(entry.PublicKey)
}

var _ keys.Directory = (*Client)(nil)
