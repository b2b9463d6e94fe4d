// Package signer builds payment intents and signs them into envelopes.
package signer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"seqrpay/internal/payment/canonical"
	"seqrpay/internal/payment/envelope"
	"seqrpay/internal/platform/metrics"
	"seqrpay/internal/platform/tracer"
	dErrors "seqrpay/pkg/domain-errors"
	"seqrpay/pkg/validation"
)

//go:generate mockgen -source=signer.go -destination=mocks/mocks.go -package=mocks KeySigner

// ErrSigning matches any failure of the key lifecycle while signing.
var ErrSigning = dErrors.New(dErrors.CodeSigning, "cannot sign payment request")

// KeySigner is the slice of the key lifecycle manager the signer needs.
type KeySigner interface {
	EnsureKeypair(ctx context.Context, identity string) error
	Sign(ctx context.Context, identity string, message []byte) ([]byte, error)
}

// Request is the payee's input. Amount is a decimal string; currency is
// upper-cased before validation.
type Request struct {
	Payee    string `json:"payeeUsername" validate:"required,notblank"`
	Amount   string `json:"amount" validate:"required,positive_decimal"`
	Currency string `json:"currency" validate:"required,currency_code"`
}

// Normalize trims input and upper-cases the currency code.
func (r *Request) Normalize() {
	r.Payee = strings.TrimSpace(r.Payee)
	r.Amount = strings.TrimSpace(r.Amount)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
}

// Validate checks field presence and formats. Call Normalize first.
func (r *Request) Validate() error {
	return validation.Validate(r)
}

type Service struct {
	keys    KeySigner
	now     func() time.Time
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now as the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New panics if keys is nil.
func New(keys KeySigner, opts ...Option) *Service {
	if keys == nil {
		panic("signer.New: key signer is required")
	}
	s := &Service{
		keys:   keys,
		now:    time.Now,
		tracer: tracer.NewNoop(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildAndSign validates req, stamps the intent with the current UTC second,
// signs its canonical form as the payee and returns the envelope.
func (s *Service) BuildAndSign(ctx context.Context, req Request) (env *envelope.SignedEnvelope, err error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanPaymentSign,
		tracer.String(tracer.AttrIdentity, tracer.HashIdentity(req.Payee)))
	defer func() {
		if err != nil {
			s.metrics.IncrementSigningFailure(errorCode(err))
		}
		span.End(err)
	}()

	intent := envelope.Intent{
		envelope.FieldPayee:     req.Payee,
		envelope.FieldAmount:    req.Amount,
		envelope.FieldCurrency:  req.Currency,
		envelope.FieldTimestamp: s.now().UTC().Format(envelope.TimestampLayout),
	}
	if ambiguous := canonical.AmbiguousFields(intent); len(ambiguous) > 0 {
		s.logger.WarnContext(ctx, "intent values contain canonical separators",
			"fields", ambiguous,
		)
	}

	message, err := canonical.Bytes(intent)
	if err != nil {
		return nil, err
	}

	if err := s.keys.EnsureKeypair(ctx, req.Payee); err != nil {
		return nil, dErrors.Reclassify(err, dErrors.CodeSigning, "cannot sign payment request: keypair unavailable")
	}
	sig, err := s.keys.Sign(ctx, req.Payee, message)
	if err != nil {
		return nil, dErrors.Reclassify(err, dErrors.CodeSigning, "cannot sign payment request")
	}

	s.metrics.IncrementSigned()
	s.logger.InfoContext(ctx, "payment request signed",
		"identity", req.Payee,
		"currency", req.Currency,
	)
	return envelope.New(intent, envelope.AlgorithmSHA256WithECDSA, sig), nil
}

func errorCode(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return string(de.Code)
	}
	return string(dErrors.CodeInternal)
}
