// Package verifier checks a received envelope against the claimed payee's
// public key from a trusted directory. Failure is an Outcome, not an error.
package verifier

import (
	"context"
	"errors"
	"log/slog"

	"seqrpay/internal/keys"
	"seqrpay/internal/payment/canonical"
	"seqrpay/internal/payment/envelope"
	"seqrpay/internal/platform/metrics"
	"seqrpay/internal/platform/tracer"
)

// Reason explains an invalid outcome.
type Reason string

const (
	ReasonKeyNotFound        Reason = "key-not-found"
	ReasonMissingPayee       Reason = "missing-payee"
	ReasonAlgorithmMismatch  Reason = "algorithm-mismatch"
	ReasonMalformedSignature Reason = "malformed-signature"
	ReasonEncoding           Reason = "encoding-error"
	ReasonSignatureMismatch  Reason = "signature-mismatch"
)

// Outcome is Verified or Invalid(Reason).
type Outcome struct {
	Verified bool
	Reason   Reason
}

func Verified() Outcome {
	return Outcome{Verified: true}
}

func Invalid(reason Reason) Outcome {
	return Outcome{Reason: reason}
}

func (o Outcome) String() string {
	if o.Verified {
		return "verified"
	}
	return "invalid(" + string(o.Reason) + ")"
}

type Verifier struct {
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
}

type Option func(*Verifier)

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) {
		v.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(v *Verifier) {
		v.tracer = t
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}

func New(opts ...Option) *Verifier {
	v := &Verifier{
		tracer: tracer.NewNoop(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify re-derives the canonical string from the intent block and checks the
// signature with the key directory returns for the intent's payee. It fails
// closed: anything short of a valid signature is Invalid.
func (v *Verifier) Verify(ctx context.Context, env *envelope.SignedEnvelope, directory keys.Directory) Outcome {
	ctx, span := v.tracer.Start(ctx, tracer.SpanSignatureVerify)
	outcome := v.verify(ctx, env, directory)
	span.SetAttributes(
		tracer.Bool(tracer.AttrPass, outcome.Verified),
		tracer.String(tracer.AttrReason, string(outcome.Reason)),
	)
	span.End(nil)

	if outcome.Verified {
		v.metrics.IncrementVerification("verified")
	} else {
		v.metrics.IncrementVerification(string(outcome.Reason))
	}
	return outcome
}

func (v *Verifier) verify(ctx context.Context, env *envelope.SignedEnvelope, directory keys.Directory) Outcome {
	if env == nil || directory == nil {
		return Invalid(ReasonKeyNotFound)
	}
	if env.Algorithm() != envelope.AlgorithmSHA256WithECDSA {
		return Invalid(ReasonAlgorithmMismatch)
	}
	intent := env.Intent()
	payee := intent.Payee()
	if payee == "" {
		return Invalid(ReasonMissingPayee)
	}

	sig, err := env.SignatureBytes()
	if err != nil {
		return Invalid(ReasonMalformedSignature)
	}
	message, err := canonical.Bytes(intent)
	if err != nil {
		return Invalid(ReasonEncoding)
	}

	pub, err := directory.LookupPublicKey(ctx, payee)
	if err != nil {
		// Unresolvable is never implicitly valid, whatever the cause.
		if !errors.Is(err, keys.ErrKeyNotFound) {
			v.logger.WarnContext(ctx, "directory lookup failed", "identity", payee, "error", err)
		}
		return Invalid(ReasonKeyNotFound)
	}
	if pub.IsZero() {
		return Invalid(ReasonKeyNotFound)
	}

	if !pub.Verify(message, sig) {
		return Invalid(ReasonSignatureMismatch)
	}
	return Verified()
}
