// Package tracer is a small tracing abstraction so signing, verification and
// scan evaluation can emit spans without importing OpenTelemetry everywhere.
//
// Implementations:
//   - NoopTracer: tests and disabled tracing
//   - OTelTracer: OpenTelemetry adapter
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks it failed.
	// End must be called exactly once, typically via defer.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashIdentity returns a short SHA-256 prefix of a username so traces can be
// correlated without carrying the username itself.
func HashIdentity(identity string) string {
	if identity == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(hash[:8])
}

// Span names.
const (
	SpanPaymentSign     = "payment.sign"
	SpanSignatureVerify = "payment.verify"
	SpanScanEvaluate    = "scan.evaluate"
	SpanReputationScan  = "scan.reputation"
	SpanHeuristicAssess = "scan.heuristic"
	SpanDirectoryLookup = "keys.directory.lookup"
	SpanKeypairEnsure   = "keys.ensure"
)

// Attribute keys.
const (
	AttrIdentity    = "identity"
	AttrPayloadKind = "payload.kind"
	AttrSlot        = "verdict.slot"
	AttrPass        = "verdict.pass"
	AttrAdmit       = "decision.admit"
	AttrReason      = "reason"
	AttrRegenerated = "keys.regenerated"
)

// Event names.
const (
	EventVerdictReported = "verdict.reported"
	EventVerdictDropped  = "verdict.dropped"
)
