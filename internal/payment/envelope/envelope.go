// Package envelope defines the payment intent, the signed envelope that
// carries it, and the JSON document encoded into payment QR codes.
package envelope

import (
	"encoding/base64"
	"maps"
	"strings"

	dErrors "seqrpay/pkg/domain-errors"
)

const (
	TypePaymentRequest = "paymentRequest"
	Version            = "1.0"

	// AlgorithmSHA256WithECDSA is ECDSA over P-256 with SHA-256, DER signatures.
	AlgorithmSHA256WithECDSA = "SHA256withECDSA"

	// TimestampLayout is UTC ISO-8601 with second precision.
	TimestampLayout = "2006-01-02T15:04:05Z"
)

// Intent field names, as they appear in the wire intent block.
const (
	FieldPayee     = "payeeUsername"
	FieldAmount    = "amount"
	FieldCurrency  = "currency"
	FieldTimestamp = "timestamp"
)

// Intent is the unordered field set a payee signs.
type Intent map[string]string

func (i Intent) Payee() string     { return i[FieldPayee] }
func (i Intent) Amount() string    { return i[FieldAmount] }
func (i Intent) Currency() string  { return i[FieldCurrency] }
func (i Intent) Timestamp() string { return i[FieldTimestamp] }

// Clone returns an independent copy; a nil intent clones to an empty one.
func (i Intent) Clone() Intent {
	out := make(Intent, len(i))
	maps.Copy(out, i)
	return out
}

// SignedEnvelope binds an intent to a signature. It is immutable: accessors
// return copies, so a signature can only ever describe the field set it was
// produced over.
type SignedEnvelope struct {
	intent    Intent
	algorithm string
	signature string
}

// New builds an envelope from raw DER signature bytes.
func New(intent Intent, algorithm string, signature []byte) *SignedEnvelope {
	return &SignedEnvelope{
		intent:    intent.Clone(),
		algorithm: algorithm,
		signature: EncodeSignature(signature),
	}
}

// newEncoded keeps a received signature text verbatim so a malformed value
// surfaces at verification, not at decode.
func newEncoded(intent Intent, algorithm, signature string) *SignedEnvelope {
	return &SignedEnvelope{intent: intent.Clone(), algorithm: algorithm, signature: signature}
}

func (e *SignedEnvelope) Intent() Intent {
	return e.intent.Clone()
}

func (e *SignedEnvelope) Algorithm() string {
	return e.algorithm
}

// EncodedSignature is the signature exactly as carried on the wire.
func (e *SignedEnvelope) EncodedSignature() string {
	return e.signature
}

// SignatureBytes decodes the wire signature.
func (e *SignedEnvelope) SignatureBytes() ([]byte, error) {
	return DecodeSignature(e.signature)
}

// EncodeSignature uses the URL-safe alphabet with padding on one line.
func EncodeSignature(sig []byte) string {
	return base64.URLEncoding.EncodeToString(sig)
}

// DecodeSignature accepts URL-safe base64 with or without padding.
func DecodeSignature(s string) ([]byte, error) {
	if s == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "empty signature")
	}
	sig, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "signature is not url-safe base64")
	}
	return sig, nil
}
