package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"log/slog"

	dErrors "seqrpay/pkg/domain-errors"
)

// SigningHandle is the capability to sign as one identity. The private key
// behind it is reachable only through Sign: every encoding hook fails and
// every formatting verb prints the identity alone.
type SigningHandle struct {
	identity string
	signer   crypto.Signer
	public   PublicKey
}

// NewSigningHandle wraps a P-256 signer. Secure stores call this after
// loading or generating a key.
func NewSigningHandle(identity string, signer crypto.Signer) (*SigningHandle, error) {
	if signer == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "signer is required")
	}
	ec, ok := signer.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "signer is not ECDSA")
	}
	pub, err := NewPublicKey(ec)
	if err != nil {
		return nil, err
	}
	return &SigningHandle{identity: identity, signer: signer, public: pub}, nil
}

func (h SigningHandle) Identity() string {
	return h.identity
}

func (h SigningHandle) PublicKey() PublicKey {
	return h.public
}

// Sign returns an ASN.1 DER ECDSA signature over SHA-256(message). Output is
// randomized per call.
func (h SigningHandle) Sign(message []byte) ([]byte, error) {
	if h.signer == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "empty signing handle")
	}
	digest := sha256.Sum256(message)
	sig, err := h.signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSigning, "ecdsa sign")
	}
	return sig, nil
}

func (h SigningHandle) String() string {
	return "SigningHandle(" + h.identity + ")"
}

func (h SigningHandle) GoString() string {
	return h.String()
}

// Format covers %v, %+v and %#v, which would otherwise walk unexported fields.
// Value receivers keep a dereferenced copy just as opaque.
func (h SigningHandle) Format(f fmt.State, _ rune) {
	_, _ = fmt.Fprint(f, h.String())
}

func (h SigningHandle) LogValue() slog.Value {
	return slog.StringValue(h.String())
}

func (h SigningHandle) MarshalJSON() ([]byte, error)   { return nil, ErrNotSerializable }
func (h SigningHandle) MarshalText() ([]byte, error)   { return nil, ErrNotSerializable }
func (h SigningHandle) MarshalBinary() ([]byte, error) { return nil, ErrNotSerializable }
func (h SigningHandle) GobEncode() ([]byte, error)     { return nil, ErrNotSerializable }
func (h SigningHandle) MarshalYAML() (any, error)      { return nil, ErrNotSerializable }
