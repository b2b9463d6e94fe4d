package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	dErrors "seqrpay/pkg/domain-errors"
)

// PublicKey is the freely copyable verification half of a P-256 keypair.
// The zero value holds no key and verifies nothing.
type PublicKey struct {
	key *ecdsa.PublicKey
}

// NewPublicKey accepts only P-256 keys.
func NewPublicKey(key *ecdsa.PublicKey) (PublicKey, error) {
	if key == nil || key.Curve != elliptic.P256() {
		return PublicKey{}, dErrors.New(dErrors.CodeValidation, "public key must be ECDSA P-256")
	}
	return PublicKey{key: key}, nil
}

// ParsePublicKey decodes the export format: standard base64 of the PKIX
// SubjectPublicKeyInfo DER encoding.
func ParsePublicKey(encoded string) (PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return PublicKey{}, dErrors.Wrap(err, dErrors.CodeValidation, "public key is not base64")
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return PublicKey{}, dErrors.Wrap(err, dErrors.CodeValidation, "public key is not PKIX")
	}
	ec, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return PublicKey{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("public key type %T is not ECDSA", parsed))
	}
	return NewPublicKey(ec)
}

// Export renders the key in the export format.
func (p PublicKey) Export() (string, error) {
	if p.IsZero() {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "export of empty public key")
	}
	der, err := x509.MarshalPKIXPublicKey(p.key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "marshal public key")
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// Verify checks an ASN.1 DER ECDSA signature over SHA-256(message).
func (p PublicKey) Verify(message, signature []byte) bool {
	if p.IsZero() {
		return false
	}
	digest := sha256.Sum256(message)
	return ecdsa.VerifyASN1(p.key, digest[:], signature)
}

func (p PublicKey) Equal(other PublicKey) bool {
	if p.IsZero() || other.IsZero() {
		return p.IsZero() && other.IsZero()
	}
	return p.key.Equal(other.key)
}

func (p PublicKey) IsZero() bool {
	return p.key == nil
}
