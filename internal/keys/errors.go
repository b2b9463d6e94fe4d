package keys

import (
	dErrors "seqrpay/pkg/domain-errors"
)

var (
	// ErrKeyNotFound matches any lookup that found no key for an identity.
	ErrKeyNotFound = dErrors.New(dErrors.CodeKeyNotFound, "no key for identity")
	// ErrNotSerializable is returned by every marshal hook on SigningHandle.
	ErrNotSerializable = dErrors.New(dErrors.CodeInvariantViolation, "signing handles cannot be serialized")
	// ErrInvalidIdentity rejects empty or untrimmed identities.
	ErrInvalidIdentity = dErrors.New(dErrors.CodeValidation, "identity must be a non-empty trimmed string")
)

func keyNotFound(identity string) error {
	return &dErrors.Error{Code: dErrors.CodeKeyNotFound, Message: "no key for identity " + identity}
}
