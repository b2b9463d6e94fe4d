package directory

import (
	"context"
	"log/slog"

	"seqrpay/internal/keys"
)

// PublicKeySource is satisfied by keys.Manager.
type PublicKeySource interface {
	PublicKey(ctx context.Context, identity string) (keys.PublicKey, error)
}

// LocalStub answers lookups from this device's own keys. It exists for
// development only: a verifier using it trusts whatever this device holds.
type LocalStub struct {
	source PublicKeySource
}

func NewLocalStub(source PublicKeySource, logger *slog.Logger) *LocalStub {
	if source == nil {
		panic("directory.NewLocalStub: public key source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("using local key directory stub; verification only trusts keys held on this device")
	return &LocalStub{source: source}
}

func (s *LocalStub) LookupPublicKey(ctx context.Context, identity string) (keys.PublicKey, error) {
	return s.source.PublicKey(ctx, identity)
}

var _ keys.Directory = (*LocalStub)(nil)
