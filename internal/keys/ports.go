package keys

import "context"

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// SecureStore keeps private keys. Private material is generated inside the
// store and only ever leaves it wrapped in a SigningHandle.
type SecureStore interface {
	// Generate creates a fresh P-256 keypair for identity, replacing any
	// previous one for that identity only.
	Generate(ctx context.Context, identity string) (*SigningHandle, error)
	// Load returns the handle for identity, or an error matching
	// ErrKeyNotFound when the store holds no key for it.
	Load(ctx context.Context, identity string) (*SigningHandle, error)
}

// PublicKeyIndex records exported public keys by identity.
type PublicKeyIndex interface {
	// Get reports ok=false when nothing is recorded.
	Get(ctx context.Context, identity string) (exported string, ok bool, err error)
	Put(ctx context.Context, identity, exported string) error
}

// Directory resolves another party's public key. Implementations return an
// error matching ErrKeyNotFound for unknown identities.
type Directory interface {
	LookupPublicKey(ctx context.Context, identity string) (PublicKey, error)
}

// DirectoryFunc adapts a plain function to Directory.
type DirectoryFunc func(ctx context.Context, identity string) (PublicKey, error)

func (f DirectoryFunc) LookupPublicKey(ctx context.Context, identity string) (PublicKey, error) {
	return f(ctx, identity)
}
