package keys

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"seqrpay/internal/platform/metrics"
	"seqrpay/internal/platform/tracer"
	dErrors "seqrpay/pkg/domain-errors"
	psync "seqrpay/pkg/platform/sync"
)

const (
	generatedInitial        = "initial"
	generatedPrivateMissing = "private_missing"
)

// Manager owns the per-identity keypair lifecycle. It is constructed once by
// the composition root and passed to signers and verifiers.
//
// Operations for one identity are serialized; different identities share
// nothing except the index.
type Manager struct {
	store     SecureStore
	index     PublicKeyIndex
	directory Directory
	locks     *psync.ShardedMutex
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger
}

type Option func(*Manager)

// WithDirectory sets the trusted directory used for other identities' keys.
func WithDirectory(d Directory) Option {
	return func(m *Manager) {
		m.directory = d
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(m *Manager) {
		m.tracer = t
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager panics if a required dependency is nil.
func NewManager(store SecureStore, index PublicKeyIndex, opts ...Option) *Manager {
	if store == nil {
		panic("keys.NewManager: secure store is required")
	}
	if index == nil {
		panic("keys.NewManager: public key index is required")
	}
	m := &Manager{
		store:  store,
		index:  index,
		locks:  psync.NewShardedMutex(0),
		tracer: tracer.NewNoop(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureKeypair makes sure identity has a usable keypair and that the index
// records its current public half. It is idempotent.
//
// A stored private key is always kept: a missing or stale index entry is
// rewritten from it. A recorded public key whose private half is gone is
// replaced by a fresh keypair, which makes earlier signatures unverifiable.
func (m *Manager) EnsureKeypair(ctx context.Context, identity string) (err error) {
	if err := validateIdentity(identity); err != nil {
		return err
	}
	ctx, span := m.tracer.Start(ctx, tracer.SpanKeypairEnsure,
		tracer.String(tracer.AttrIdentity, tracer.HashIdentity(identity)))
	defer func() { span.End(err) }()

	unlock := m.locks.Lock(identity)
	defer unlock()

	recorded, hasRecord, err := m.index.Get(ctx, identity)
	if err != nil {
		// The index is rebuilt from the secure store below.
		m.logger.WarnContext(ctx, "public key index unreadable, treating as no record",
			"identity", identity,
			"error", err,
		)
		recorded, hasRecord = "", false
	}

	handle, err := m.store.Load(ctx, identity)
	switch {
	case err == nil:
		return m.syncIndex(ctx, identity, handle.PublicKey(), recorded, hasRecord)
	case errors.Is(err, ErrKeyNotFound):
		// fall through to generation
	default:
		// A store that cannot be read (wrong passphrase, I/O) must not be
		// treated as empty, or a working key would be overwritten.
		return dErrors.Wrap(err, dErrors.CodeInternal, "load private key")
	}

	reason := generatedInitial
	if hasRecord {
		reason = generatedPrivateMissing
		m.logger.WarnContext(ctx, "private key missing for recorded public key, regenerating keypair",
			"identity", identity,
		)
	}
	span.SetAttributes(tracer.Bool(tracer.AttrRegenerated, hasRecord))

	handle, err = m.store.Generate(ctx, identity)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "generate keypair")
	}
	exported, err := handle.PublicKey().Export()
	if err != nil {
		return err
	}
	if err := m.index.Put(ctx, identity, exported); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "record public key")
	}
	m.metrics.IncrementKeypairGenerated(reason)
	m.logger.InfoContext(ctx, "keypair generated", "identity", identity, "reason", reason)
	return nil
}

func (m *Manager) syncIndex(ctx context.Context, identity string, current PublicKey, recorded string, hasRecord bool) error {
	exported, err := current.Export()
	if err != nil {
		return err
	}
	if hasRecord && recorded == exported {
		return nil
	}
	if hasRecord {
		m.logger.WarnContext(ctx, "recorded public key is stale, rewriting from secure store",
			"identity", identity,
		)
	}
	if err := m.index.Put(ctx, identity, exported); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "record public key")
	}
	return nil
}

// Sign signs message as identity. It fails with an error matching
// ErrKeyNotFound when the identity has no private key.
func (m *Manager) Sign(ctx context.Context, identity string, message []byte) ([]byte, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	unlock := m.locks.Lock(identity)
	defer unlock()

	handle, err := m.store.Load(ctx, identity)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, keyNotFound(identity)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load signing key")
	}
	return handle.Sign(message)
}

// PublicKey returns identity's own public key. The index is preferred; when
// its entry is absent or malformed the secure store answers and the index is
// repaired.
func (m *Manager) PublicKey(ctx context.Context, identity string) (PublicKey, error) {
	if err := validateIdentity(identity); err != nil {
		return PublicKey{}, err
	}
	unlock := m.locks.Lock(identity)
	defer unlock()

	recorded, ok, err := m.index.Get(ctx, identity)
	if err != nil {
		m.logger.WarnContext(ctx, "public key index unreadable, asking secure store",
			"identity", identity, "error", err)
	}
	if err == nil && ok {
		pub, perr := ParsePublicKey(recorded)
		if perr == nil {
			return pub, nil
		}
		m.logger.WarnContext(ctx, "recorded public key malformed, asking secure store",
			"identity", identity, "error", perr)
	}

	handle, err := m.store.Load(ctx, identity)
	if errors.Is(err, ErrKeyNotFound) {
		return PublicKey{}, keyNotFound(identity)
	}
	if err != nil {
		return PublicKey{}, dErrors.Wrap(err, dErrors.CodeInternal, "load public key")
	}
	pub := handle.PublicKey()
	if exported, eerr := pub.Export(); eerr == nil {
		if perr := m.index.Put(ctx, identity, exported); perr != nil {
			m.logger.WarnContext(ctx, "index repair failed", "identity", identity, "error", perr)
		}
	}
	return pub, nil
}

// LookupRemotePublicKey resolves another identity through the trusted
// directory. It never consults local keys.
func (m *Manager) LookupRemotePublicKey(ctx context.Context, identity string) (PublicKey, error) {
	if err := validateIdentity(identity); err != nil {
		return PublicKey{}, err
	}
	if m.directory == nil {
		return PublicKey{}, dErrors.New(dErrors.CodeUnavailable, "no public key directory configured")
	}
	return m.directory.LookupPublicKey(ctx, identity)
}

// Directory exposes the manager's remote lookup as a Directory for verifiers.
func (m *Manager) Directory() Directory {
	return DirectoryFunc(m.LookupRemotePublicKey)
}

func validateIdentity(identity string) error {
	if identity == "" || strings.TrimSpace(identity) != identity {
		return ErrInvalidIdentity
	}
	return nil
}
