package securestore

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"seqrpay/internal/keys"
	dErrors "seqrpay/pkg/domain-errors"
)

const keyFileExt = ".key"

// FileStore persists each identity's private key in its own encrypted file
// under dir. Files are 0o600 in a 0o700 directory.
type FileStore struct {
	dir        string
	passphrase string
	kdf        KDFParams
}

type FileOption func(*FileStore)

// WithKDF overrides the argon2id cost. Tests use a cheap setting.
func WithKDF(p KDFParams) FileOption {
	return func(f *FileStore) {
		f.kdf = p
	}
}

func NewFileStore(dir, passphrase string, opts ...FileOption) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "secure store dir is required")
	}
	if passphrase == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "secure store passphrase is required")
	}
	f := &FileStore{dir: dir, passphrase: passphrase, kdf: DefaultKDF}
	for _, opt := range opts {
		opt(f)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create secure store dir")
	}
	return f, nil
}

func (f *FileStore) Generate(_ context.Context, identity string) (*keys.SigningHandle, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate P-256 key")
	}
	der, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshal private key")
	}
	defer zero(der)

	sealed, err := seal(f.passphrase, f.kdf, der, []byte(identity))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encrypt private key")
	}
	if err := f.writeAtomic(f.pathFor(identity), sealed); err != nil {
		return nil, err
	}
	return keys.NewSigningHandle(identity, priv)
}

func (f *FileStore) Load(_ context.Context, identity string) (*keys.SigningHandle, error) {
	raw, err := os.ReadFile(f.pathFor(identity))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, dErrors.Wrap(err, dErrors.CodeKeyNotFound, "no private key for "+identity)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read private key")
	}
	der, err := open(f.passphrase, raw, []byte(identity))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decrypt private key")
	}
	defer zero(der)

	priv, err := x509.ParseECPrivateKey(der)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "parse private key")
	}
	return keys.NewSigningHandle(identity, priv)
}

// Remove deletes identity's key file. Removing an absent key is not an error.
func (f *FileStore) Remove(identity string) error {
	err := os.Remove(f.pathFor(identity))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "remove private key")
	}
	return nil
}

// Identities are hex-encoded so any username maps to a safe file name.
func (f *FileStore) pathFor(identity string) string {
	return filepath.Join(f.dir, hex.EncodeToString([]byte(identity))+keyFileExt)
}

func (f *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "create temp key file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return dErrors.Wrap(err, dErrors.CodeInternal, "write key file")
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return dErrors.Wrap(err, dErrors.CodeInternal, "chmod key file")
	}
	if err := tmp.Close(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "close key file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "install key file")
	}
	return nil
}

var _ keys.SecureStore = (*FileStore)(nil)
