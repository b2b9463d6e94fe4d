// Package securestore keeps P-256 private keys for the keys package.
//
// FileStore writes one passphrase-encrypted file per identity. The encryption
// envelope is argon2id for key derivation and XChaCha20-Poly1305 for the
// payload, with the identity bound as associated data so a file renamed to
// another identity fails to open.
package securestore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	envelopeVersion = 1
	saltSize        = 16
	filePrefix      = "SEQRKEY1\n"
	kdfName         = "argon2id"
)

var (
	ErrAuthFailed = errors.New("securestore: authentication failed")
	ErrInvalid    = errors.New("securestore: envelope is invalid")
)

// KDFParams tunes argon2id. Production uses DefaultKDF.
type KDFParams struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

var DefaultKDF = KDFParams{Time: 2, MemoryKB: 64 * 1024, Threads: 1}

type envelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

func seal(passphrase string, params KDFParams, plaintext, aad []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(passphrase, salt, params)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(envelope{
		Version:     envelopeVersion,
		KDF:         kdfName,
		KDFTime:     params.Time,
		KDFMemoryKB: params.MemoryKB,
		KDFThreads:  params.Threads,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, plaintext, aad),
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

func open(passphrase string, data, aad []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), filePrefix) {
		return nil, ErrInvalid
	}
	var env envelope
	if err := json.Unmarshal(data[len(filePrefix):], &env); err != nil {
		return nil, ErrInvalid
	}
	if env.Version != envelopeVersion || env.KDF != kdfName || len(env.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrInvalid
	}
	// Stored parameters win so files survive a change of DefaultKDF.
	key := deriveKey(passphrase, env.Salt, KDFParams{Time: env.KDFTime, MemoryKB: env.KDFMemoryKB, Threads: env.KDFThreads})
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, aad)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func deriveKey(passphrase string, salt []byte, p KDFParams) []byte {
	return argon2.IDKey([]byte(passphrase), salt, p.Time, p.MemoryKB, p.Threads, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
