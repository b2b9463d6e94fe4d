package keys

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	dErrors "seqrpay/pkg/domain-errors"
)

// MemoryIndex is a PublicKeyIndex for tests and ephemeral agents.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]string)}
}

func (m *MemoryIndex) Get(_ context.Context, identity string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[identity]
	return v, ok, nil
}

func (m *MemoryIndex) Put(_ context.Context, identity, exported string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[identity] = exported
	return nil
}

// Delete drops an entry. Used to simulate index loss.
func (m *MemoryIndex) Delete(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, identity)
}

var errIndexUndecodable = errors.New("public key index is not valid JSON")

// FileIndex persists the index as one JSON object in a file. Writes go
// through a temp file and rename so a crash never leaves a torn index.
// An undecodable file is replaced on the next Put; entries are rebuilt
// from the secure store as identities are ensured.
type FileIndex struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

type IndexOption func(*FileIndex)

func WithIndexLogger(l *slog.Logger) IndexOption {
	return func(f *FileIndex) {
		if l != nil {
			f.logger = l
		}
	}
}

func NewFileIndex(path string, opts ...IndexOption) *FileIndex {
	f := &FileIndex{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FileIndex) Get(_ context.Context, identity string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := entries[identity]
	return v, ok, nil
}

func (f *FileIndex) Put(_ context.Context, identity, exported string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if errors.Is(err, errIndexUndecodable) {
		f.logger.Warn("public key index undecodable, starting a fresh one", "path", f.path, "error", err)
		entries, err = make(map[string]string), nil
	}
	if err != nil {
		return err
	}
	entries[identity] = exported
	return f.write(entries)
}

func (f *FileIndex) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read public key index")
	}
	entries := make(map[string]string)
	if len(raw) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, dErrors.Wrap(errors.Join(errIndexUndecodable, err), dErrors.CodeInternal, "decode public key index")
	}
	return entries, nil
}

func (f *FileIndex) write(entries map[string]string) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode public key index")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "create index dir")
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "write public key index")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "replace public key index")
	}
	return nil
}

var (
	_ PublicKeyIndex = (*MemoryIndex)(nil)
	_ PublicKeyIndex = (*FileIndex)(nil)
)
