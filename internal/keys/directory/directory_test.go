package directory

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"seqrpay/internal/keys"
	"seqrpay/internal/keys/securestore"
	dErrors "seqrpay/pkg/domain-errors"
)

type DirectorySuite struct {
	suite.Suite
	ctx      context.Context
	manager  *keys.Manager
	exported string
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	s.ctx = context.Background()
	s.manager = keys.NewManager(securestore.NewMemoryStore(), keys.NewMemoryIndex())
	s.Require().NoError(s.manager.EnsureKeypair(s.ctx, "alice"))
	pub, err := s.manager.PublicKey(s.ctx, "alice")
	s.Require().NoError(err)
	s.exported, err = pub.Export()
	s.Require().NoError(err)
}

func (s *DirectorySuite) server(handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	s.T().Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second, WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func (s *DirectorySuite) TestLookupFound() {
	client := s.server(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/v1/keys/alice", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Entry{Identity: "alice", PublicKey: s.exported})
	})

	pub, err := client.LookupPublicKey(s.ctx, "alice")

	s.Require().NoError(err)
	want, _ := s.manager.PublicKey(s.ctx, "alice")
	s.True(pub.Equal(want))
}

func (s *DirectorySuite) TestLookupNotFound() {
	client := s.server(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.LookupPublicKey(s.ctx, "mallory")

	s.ErrorIs(err, keys.ErrKeyNotFound)
}

func (s *DirectorySuite) TestLookupServerError() {
	client := s.server(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.LookupPublicKey(s.ctx, "alice")

	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *DirectorySuite) TestLookupRejectsIdentityMismatch() {
	client := s.server(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Entry{Identity: "mallory", PublicKey: s.exported})
	})

	_, err := client.LookupPublicKey(s.ctx, "alice")

	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *DirectorySuite) TestLookupRejectsGarbageKey() {
	client := s.server(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Entry{Identity: "alice", PublicKey: "not-a-key"})
	})

	_, err := client.LookupPublicKey(s.ctx, "alice")

	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *DirectorySuite) TestLocalStub() {
	stub := NewLocalStub(s.manager, slog.New(slog.NewTextHandler(io.Discard, nil)))

	pub, err := stub.LookupPublicKey(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(pub.IsZero())

	_, err = stub.LookupPublicKey(s.ctx, "bob")
	s.ErrorIs(err, keys.ErrKeyNotFound)
}
