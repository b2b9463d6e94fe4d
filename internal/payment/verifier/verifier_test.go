package verifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"seqrpay/internal/keys"
	"seqrpay/internal/keys/mocks"
	"seqrpay/internal/keys/securestore"
	"seqrpay/internal/payment/envelope"
	"seqrpay/internal/payment/signer"
	"seqrpay/internal/platform/metrics"
)

type VerifierSuite struct {
	suite.Suite
	ctx      context.Context
	payee    *keys.Manager
	signer   *signer.Service
	verifier *Verifier
	metrics  *metrics.Metrics
	// directory answers from the payee device's keys, standing in for a
	// trusted directory that has the payee's published export.
	directory keys.Directory
}

func TestVerifierSuite(t *testing.T) {
	suite.Run(t, new(VerifierSuite))
}

func (s *VerifierSuite) SetupTest() {
	s.ctx = context.Background()
	s.payee = keys.NewManager(securestore.NewMemoryStore(), keys.NewMemoryIndex())
	s.signer = signer.New(s.payee, signer.WithClock(func() time.Time {
		return time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	}))
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.verifier = New(WithMetrics(s.metrics), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.directory = keys.DirectoryFunc(func(ctx context.Context, identity string) (keys.PublicKey, error) {
		return s.payee.PublicKey(ctx, identity)
	})
}

func (s *VerifierSuite) sign(payee, amount string) *envelope.SignedEnvelope {
	env, err := s.signer.BuildAndSign(s.ctx, signer.Request{Payee: payee, Amount: amount, Currency: "USD"})
	s.Require().NoError(err)
	return env
}

// resend pushes an envelope through the wire format, optionally editing the
// intent block on the way, as a tampering relay would.
func (s *VerifierSuite) resend(env *envelope.SignedEnvelope, edit func(envelope.Intent)) *envelope.SignedEnvelope {
	intent := env.Intent()
	if edit != nil {
		edit(intent)
	}
	sig, err := env.SignatureBytes()
	s.Require().NoError(err)
	raw, err := envelope.New(intent, env.Algorithm(), sig).Marshal()
	s.Require().NoError(err)
	decoded, _, err := envelope.Decode(raw)
	s.Require().NoError(err)
	return decoded
}

func (s *VerifierSuite) TestValidSignature() {
	env := s.resend(s.sign("alice", "12.50"), nil)
	s.Equal(Verified(), s.verifier.Verify(s.ctx, env, s.directory))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.VerificationOutcomes.WithLabelValues("verified")))
}

func (s *VerifierSuite) TestAnyAlteredFieldInvalidates() {
	env := s.sign("alice", "12.50")
	edits := map[string]func(envelope.Intent){
		"amount":    func(i envelope.Intent) { i[envelope.FieldAmount] = "1250" },
		"currency":  func(i envelope.Intent) { i[envelope.FieldCurrency] = "EUR" },
		"timestamp": func(i envelope.Intent) { i[envelope.FieldTimestamp] = "2025-05-20T10:00:01Z" },
		"extra":     func(i envelope.Intent) { i["memo"] = "x" },
		"removed":   func(i envelope.Intent) { delete(i, envelope.FieldTimestamp) },
	}
	for name, edit := range edits {
		s.Run(name, func() {
			got := s.verifier.Verify(s.ctx, s.resend(env, edit), s.directory)
			s.Equal(Invalid(ReasonSignatureMismatch), got)
		})
	}
}

func (s *VerifierSuite) TestPayeeSwapUsesClaimedKey() {
	s.sign("mallory", "1.00")
	env := s.resend(s.sign("alice", "12.50"), func(i envelope.Intent) { i[envelope.FieldPayee] = "mallory" })
	s.Equal(Invalid(ReasonSignatureMismatch), s.verifier.Verify(s.ctx, env, s.directory))
}

func (s *VerifierSuite) TestFailsClosed() {
	env := s.sign("alice", "12.50")

	s.Run("unknown payee", func() {
		empty := keys.DirectoryFunc(func(context.Context, string) (keys.PublicKey, error) {
			return keys.PublicKey{}, keys.ErrKeyNotFound
		})
		s.Equal(Invalid(ReasonKeyNotFound), s.verifier.Verify(s.ctx, env, empty))
	})

	s.Run("directory failure", func() {
		broken := keys.DirectoryFunc(func(context.Context, string) (keys.PublicKey, error) {
			return keys.PublicKey{}, errors.New("connection refused")
		})
		s.Equal(Invalid(ReasonKeyNotFound), s.verifier.Verify(s.ctx, env, broken))
	})

	s.Run("zero key", func() {
		zero := keys.DirectoryFunc(func(context.Context, string) (keys.PublicKey, error) {
			return keys.PublicKey{}, nil
		})
		s.Equal(Invalid(ReasonKeyNotFound), s.verifier.Verify(s.ctx, env, zero))
	})

	s.Run("nil directory", func() {
		s.Equal(Invalid(ReasonKeyNotFound), s.verifier.Verify(s.ctx, env, nil))
	})
}

func (s *VerifierSuite) TestMalformedInputs() {
	decode := func(raw string) *envelope.SignedEnvelope {
		env, _, err := envelope.Decode([]byte(raw))
		s.Require().NoError(err)
		return env
	}

	s.Run("garbage signature", func() {
		env := decode(`{"type":"paymentRequest","dataToSign":{"payeeUsername":"alice"},"signatureAlgorithm":"SHA256withECDSA","signature":"***"}`)
		s.Equal(Invalid(ReasonMalformedSignature), s.verifier.Verify(s.ctx, env, s.directory))
	})

	s.Run("well-encoded but not DER", func() {
		s.sign("alice", "1.00")
		env := decode(`{"type":"paymentRequest","dataToSign":{"payeeUsername":"alice"},"signatureAlgorithm":"SHA256withECDSA","signature":"AAAA"}`)
		s.Equal(Invalid(ReasonSignatureMismatch), s.verifier.Verify(s.ctx, env, s.directory))
	})

	s.Run("algorithm mismatch", func() {
		env := decode(`{"type":"paymentRequest","dataToSign":{"payeeUsername":"alice"},"signatureAlgorithm":"SHA1withRSA","signature":"AAAA"}`)
		s.Equal(Invalid(ReasonAlgorithmMismatch), s.verifier.Verify(s.ctx, env, s.directory))
	})

	s.Run("missing payee", func() {
		env := decode(`{"type":"paymentRequest","dataToSign":{"amount":"1"},"signatureAlgorithm":"SHA256withECDSA","signature":"AAAA"}`)
		s.Equal(Invalid(ReasonMissingPayee), s.verifier.Verify(s.ctx, env, s.directory))
	})

	s.Run("nil envelope", func() {
		s.False(s.verifier.Verify(s.ctx, nil, s.directory).Verified)
	})
}

func TestVerifyConsultsDirectoryForClaimedPayee(t *testing.T) {
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockDirectory(ctrl)
	directory.EXPECT().LookupPublicKey(gomock.Any(), "alice").Return(keys.PublicKey{}, keys.ErrKeyNotFound)

	env := envelope.New(envelope.Intent{envelope.FieldPayee: "alice"}, envelope.AlgorithmSHA256WithECDSA, []byte{1})
	got := New().Verify(context.Background(), env, directory)
	if got != Invalid(ReasonKeyNotFound) {
		t.Fatalf("got %s", got)
	}
}

func TestOutcomeString(t *testing.T) {
	if Verified().String() != "verified" {
		t.Fatal("verified string")
	}
	if Invalid(ReasonKeyNotFound).String() != "invalid(key-not-found)" {
		t.Fatal("invalid string")
	}
}
