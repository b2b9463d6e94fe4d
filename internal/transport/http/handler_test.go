package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"seqrpay/internal/keys"
	"seqrpay/internal/keys/directory"
	"seqrpay/internal/keys/securestore"
	"seqrpay/internal/payment/envelope"
	"seqrpay/internal/payment/signer"
	"seqrpay/internal/payment/verifier"
	"seqrpay/internal/platform/health"
	"seqrpay/internal/scan/evaluation"
	"seqrpay/internal/scan/ports"
	"seqrpay/internal/scan/ports/mocks"
	"seqrpay/internal/scan/trust"
	dErrors "seqrpay/pkg/domain-errors"
	"seqrpay/pkg/platform/httputil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	reputation *mocks.MockReputationScanner
	heuristic  *mocks.MockRiskAssessor
	manager    *keys.Manager
	router     http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctrl = gomock.NewController(s.T())
	s.reputation = mocks.NewMockReputationScanner(s.ctrl)
	s.heuristic = mocks.NewMockRiskAssessor(s.ctrl)
	s.manager = keys.NewManager(securestore.NewMemoryStore(), keys.NewMemoryIndex())

	eval := evaluation.New(verifier.New(), directory.NewLocalStub(s.manager, logger),
		evaluation.WithReputation(s.reputation),
		evaluation.WithHeuristic(s.heuristic),
		evaluation.WithLogger(logger),
	)
	h := New(signer.New(s.manager), eval, s.manager, logger)
	s.router = NewRouter(RouterConfig{Handler: h, Health: health.New("test"), Logger: logger})
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func (s *HandlerSuite) createPaymentRequest() PaymentRequestResponse {
	w := s.do(http.MethodPost, "/v1/payment-requests", `{"payeeUsername":"bob","amount":"12.50","currency":"kzt"}`)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp PaymentRequestResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *HandlerSuite) scan(content string) ScanResponse {
	body, err := json.Marshal(ScanRequest{Content: content})
	s.Require().NoError(err)
	w := s.do(http.MethodPost, "/v1/scans", string(body))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp ScanResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *HandlerSuite) TestCreatePaymentRequest() {
	resp := s.createPaymentRequest()

	var doc map[string]any
	s.Require().NoError(json.Unmarshal([]byte(resp.Payload), &doc))
	s.Equal("paymentRequest", doc["type"])
	s.Equal("SHA256withECDSA", doc["signatureAlgorithm"])
	s.Equal("KZT", doc["dataToSign"].(map[string]any)["currency"])
	s.JSONEq(resp.Payload, string(resp.Envelope))
}

func (s *HandlerSuite) TestCreatePaymentRequestValidation() {
	w := s.do(http.MethodPost, "/v1/payment-requests", `{"payeeUsername":"bob","amount":"-1","currency":"USD"}`)

	s.Equal(http.StatusBadRequest, w.Code)
	var resp httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("validation_error", resp.Error)
}

func (s *HandlerSuite) TestScanSignedPaymentRoundTrip() {
	created := s.createPaymentRequest()

	resp := s.scan(created.Payload)

	s.Equal("signed_payment", string(resp.Kind))
	s.True(resp.Decision.Admit)
	s.Require().NotNil(resp.Display)
	s.Equal("bob", resp.Display.Payee)
	s.Equal("12.50", resp.Display.Amount)
	s.Equal(trust.StatusPass, resp.Verdicts[trust.SlotSignature].Status)
}

func (s *HandlerSuite) TestScanTamperedPaymentDenied() {
	created := s.createPaymentRequest()
	tampered := strings.Replace(created.Payload, `"12.50"`, `"1250.00"`, -1)

	resp := s.scan(tampered)

	s.False(resp.Decision.Admit)
	s.Equal(trust.Fail(string(verifier.ReasonSignatureMismatch)), resp.Verdicts[trust.SlotSignature])
}

func (s *HandlerSuite) TestScanURL() {
	s.reputation.EXPECT().Scan(gomock.Any(), "https://pay.example/p/1").Return(ports.Finding{Pass: true, Detail: "clean"}, nil)
	s.heuristic.EXPECT().Assess(gomock.Any(), "https://pay.example/p/1").Return(ports.Finding{Pass: true, Detail: "fine"}, nil)

	resp := s.scan("pay.example/p/1")

	s.Equal("url", string(resp.Kind))
	s.Equal("https://pay.example/p/1", resp.URL)
	s.True(resp.Decision.Admit)
	s.Nil(resp.Display)
}

func (s *HandlerSuite) TestScanUnclassified() {
	resp := s.scan("just some words")

	s.Equal("unclassified", string(resp.Kind))
	s.False(resp.Decision.Admit)
}

func (s *HandlerSuite) TestScanRequiresContent() {
	w := s.do(http.MethodPost, "/v1/scans", `{"content":"   "}`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestGetKey() {
	s.createPaymentRequest()

	w := s.do(http.MethodGet, "/v1/keys/bob", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var entry directory.Entry
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &entry))
	s.Equal("bob", entry.Identity)
	_, err := keys.ParsePublicKey(entry.PublicKey)
	s.NoError(err)

	w = s.do(http.MethodGet, "/v1/keys/nobody", "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerSuite) TestKeyEndpointServesDirectoryClient() {
	s.createPaymentRequest()
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	pub, err := directory.NewClient(srv.URL, time.Second).LookupPublicKey(context.Background(), "bob")
	s.Require().NoError(err)
	want, err := s.manager.PublicKey(context.Background(), "bob")
	s.Require().NoError(err)
	s.True(pub.Equal(want))
}

func (s *HandlerSuite) TestHealth() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health/live", "").Code)
}

type evaluatorFunc func(ctx context.Context, raw string) (*evaluation.Result, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, raw string) (*evaluation.Result, error) {
	return f(ctx, raw)
}

func TestScanTimeoutMapsToGatewayTimeout(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := keys.NewManager(securestore.NewMemoryStore(), keys.NewMemoryIndex())
	slow := evaluatorFunc(func(ctx context.Context, _ string) (*evaluation.Result, error) {
		<-ctx.Done()
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "decision wait ended")
	})
	h := New(signer.New(manager), slow, manager, logger, WithEvaluationTimeout(20*time.Millisecond))
	router := NewRouter(RouterConfig{Handler: h, Logger: logger})

	r := httptest.NewRequest(http.MethodPost, "/v1/scans", strings.NewReader(`{"content":"x.example"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusGatewayTimeout)
	}
}

type signerFunc func(ctx context.Context, req signer.Request) (*envelope.SignedEnvelope, error)

func (f signerFunc) BuildAndSign(ctx context.Context, req signer.Request) (*envelope.SignedEnvelope, error) {
	return f(ctx, req)
}

func TestInvalidPaymentRequestNeverReachesSigner(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := keys.NewManager(securestore.NewMemoryStore(), keys.NewMemoryIndex())
	calls := 0
	counting := signerFunc(func(context.Context, signer.Request) (*envelope.SignedEnvelope, error) {
		calls++
		return nil, dErrors.New(dErrors.CodeInternal, "unexpected call")
	})
	eval := evaluatorFunc(func(context.Context, string) (*evaluation.Result, error) {
		return nil, dErrors.New(dErrors.CodeInternal, "unexpected call")
	})
	router := NewRouter(RouterConfig{Handler: New(counting, eval, manager, logger), Logger: logger})

	r := httptest.NewRequest(http.MethodPost, "/v1/payment-requests",
		strings.NewReader(`{"payeeUsername":"  ","amount":"12.50","currency":"usd"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var resp httputil.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error != "validation_error" {
		t.Fatalf("error = %q, want validation_error", resp.Error)
	}
	if calls != 0 {
		t.Fatalf("signer called %d times, want 0", calls)
	}
}
