package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"seqrpay/internal/keys"
	"seqrpay/internal/keys/directory"
	"seqrpay/internal/payment/envelope"
	"seqrpay/internal/payment/signer"
	"seqrpay/internal/platform/middleware"
	"seqrpay/internal/scan/classifier"
	"seqrpay/internal/scan/evaluation"
	"seqrpay/internal/scan/trust"
	dErrors "seqrpay/pkg/domain-errors"
	"seqrpay/pkg/platform/httputil"
)

const defaultEvaluationTimeout = 45 * time.Second

// PaymentSigner turns a payee request into a signed envelope.
type PaymentSigner interface {
	BuildAndSign(ctx context.Context, req signer.Request) (*envelope.SignedEnvelope, error)
}

// ScanEvaluator classifies scanned content and decides on it.
type ScanEvaluator interface {
	Evaluate(ctx context.Context, raw string) (*evaluation.Result, error)
}

// KeyPublisher exports this device's public keys.
type KeyPublisher interface {
	PublicKey(ctx context.Context, identity string) (keys.PublicKey, error)
}

// Handler is the thin HTTP layer over the payment and scan services.
type Handler struct {
	signer            PaymentSigner
	evaluator         ScanEvaluator
	keys              KeyPublisher
	evaluationTimeout time.Duration
	logger            *slog.Logger
}

type Option func(*Handler)

// WithEvaluationTimeout bounds one scan request. Defaults to 45s.
func WithEvaluationTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.evaluationTimeout = d
		}
	}
}

func New(s PaymentSigner, e ScanEvaluator, k KeyPublisher, logger *slog.Logger, opts ...Option) *Handler {
	if s == nil || e == nil || k == nil {
		panic("httptransport.New: signer, evaluator and key publisher are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		signer:            s,
		evaluator:         e,
		keys:              k,
		evaluationTimeout: defaultEvaluationTimeout,
		logger:            logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/payment-requests", h.handleCreatePaymentRequest)
	r.Post("/v1/scans", h.handleScan)
	r.Get("/v1/keys/{identity}", h.handleGetKey)
}

// PaymentRequestResponse carries the QR text and the same document parsed.
type PaymentRequestResponse struct {
	Payload  string          `json:"payload"`
	Envelope json.RawMessage `json:"envelope"`
}

func (h *Handler) handleCreatePaymentRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[signer.Request](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	env, err := h.signer.BuildAndSign(ctx, *req)
	if err != nil {
		h.logFailure(ctx, "failed to sign payment request", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	payload, err := env.Marshal()
	if err != nil {
		h.logFailure(ctx, "failed to encode envelope", requestID, err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "encode envelope"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, PaymentRequestResponse{
		Payload:  string(payload),
		Envelope: payload,
	})
}

type ScanRequest struct {
	Content string `json:"content"`
}

type ScanResponse struct {
	SessionID uuid.UUID                    `json:"sessionId"`
	Kind      classifier.Kind              `json:"kind"`
	URL       string                       `json:"url,omitempty"`
	Display   *envelope.Display            `json:"display,omitempty"`
	Decision  trust.Decision               `json:"decision"`
	Verdicts  map[trust.Slot]trust.Verdict `json:"verdicts"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[ScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "content is required"))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.evaluationTimeout)
	defer cancel()

	result, err := h.evaluator.Evaluate(ctx, req.Content)
	if err != nil {
		h.logFailure(ctx, "scan evaluation did not finish", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	resp := ScanResponse{
		SessionID: result.SessionID,
		Kind:      result.Payload.Kind,
		URL:       result.Payload.URL,
		Decision:  result.Decision,
		Verdicts:  result.Decision.Verdicts,
	}
	if result.Payload.Kind == classifier.KindSignedPayment {
		display := result.Payload.Display
		resp.Display = &display
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := chi.URLParam(r, "identity")

	pub, err := h.keys.PublicKey(ctx, identity)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeKeyNotFound) {
			h.logFailure(ctx, "failed to load public key", middleware.GetRequestID(ctx), err)
		}
		httputil.WriteError(w, err)
		return
	}
	exported, err := pub.Export()
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "export public key"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, directory.Entry{Identity: identity, PublicKey: exported})
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error) {
	level := slog.LevelWarn
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg, "request_id", requestID, "error", err)
}
