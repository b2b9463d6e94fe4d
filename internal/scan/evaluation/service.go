// Package evaluation runs every verdict source for one scanned payload and
// feeds the results into a trust aggregator.
package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"seqrpay/internal/keys"
	"seqrpay/internal/payment/envelope"
	"seqrpay/internal/payment/verifier"
	"seqrpay/internal/platform/metrics"
	"seqrpay/internal/platform/tracer"
	"seqrpay/internal/scan/classifier"
	"seqrpay/internal/scan/ports"
	"seqrpay/internal/scan/trust"
)

const (
	defaultReputationTimeout = 30 * time.Second
	defaultHeuristicTimeout  = 20 * time.Second

	detailHeuristicUnavailable = "heuristic assessment unavailable"
	detailReputationMissing    = "reputation scanner not configured"
)

// SignatureVerifier checks a decoded envelope against a key directory.
type SignatureVerifier interface {
	Verify(ctx context.Context, env *envelope.SignedEnvelope, directory keys.Directory) verifier.Outcome
}

// Timeouts bound each external verdict source. Zero keeps the default.
type Timeouts struct {
	Reputation time.Duration
	Heuristic  time.Duration
}

// Service classifies scanned content and collects its verdicts.
type Service struct {
	verifier   SignatureVerifier
	directory  keys.Directory
	reputation ports.ReputationScanner
	heuristic  ports.RiskAssessor
	timeouts   Timeouts
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	logger     *slog.Logger
}

type Option func(*Service)

func WithReputation(r ports.ReputationScanner) Option {
	return func(s *Service) {
		s.reputation = r
	}
}

// WithHeuristic sets the risk assessor. Without one the heuristic slot
// passes with a notice.
func WithHeuristic(h ports.RiskAssessor) Option {
	return func(s *Service) {
		s.heuristic = h
	}
}

func WithTimeouts(t Timeouts) Option {
	return func(s *Service) {
		if t.Reputation > 0 {
			s.timeouts.Reputation = t.Reputation
		}
		if t.Heuristic > 0 {
			s.timeouts.Heuristic = t.Heuristic
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New panics if the verifier or directory is nil.
func New(v SignatureVerifier, directory keys.Directory, opts ...Option) *Service {
	if v == nil {
		panic("evaluation.New: signature verifier is required")
	}
	if directory == nil {
		panic("evaluation.New: key directory is required")
	}
	s := &Service{
		verifier:  v,
		directory: directory,
		timeouts: Timeouts{
			Reputation: defaultReputationTimeout,
			Heuristic:  defaultHeuristicTimeout,
		},
		tracer: tracer.NewNoop(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Result is the outcome of a completed evaluation.
type Result struct {
	SessionID uuid.UUID
	Payload   classifier.ScannedPayload
	Decision  trust.Decision
}

// Evaluate classifies raw and blocks until a decision exists or ctx ends.
// When ctx ends first the session is cancelled and the error carries
// CodeTimeout.
func (s *Service) Evaluate(ctx context.Context, raw string) (*Result, error) {
	session := s.Start(ctx, raw)
	decision, err := session.Wait(ctx)
	if err != nil {
		session.Cancel()
		return nil, err
	}
	return &Result{SessionID: session.ID(), Payload: session.Payload(), Decision: decision}, nil
}

// Start classifies raw and begins collecting verdicts. The signature slot is
// checked before Start returns; URL sources run in the background until
// they report, time out, or the session is cancelled.
func (s *Service) Start(ctx context.Context, raw string) *Session {
	payload := classifier.Classify(raw)
	s.metrics.IncrementClassified(string(payload.Kind))

	ctx, cancel := context.WithCancel(ctx)
	session := &Session{
		id:       uuid.New(),
		payload:  payload,
		agg:      trust.New(payload.Kind),
		cancel:   cancel,
		finished: make(chan struct{}),
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanScanEvaluate,
		tracer.String(tracer.AttrPayloadKind, string(payload.Kind)))
	logger := s.logger.With("session_id", session.id.String(), "kind", string(payload.Kind))

	switch payload.Kind {
	case classifier.KindSignedPayment:
		s.checkSignature(ctx, session, logger)
	case classifier.KindURL:
		g := new(errgroup.Group)
		g.Go(func() error {
			s.collect(ctx, session, trust.SlotReputation, s.timeouts.Reputation, s.scanReputation, logger)
			return nil
		})
		g.Go(func() error {
			s.collect(ctx, session, trust.SlotHeuristic, s.timeouts.Heuristic, s.assessHeuristic, logger)
			return nil
		})
		go func() {
			_ = g.Wait()
			s.finish(ctx, session, span, logger)
		}()
		return session
	}

	s.finish(ctx, session, span, logger)
	return session
}

func (s *Service) finish(ctx context.Context, session *Session, span tracer.Span, logger *slog.Logger) {
	defer close(session.finished)
	defer session.cancel()

	decision, err := session.agg.Decision()
	if err != nil {
		// Only reachable when the session was cancelled before every slot
		// resolved.
		span.SetAttributes(tracer.String(tracer.AttrReason, "cancelled"))
		span.End(nil)
		return
	}
	s.metrics.IncrementDecision(string(decision.Kind), decision.Admit)
	span.SetAttributes(tracer.Bool(tracer.AttrAdmit, decision.Admit))
	span.End(nil)
	logger.InfoContext(ctx, "scan decided", "admit", decision.Admit, "reasons", decision.Reasons)
}

func (s *Service) checkSignature(ctx context.Context, session *Session, logger *slog.Logger) {
	start := time.Now()
	outcome := s.verifier.Verify(ctx, session.payload.Envelope, s.directory)
	verdict := trust.Pass("signature verified")
	if !outcome.Verified {
		verdict = trust.Fail(string(outcome.Reason))
	}
	s.metrics.ObserveVerdict(string(trust.SlotSignature), time.Since(start))
	s.report(ctx, session, trust.SlotSignature, verdict, logger)
}

type source func(ctx context.Context, url string, logger *slog.Logger) trust.Verdict

// collect runs one external source under its own deadline. A deadline miss
// resolves the slot to fail("timeout"); a cancelled session drops the result.
func (s *Service) collect(ctx context.Context, session *Session, slot trust.Slot, timeout time.Duration, run source, logger *slog.Logger) {
	slotCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	// Buffered so a source that ignores its context can still deliver late
	// and exit once the slot has moved on.
	done := make(chan trust.Verdict, 1)
	go func() {
		done <- run(slotCtx, session.payload.URL, logger)
	}()

	var verdict trust.Verdict
	select {
	case verdict = <-done:
	case <-slotCtx.Done():
		verdict = trust.Fail(trust.ReasonTimeout)
	}

	if ctx.Err() != nil {
		s.drop(ctx, slot, "cancelled", logger)
		return
	}
	if errors.Is(slotCtx.Err(), context.DeadlineExceeded) && !verdict.Passed() {
		verdict = trust.Fail(trust.ReasonTimeout)
		s.metrics.IncrementSlotTimeout(string(slot))
		logger.WarnContext(ctx, "verdict source timed out", "slot", string(slot), "timeout", timeout)
	}
	s.metrics.ObserveVerdict(string(slot), time.Since(start))
	s.report(ctx, session, slot, verdict, logger)
}

func (s *Service) scanReputation(ctx context.Context, url string, logger *slog.Logger) trust.Verdict {
	if s.reputation == nil {
		return trust.Fail(detailReputationMissing)
	}
	finding, err := s.reputation.Scan(ctx, url)
	if err != nil {
		logger.WarnContext(ctx, "reputation scan failed", "category", string(ports.Category(err)), "error", err)
		return trust.Fail(errorDetail(err))
	}
	return fromFinding(finding)
}

func (s *Service) assessHeuristic(ctx context.Context, url string, logger *slog.Logger) trust.Verdict {
	if s.heuristic == nil {
		logger.InfoContext(ctx, "heuristic assessor not configured, passing slot")
		return trust.Pass(detailHeuristicUnavailable)
	}
	finding, err := s.heuristic.Assess(ctx, url)
	if err != nil {
		if ports.IsNotConfigured(err) {
			logger.InfoContext(ctx, "heuristic assessor not configured, passing slot", "error", err)
			return trust.Pass(detailHeuristicUnavailable)
		}
		logger.WarnContext(ctx, "heuristic assessment failed", "category", string(ports.Category(err)), "error", err)
		return trust.Fail(errorDetail(err))
	}
	return fromFinding(finding)
}

func (s *Service) report(ctx context.Context, session *Session, slot trust.Slot, v trust.Verdict, logger *slog.Logger) {
	if session.agg.Closed() {
		s.drop(ctx, slot, "closed", logger)
		return
	}
	if err := session.agg.Report(slot, v); err != nil {
		if errors.Is(err, trust.ErrDoubleReport) {
			s.metrics.IncrementVerdictDropped(string(slot), "double_report")
		}
		logger.ErrorContext(ctx, "verdict rejected by aggregator", "slot", string(slot), "error", err)
		return
	}
	logger.DebugContext(ctx, "verdict reported", "slot", string(slot), "status", string(v.Status))
}

func (s *Service) drop(ctx context.Context, slot trust.Slot, cause string, logger *slog.Logger) {
	s.metrics.IncrementVerdictDropped(string(slot), cause)
	logger.DebugContext(ctx, "verdict dropped", "slot", string(slot), "cause", cause)
}

func fromFinding(f ports.Finding) trust.Verdict {
	if f.Pass {
		return trust.Pass(f.Detail)
	}
	detail := f.Detail
	if detail == "" {
		detail = "flagged"
	}
	return trust.Fail(detail)
}

func errorDetail(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || ports.Category(err) == ports.ErrorTimeout {
		return trust.ReasonTimeout
	}
	return "unavailable: " + string(ports.Category(err))
}
