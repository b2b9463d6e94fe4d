package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the agent. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Signing side
	PaymentRequestsSigned prometheus.Counter
	SigningFailures       *prometheus.CounterVec
	KeypairsGenerated     *prometheus.CounterVec // reason: initial, private_missing

	// Verification side
	VerificationOutcomes *prometheus.CounterVec // outcome: verified or the invalid reason
	PayloadsClassified   *prometheus.CounterVec // kind
	Decisions            *prometheus.CounterVec // kind, outcome
	VerdictLatency       *prometheus.HistogramVec
	VerdictsDropped      *prometheus.CounterVec // slot, cause
	SlotTimeouts         *prometheus.CounterVec // slot
}

// New registers every collector with reg. Tests pass a fresh
// prometheus.NewRegistry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PaymentRequestsSigned: f.NewCounter(prometheus.CounterOpts{
			Name: "seqrpay_payment_requests_signed_total",
			Help: "Total number of signed payment requests produced",
		}),
		SigningFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqrpay_signing_failures_total",
			Help: "Payment request signing failures by error code",
		}, []string{"code"}),
		KeypairsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqrpay_keypairs_generated_total",
			Help: "Keypairs generated by reason",
		}, []string{"reason"}),
		VerificationOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqrpay_signature_verifications_total",
			Help: "Signature verification outcomes",
		}, []string{"outcome"}),
		PayloadsClassified: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqrpay_payloads_classified_total",
			Help: "Scanned payloads by kind",
		}, []string{"kind"}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqrpay_trust_decisions_total",
			Help: "Trust decisions by payload kind and outcome",
		}, []string{"kind", "outcome"}),
		VerdictLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seqrpay_verdict_duration_seconds",
			Help:    "Time for a verdict source to resolve its slot",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"slot"}),
		VerdictsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqrpay_verdicts_dropped_total",
			Help: "Verdicts discarded because the item was closed or the slot already resolved",
		}, []string{"slot", "cause"}),
		SlotTimeouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqrpay_verdict_timeouts_total",
			Help: "Verdict slots resolved to fail because the source timed out",
		}, []string{"slot"}),
	}
}

func (m *Metrics) IncrementSigned() {
	if m == nil {
		return
	}
	m.PaymentRequestsSigned.Inc()
}

func (m *Metrics) IncrementSigningFailure(code string) {
	if m == nil {
		return
	}
	m.SigningFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) IncrementKeypairGenerated(reason string) {
	if m == nil {
		return
	}
	m.KeypairsGenerated.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementVerification(outcome string) {
	if m == nil {
		return
	}
	m.VerificationOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementClassified(kind string) {
	if m == nil {
		return
	}
	m.PayloadsClassified.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementDecision(kind string, admit bool) {
	if m == nil {
		return
	}
	outcome := "deny"
	if admit {
		outcome = "admit"
	}
	m.Decisions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveVerdict(slot string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.VerdictLatency.WithLabelValues(slot).Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementVerdictDropped(slot, cause string) {
	if m == nil {
		return
	}
	m.VerdictsDropped.WithLabelValues(slot, cause).Inc()
}

func (m *Metrics) IncrementSlotTimeout(slot string) {
	if m == nil {
		return
	}
	m.SlotTimeouts.WithLabelValues(slot).Inc()
}
