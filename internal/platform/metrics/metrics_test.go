package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementSigned()
	m.IncrementDecision("url", false)
	m.IncrementDecision("url", false)
	m.IncrementDecision("signed_payment", true)
	m.IncrementSlotTimeout("reputation")
	m.ObserveVerdict("signature", 3*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentRequestsSigned))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("url", "deny")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("signed_payment", "admit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SlotTimeouts.WithLabelValues("reputation")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementSigned()
		m.IncrementSigningFailure("x")
		m.IncrementKeypairGenerated("initial")
		m.IncrementVerification("verified")
		m.IncrementClassified("url")
		m.IncrementDecision("url", true)
		m.ObserveVerdict("heuristic", time.Second)
		m.IncrementVerdictDropped("heuristic", "closed")
		m.IncrementSlotTimeout("heuristic")
	})
}
