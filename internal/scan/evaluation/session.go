package evaluation

import (
	"context"

	"github.com/google/uuid"

	"seqrpay/internal/scan/classifier"
	"seqrpay/internal/scan/trust"
)

// Session is one scanned item being evaluated. Each session owns its own
// aggregator and shares no state with other sessions.
type Session struct {
	id       uuid.UUID
	payload  classifier.ScannedPayload
	agg      *trust.Aggregator
	cancel   context.CancelFunc
	finished chan struct{}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) Payload() classifier.ScannedPayload {
	return s.payload
}

// Decided is closed once a decision is available.
func (s *Session) Decided() <-chan struct{} {
	return s.agg.Decided()
}

// Decision returns trust.ErrNotReady while verdicts are still pending.
func (s *Session) Decision() (trust.Decision, error) {
	return s.agg.Decision()
}

func (s *Session) Wait(ctx context.Context) (trust.Decision, error) {
	return s.agg.Wait(ctx)
}

func (s *Session) Verdict(slot trust.Slot) trust.Verdict {
	return s.agg.Verdict(slot)
}

// Cancel tears the session down. In-flight sources are cancelled and any
// verdict arriving afterwards is discarded.
func (s *Session) Cancel() {
	s.agg.Close()
	s.cancel()
}

// Finished is closed after every source has returned.
func (s *Session) Finished() <-chan struct{} {
	return s.finished
}
