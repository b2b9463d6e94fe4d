// Package trust collects independent verdicts for one scanned item and
// decides admit or deny exactly once.
//
// Each slot is a write-once atomic pointer, so sources never block each
// other and no lock is held across the collection window. The last writer
// to resolve a slot computes the decision.
package trust

import (
	"context"
	"sync/atomic"

	"seqrpay/internal/scan/classifier"
	dErrors "seqrpay/pkg/domain-errors"
)

var (
	ErrDoubleReport = dErrors.New(dErrors.CodeDoubleReport, "verdict slot already resolved")
	ErrNotReady     = dErrors.New(dErrors.CodeNotReady, "decision not ready")
	ErrUnknownSlot  = dErrors.New(dErrors.CodeUnknownSlot, "slot not required for this payload kind")
	ErrBadVerdict   = dErrors.New(dErrors.CodeBadVerdict, "verdict must be pass or fail")
)

// Aggregator is the verdict state machine for one item: Collecting until
// every required slot resolves, then Decided for good.
type Aggregator struct {
	kind  classifier.Kind
	order []Slot
	// slots is built once in New and only read afterwards.
	slots    map[Slot]*atomic.Pointer[Verdict]
	pending  atomic.Int32
	closed   atomic.Bool
	decision atomic.Pointer[Decision]
	done     chan struct{}
}

// New starts collection for kind. Kinds without slots are decided (deny)
// immediately.
func New(kind classifier.Kind) *Aggregator {
	order := SlotsFor(kind)
	a := &Aggregator{
		kind:  kind,
		order: order,
		slots: make(map[Slot]*atomic.Pointer[Verdict], len(order)),
		done:  make(chan struct{}),
	}
	for _, slot := range order {
		a.slots[slot] = new(atomic.Pointer[Verdict])
	}
	a.pending.Store(int32(len(order)))
	if len(order) == 0 {
		a.decide()
	}
	return a
}

func (a *Aggregator) Kind() classifier.Kind {
	return a.kind
}

// Slots lists the required slots in decision order.
func (a *Aggregator) Slots() []Slot {
	return append([]Slot(nil), a.order...)
}

// Report resolves slot. A second report for the same slot fails with
// ErrDoubleReport and leaves the stored verdict untouched. After Close every
// report is a silent no-op.
func (a *Aggregator) Report(slot Slot, v Verdict) error {
	if a.closed.Load() {
		return nil
	}
	p, ok := a.slots[slot]
	if !ok {
		return dErrors.Wrap(ErrUnknownSlot, dErrors.CodeUnknownSlot, "slot "+string(slot)+" not required for "+string(a.kind))
	}
	if v.Status != StatusPass && v.Status != StatusFail {
		return ErrBadVerdict
	}
	if !p.CompareAndSwap(nil, &v) {
		return dErrors.Wrap(ErrDoubleReport, dErrors.CodeDoubleReport, "slot "+string(slot)+" already resolved")
	}
	if a.pending.Add(-1) == 0 {
		a.decide()
	}
	return nil
}

// decide runs exactly once: either from New for slotless kinds or from the
// single Report that brought pending to zero.
func (a *Aggregator) decide() {
	verdicts := make(map[Slot]Verdict, len(a.order))
	for _, slot := range a.order {
		verdicts[slot] = *a.slots[slot].Load()
	}
	d := decide(a.kind, a.order, verdicts)
	a.decision.Store(&d)
	close(a.done)
}

// Decision returns the decision, or ErrNotReady while collecting. Once
// decided it returns the same value for the life of the aggregator.
func (a *Aggregator) Decision() (Decision, error) {
	d := a.decision.Load()
	if d == nil {
		return Decision{}, ErrNotReady
	}
	return d.clone(), nil
}

// Decided is closed when the decision is available.
func (a *Aggregator) Decided() <-chan struct{} {
	return a.done
}

// Wait blocks until decided or ctx ends.
func (a *Aggregator) Wait(ctx context.Context) (Decision, error) {
	select {
	case <-a.done:
		return a.Decision()
	case <-ctx.Done():
		return Decision{}, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "decision wait ended")
	}
}

// Verdict returns the current value of slot; Pending when unresolved.
func (a *Aggregator) Verdict(slot Slot) Verdict {
	p, ok := a.slots[slot]
	if !ok {
		return Verdict{Status: StatusPending}
	}
	if v := p.Load(); v != nil {
		return *v
	}
	return Verdict{Status: StatusPending}
}

// Close marks the item torn down. Later reports are dropped silently.
func (a *Aggregator) Close() {
	a.closed.Store(true)
}

func (a *Aggregator) Closed() bool {
	return a.closed.Load()
}
