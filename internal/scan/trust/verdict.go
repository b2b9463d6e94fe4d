package trust

import (
	"slices"

	"seqrpay/internal/scan/classifier"
)

// Slot names one write-once verdict source.
type Slot string

const (
	SlotSignature  Slot = "signature"
	SlotReputation Slot = "reputation"
	SlotHeuristic  Slot = "heuristic"
)

// Status of a slot. Pending is never reported; it is the unset state.
type Status string

const (
	StatusPending Status = "pending"
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
)

// ReasonTimeout is the fail reason for a source that missed its deadline.
const ReasonTimeout = "timeout"

// Verdict is a resolved slot value. Detail carries the source's explanation
// for a pass and the failure reason for a fail.
type Verdict struct {
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func Pass(detail string) Verdict {
	return Verdict{Status: StatusPass, Detail: detail}
}

func Fail(reason string) Verdict {
	return Verdict{Status: StatusFail, Detail: reason}
}

func (v Verdict) Passed() bool {
	return v.Status == StatusPass
}

// SlotsFor returns the required slots for a payload kind.
func SlotsFor(kind classifier.Kind) []Slot {
	switch kind {
	case classifier.KindSignedPayment:
		return []Slot{SlotSignature}
	case classifier.KindURL:
		return []Slot{SlotReputation, SlotHeuristic}
	default:
		return nil
	}
}

// Decision is the final admit/deny for one scanned item.
type Decision struct {
	Kind  classifier.Kind `json:"kind"`
	Admit bool            `json:"admit"`
	// Reasons explains a denial, one entry per failing slot.
	Reasons []string `json:"reasons,omitempty"`
	// Advisories note slots whose pass was outvoted by another slot's fail.
	Advisories []string         `json:"advisories,omitempty"`
	Verdicts   map[Slot]Verdict `json:"verdicts"`
}

func (d Decision) clone() Decision {
	out := d
	out.Reasons = slices.Clone(d.Reasons)
	out.Advisories = slices.Clone(d.Advisories)
	out.Verdicts = make(map[Slot]Verdict, len(d.Verdicts))
	for k, v := range d.Verdicts {
		out.Verdicts[k] = v
	}
	return out
}
