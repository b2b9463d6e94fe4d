package trust

import (
	"seqrpay/internal/scan/classifier"
)

const reasonUnclassified = "payload: unclassified content cannot be admitted"

// decide applies the conjunctive rule: admit only when the kind has slots and
// every one passed. It is pure; order is the kind's slot order.
func decide(kind classifier.Kind, order []Slot, verdicts map[Slot]Verdict) Decision {
	d := Decision{Kind: kind, Verdicts: verdicts}
	if len(order) == 0 {
		d.Reasons = []string{reasonUnclassified}
		return d
	}

	var passed []Slot
	for _, slot := range order {
		v := verdicts[slot]
		if v.Passed() {
			passed = append(passed, slot)
			continue
		}
		d.Reasons = append(d.Reasons, string(slot)+": "+failDetail(v))
	}
	d.Admit = len(d.Reasons) == 0
	if d.Admit {
		return d
	}

	// Any pass that coexists with a fail disagreed with the outcome.
	for _, slot := range passed {
		d.Advisories = append(d.Advisories, string(slot)+": passed but overruled by a failing verdict")
	}
	return d
}

func failDetail(v Verdict) string {
	if v.Detail == "" {
		return "failed"
	}
	return v.Detail
}
