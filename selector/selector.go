// Package selector recomputes a function selector from a decoded call's
// method name and parameter types, comparing it against the raw calldata
// prefix (spec §4.4). A mismatch is surfaced as a warning, never as a
// pipeline failure; a deeply-nested tuple type is reported as "not
// attempted" rather than silently compared (spec §9 Open Question).
package selector

import (
	"strings"

	"github.com/safelens/safelens/calldecode"
	"github.com/safelens/safelens/primitives"
)

// Outcome is the result of verifying one CallStep's selector.
type Outcome string

const (
	// OutcomeVerified means the recomputed selector matches rawData's
	// prefix.
	OutcomeVerified Outcome = "verified"
	// OutcomeMismatch means the recomputed selector disagrees with
	// rawData's prefix.
	OutcomeMismatch Outcome = "mismatch"
	// OutcomeNoData means rawData is empty (e.g. a plain transfer) or is
	// not decodable hex.
	OutcomeNoData Outcome = "no-data"
	// OutcomeNotAttempted means the call has no decoded method, or its
	// parameter types include a nested tuple deeper than the shallow
	// parser understands (spec §9).
	OutcomeNotAttempted Outcome = "not-attempted"
)

// Result is the selector-verification outcome for one CallStep.
type Result struct {
	Index          int
	Outcome        Outcome
	DeclaredMethod string
	Signature      string
	Computed       string // hex, 4 bytes
	RawPrefix      string // hex, up to 4 bytes
}

// maxTupleDepth is the deepest nested-parenthesis depth the shallow
// signature parser understands before refusing to compare (spec §9).
const maxTupleDepth = 1

// Verify recomputes keccak256(signature)[:4] for step and compares it to
// the first 4 bytes of step.RawData (spec §4.4).
func Verify(step calldecode.CallStep) Result {
	res := Result{Index: step.Index, DeclaredMethod: step.Method}

	raw, err := step.RawBytes()
	if err != nil || len(raw) == 0 {
		res.Outcome = OutcomeNoData
		return res
	}
	prefixLen := len(raw)
	if prefixLen > 4 {
		prefixLen = 4
	}
	res.RawPrefix = primitives.EncodeHex(raw[:prefixLen])

	if !step.HasMethod {
		res.Outcome = OutcomeNotAttempted
		return res
	}

	if maxParamDepth(step) > maxTupleDepth {
		res.Outcome = OutcomeNotAttempted
		return res
	}

	sig := step.SelectorSignature()
	res.Signature = sig
	computed := primitives.Keccak256([]byte(sig))[:4]
	res.Computed = primitives.EncodeHex(computed)

	if len(raw) < 4 {
		res.Outcome = OutcomeMismatch
		return res
	}
	if primitives.EncodeHex(raw[:4]) == res.Computed {
		res.Outcome = OutcomeVerified
	} else {
		res.Outcome = OutcomeMismatch
	}
	return res
}

// maxParamDepth returns the deepest parenthesis nesting across a call
// step's declared parameter types, e.g. "(address,uint256)" is depth 1,
// "((address,uint256)[])" is depth 2.
func maxParamDepth(step calldecode.CallStep) int {
	max := 0
	for _, p := range step.Params {
		if d := depth(p.Type); d > max {
			max = d
		}
	}
	return max
}

func depth(typeStr string) int {
	cur, max := 0, 0
	for _, r := range typeStr {
		switch r {
		case '(':
			cur++
			if cur > max {
				max = cur
			}
		case ')':
			cur--
		}
	}
	return max
}

// IsDelegateCallToUnknown reports whether step's target is absent from
// registeredTargets (case-insensitive). It does not look at
// step.Operation; the driver checks for DelegateCall itself before
// flagging an unknown target as a warning, regardless of selector result
// (spec §4.4).
func IsDelegateCallToUnknown(step calldecode.CallStep, registeredTargets []string) bool {
	for _, t := range registeredTargets {
		if strings.EqualFold(strings.TrimPrefix(t, "0x"), strings.TrimPrefix(step.To, "0x")) {
			return false
		}
	}
	return true
}
