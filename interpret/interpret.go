// Package interpret implements the protocol interpreter registry (spec
// §4.5): an ordered, fixed-at-compile-time list of pure functions that
// recognize specific high-risk call shapes and summarize them. Selection
// is first-match-wins — the registry never tries interpreters after one
// returns a result for a given call.
package interpret

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/safelens/safelens/calldecode"
	"github.com/safelens/safelens/evidence"
	"github.com/safelens/safelens/primitives"
)

// TokenInfo is the subset of the local settings store the interpreter
// registry draws on: token decimal counts for formatting raw wei amounts,
// and address nicknames for readable summaries. Never backed by a network
// or on-chain call (spec §4.5) — a local, user-maintained table only.
type TokenInfo interface {
	Decimals(addr string) (int, bool)
	Nickname(addr string) (string, bool)
}

// Severity tags how much attention an Interpretation deserves.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityElevated Severity = "elevated"
	SeverityCritical Severity = "critical"
)

// Interpretation is a typed summary emitted by a registered interpreter
// for a recognized call shape (spec §3).
type Interpretation struct {
	ID       string
	Protocol string
	Action   string
	Severity Severity
	Summary  string
	Details  map[string]interface{}
}

// Interpreter is a pure function: given one normalized call step, the full
// ordered list it belongs to (for cross-call patterns), and a read-only
// token-info lookup, it either recognizes the shape and returns
// (interpretation, true), or returns (zero, false).
type Interpreter func(step calldecode.CallStep, all []calldecode.CallStep, safeAddress string, info TokenInfo) (Interpretation, bool)

type registryEntry struct {
	id  string
	run Interpreter
}

// registry is the fixed, compile-time-ordered list of built-in
// interpreters (spec §4.5 "registration is static"). New interpreters are
// added by appending here.
var registry = []registryEntry{
	{id: "safe-policy", run: interpretSafePolicyChange},
	{id: "twap-order", run: interpretScheduledBatchOrder},
}

// Run evaluates the registry against step in order, skipping any id
// present in disabled, and returns the first match (spec §4.5
// "first-match-wins"). info may be nil, in which case token decimals and
// nicknames are treated as unknown everywhere.
func Run(step calldecode.CallStep, all []calldecode.CallStep, safeAddress string, disabled map[string]bool, info TokenInfo) (Interpretation, bool) {
	for _, e := range registry {
		if disabled[e.id] {
			continue
		}
		if interp, ok := e.run(step, all, safeAddress, info); ok {
			interp.ID = e.id
			return interp, true
		}
	}
	return Interpretation{}, false
}

// policySignatures maps Safe owner/threshold management method names to a
// human-readable action label. Target must equal safeAddress (the Safe
// calling itself) for the interpreter to fire.
var policySignatures = map[string]string{
	"addOwnerWithThreshold": "add owner",
	"removeOwner":           "remove owner",
	"swapOwner":             "swap owner",
	"changeThreshold":       "change threshold",
}

// interpretSafePolicyChange recognizes owner add/remove/swap and
// threshold-change calls whose target is the Safe calling itself (spec
// §4.5 "Safe policy change").
func interpretSafePolicyChange(step calldecode.CallStep, all []calldecode.CallStep, safeAddress string, info TokenInfo) (Interpretation, bool) {
	if !step.HasMethod || safeAddress == "" {
		return Interpretation{}, false
	}
	action, known := policySignatures[step.Method]
	if !known {
		return Interpretation{}, false
	}
	if !primitives.EqualAddress(step.To, safeAddress) {
		return Interpretation{}, false
	}

	details := map[string]interface{}{}
	var summary string
	switch step.Method {
	case "addOwnerWithThreshold":
		owner := paramString(step, "owner")
		threshold := paramString(step, "_threshold")
		details["owner"] = owner
		details["newThreshold"] = threshold
		summary = fmt.Sprintf("add owner %s, new threshold %s", labelAddress(info, owner), threshold)
	case "removeOwner":
		owner := paramString(step, "owner")
		threshold := paramString(step, "_threshold")
		details["owner"] = owner
		details["newThreshold"] = threshold
		summary = fmt.Sprintf("remove owner %s, new threshold %s", labelAddress(info, owner), threshold)
	case "swapOwner":
		oldOwner := paramString(step, "oldOwner")
		newOwner := paramString(step, "newOwner")
		details["oldOwner"] = oldOwner
		details["newOwner"] = newOwner
		summary = fmt.Sprintf("swap owner %s for %s", labelAddress(info, oldOwner), labelAddress(info, newOwner))
	case "changeThreshold":
		threshold := paramString(step, "_threshold")
		details["newThreshold"] = threshold
		summary = fmt.Sprintf("change threshold to %s", threshold)
	}

	return Interpretation{
		Protocol: "Safe",
		Action:   action,
		Severity: SeverityElevated,
		Summary:  summary,
		Details:  details,
	}, true
}

// twapHandlerMethod is the ComposableCow-style "create conditional order"
// call a TWAP handler is invoked with; the static order payload arrives in
// a "staticInput" bytes parameter.
const twapHandlerMethod = "createWithContext"

// twapApproveMethod is the ERC-20 approval spec §4.5 requires to precede
// the handler delegate-call for the pattern to be recognized.
const twapApproveMethod = "approve"

// interpretScheduledBatchOrder recognizes a delegate-call to a TWAP order
// handler, preceded by an ERC-20 approval, and decodes the static
// ABI-encoded order payload: sell token, buy token, part count, part
// interval seconds, min part buy amount (spec §4.5 "Scheduled batch-order
// (TWAP)").
func interpretScheduledBatchOrder(step calldecode.CallStep, all []calldecode.CallStep, safeAddress string, info TokenInfo) (Interpretation, bool) {
	if step.Operation != evidence.OpDelegateCall || !step.HasMethod || step.Method != twapHandlerMethod {
		return Interpretation{}, false
	}
	if !precededByApproval(step, all) {
		return Interpretation{}, false
	}
	raw := paramBytes(step, "staticInput")
	order, ok := decodeTWAPStaticInput(raw)
	if !ok {
		return Interpretation{}, false
	}

	// minPartBuyAmount is denominated in buyToken units; join against the
	// local decimals table to render it as a decimal amount instead of raw
	// wei (spec §4.5).
	decimals, decimalsKnown := lookupDecimals(info, order.BuyToken)
	formattedAmount := formatTokenAmount(order.MinPartBuyAmountWei, decimals, decimalsKnown)

	return Interpretation{
		Protocol: "CoW Protocol TWAP",
		Action:   "schedule batch order",
		Severity: SeverityElevated,
		Summary: fmt.Sprintf(
			"schedule %d-part TWAP order selling %s for %s, %ds between parts, min %s per part",
			order.PartCount, labelAddress(info, order.SellToken), labelAddress(info, order.BuyToken),
			order.PartIntervalSeconds, formattedAmount,
		),
		Details: map[string]interface{}{
			"sellToken":           order.SellToken,
			"buyToken":            order.BuyToken,
			"partCount":           order.PartCount,
			"partIntervalSeconds": order.PartIntervalSeconds,
			"minPartBuyAmountWei": order.MinPartBuyAmountWei.String(),
			"minPartBuyAmount":    formattedAmount,
		},
	}, true
}

// precededByApproval reports whether the step immediately before step in
// all's order is an ERC-20 approve call.
func precededByApproval(step calldecode.CallStep, all []calldecode.CallStep) bool {
	for i, s := range all {
		if s.Index == step.Index && i > 0 {
			prev := all[i-1]
			return prev.HasMethod && prev.Method == twapApproveMethod
		}
	}
	return false
}

// twapOrder is the decoded static payload of a TWAP handler call.
type twapOrder struct {
	SellToken           string
	BuyToken            string
	PartCount           uint64
	PartIntervalSeconds uint64
	MinPartBuyAmountWei *big.Int
}

// decodeTWAPStaticInput decodes five consecutive 32-byte ABI words:
// sellToken(address), buyToken(address), partCount(uint256),
// partIntervalSeconds(uint256), minPartBuyAmount(uint256). This is a
// fixed, non-dynamic layout — no offsets to follow.
func decodeTWAPStaticInput(raw []byte) (twapOrder, bool) {
	const wordLen = 32
	const numWords = 5
	if len(raw) < wordLen*numWords {
		return twapOrder{}, false
	}
	sellToken := primitives.EncodeHex(raw[0*wordLen+12 : 1*wordLen])
	buyToken := primitives.EncodeHex(raw[1*wordLen+12 : 2*wordLen])
	partCount := new(big.Int).SetBytes(raw[2*wordLen : 3*wordLen])
	partInterval := new(big.Int).SetBytes(raw[3*wordLen : 4*wordLen])
	minBuy := new(big.Int).SetBytes(raw[4*wordLen : 5*wordLen])

	return twapOrder{
		SellToken:           sellToken,
		BuyToken:            buyToken,
		PartCount:           partCount.Uint64(),
		PartIntervalSeconds: partInterval.Uint64(),
		MinPartBuyAmountWei: minBuy,
	}, true
}

// lookupDecimals consults info for addr's decimal count, treating a nil
// info (no settings store configured) as "unknown".
func lookupDecimals(info TokenInfo, addr string) (int, bool) {
	if info == nil {
		return 0, false
	}
	return info.Decimals(addr)
}

// labelAddress renders addr with its configured nickname, if any, e.g.
// `0xabc... ("treasury")`; falls back to the bare address when info is nil
// or has no entry for it.
func labelAddress(info TokenInfo, addr string) string {
	if info == nil {
		return addr
	}
	name, ok := info.Nickname(addr)
	if !ok {
		return addr
	}
	return fmt.Sprintf("%s (%q)", addr, name)
}

// formatTokenAmount renders a raw integer token amount as a human-readable
// decimal string when decimals is known, falling back to the raw wei
// value with an explicit note otherwise. Never queries a network or
// on-chain price source — decimals come only from the local settings
// table (spec §4.5).
func formatTokenAmount(amount *big.Int, decimals int, known bool) string {
	if !known {
		return amount.String() + " wei (decimals unknown)"
	}
	if decimals == 0 {
		return amount.String()
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, rem := new(big.Int), new(big.Int)
	whole.QuoRem(amount, divisor, rem)
	if rem.Sign() == 0 {
		return whole.String()
	}
	frac := rem.String()
	for len(frac) < decimals {
		frac = "0" + frac
	}
	frac = strings.TrimRight(frac, "0")
	return whole.String() + "." + frac
}

// paramString returns the string form of the named decoded parameter's
// value, or "" if absent.
func paramString(step calldecode.CallStep, name string) string {
	for _, p := range step.Params {
		if p.Name == name {
			if s, ok := p.Value.(string); ok {
				return s
			}
			return fmt.Sprintf("%v", p.Value)
		}
	}
	return ""
}

// paramBytes decodes the named bytes-typed parameter's hex value.
func paramBytes(step calldecode.CallStep, name string) []byte {
	s := paramString(step, name)
	if s == "" {
		return nil
	}
	b, err := primitives.ParseHexBytes(s)
	if err != nil {
		return nil
	}
	return b
}
