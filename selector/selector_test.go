package selector

import (
	"testing"

	"github.com/safelens/safelens/calldecode"
	"github.com/safelens/safelens/evidence"
	"github.com/safelens/safelens/primitives"
)

func TestVerifyNoData(t *testing.T) {
	step := calldecode.CallStep{Method: "foo", HasMethod: true, RawData: "0x"}
	r := Verify(step)
	if r.Outcome != OutcomeNoData {
		t.Fatalf("expected no-data, got %s", r.Outcome)
	}
}

func TestVerifyVerified(t *testing.T) {
	sig := "transfer(address,uint256)"
	selectorBytes := primitives.Keccak256([]byte(sig))[:4]
	raw := append(append([]byte{}, selectorBytes...), make([]byte, 64)...)
	step := calldecode.CallStep{
		Method:    "transfer",
		HasMethod: true,
		Params: []evidence.DecodedParam{
			{Name: "to", Type: "address"},
			{Name: "amount", Type: "uint256"},
		},
		RawData: primitives.EncodeHex(raw),
	}
	r := Verify(step)
	if r.Outcome != OutcomeVerified {
		t.Fatalf("expected verified, got %s (sig %s, computed %s, raw %s)", r.Outcome, r.Signature, r.Computed, r.RawPrefix)
	}
}

func TestVerifyMismatch(t *testing.T) {
	step := calldecode.CallStep{
		Method:    "transfer",
		HasMethod: true,
		Params: []evidence.DecodedParam{
			{Name: "to", Type: "address"},
			{Name: "amount", Type: "uint256"},
		},
		RawData: "0xdeadbeef00000000000000000000000000000000000000000000000000000000000000",
	}
	r := Verify(step)
	if r.Outcome != OutcomeMismatch {
		t.Fatalf("expected mismatch, got %s", r.Outcome)
	}
}

func TestVerifyNestedTupleNotAttempted(t *testing.T) {
	step := calldecode.CallStep{
		Method:    "batch",
		HasMethod: true,
		Params: []evidence.DecodedParam{
			{Name: "orders", Type: "((address,uint256)[])"},
		},
		RawData: "0xdeadbeef",
	}
	r := Verify(step)
	if r.Outcome != OutcomeNotAttempted {
		t.Fatalf("expected not-attempted for deep tuple, got %s", r.Outcome)
	}
}

func TestVerifyNoMethod(t *testing.T) {
	step := calldecode.CallStep{RawData: "0xdeadbeef"}
	r := Verify(step)
	if r.Outcome != OutcomeNotAttempted {
		t.Fatalf("expected not-attempted without a method, got %s", r.Outcome)
	}
}

func TestIsDelegateCallToUnknown(t *testing.T) {
	step := calldecode.CallStep{To: "0xAAAA000000000000000000000000000000000000"}
	if !IsDelegateCallToUnknown(step, nil) {
		t.Fatal("expected unknown with empty registry")
	}
	if IsDelegateCallToUnknown(step, []string{"0xaaaa000000000000000000000000000000000000"}) {
		t.Fatal("expected known target to match case-insensitively")
	}
}
