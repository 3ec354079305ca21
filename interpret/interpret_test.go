package interpret

import (
	"math/big"
	"strings"
	"testing"

	"github.com/safelens/safelens/calldecode"
	"github.com/safelens/safelens/evidence"
	"github.com/safelens/safelens/primitives"
)

const safe = "0x1111111111111111111111111111111111111111"

// fakeTokenInfo is a minimal in-memory TokenInfo for tests, independent of
// the settings package's file-loading machinery.
type fakeTokenInfo struct {
	decimals  map[string]int
	nicknames map[string]string
}

func (f fakeTokenInfo) Decimals(addr string) (int, bool) {
	d, ok := f.decimals[strings.ToLower(addr)]
	return d, ok
}

func (f fakeTokenInfo) Nickname(addr string) (string, bool) {
	n, ok := f.nicknames[strings.ToLower(addr)]
	return n, ok
}

func TestInterpretSafePolicyChangeAddOwner(t *testing.T) {
	owner := "0x2222222222222222222222222222222222222222"
	step := calldecode.CallStep{
		To:        safe,
		Method:    "addOwnerWithThreshold",
		HasMethod: true,
		Params: []evidence.DecodedParam{
			{Name: "owner", Type: "address", Value: owner},
			{Name: "_threshold", Type: "uint256", Value: "2"},
		},
	}
	info := fakeTokenInfo{nicknames: map[string]string{strings.ToLower(owner): "treasury"}}
	interp, ok := Run(step, []calldecode.CallStep{step}, safe, nil, info)
	if !ok {
		t.Fatal("expected safe-policy interpretation to fire")
	}
	if interp.ID != "safe-policy" || interp.Severity != SeverityElevated {
		t.Fatalf("unexpected interpretation: %+v", interp)
	}
	if interp.Details["newThreshold"] != "2" {
		t.Fatalf("expected threshold detail, got %+v", interp.Details)
	}
	if interp.Details["owner"] != owner {
		t.Fatalf("expected raw owner address in details, got %+v", interp.Details)
	}
	if !strings.Contains(interp.Summary, "treasury") {
		t.Fatalf("expected nickname in summary, got %q", interp.Summary)
	}
}

func TestInterpretSafePolicyChangeWrongTarget(t *testing.T) {
	step := calldecode.CallStep{
		To:        "0x9999999999999999999999999999999999999999",
		Method:    "addOwnerWithThreshold",
		HasMethod: true,
	}
	if _, ok := Run(step, []calldecode.CallStep{step}, safe, nil, nil); ok {
		t.Fatal("expected no match when target is not the Safe itself")
	}
}

func TestInterpretDisabledByID(t *testing.T) {
	step := calldecode.CallStep{To: safe, Method: "changeThreshold", HasMethod: true}
	if _, ok := Run(step, []calldecode.CallStep{step}, safe, map[string]bool{"safe-policy": true}, nil); ok {
		t.Fatal("expected disabled interpreter to be skipped")
	}
}

func encodeTWAPStatic(sellToken, buyToken string, partCount, interval uint64, minBuy string) string {
	var raw []byte
	pad := func(addr string) []byte {
		a, _ := primitives.ParseAddress(addr)
		return primitives.LeftPad32(a.Bytes())
	}
	padUint := func(v uint64) []byte {
		return primitives.LeftPad32(new(big.Int).SetUint64(v).Bytes())
	}
	padBig := func(s string) []byte {
		n := new(big.Int)
		n.SetString(s, 10)
		return primitives.LeftPad32(n.Bytes())
	}
	raw = append(raw, pad(sellToken)...)
	raw = append(raw, pad(buyToken)...)
	raw = append(raw, padUint(partCount)...)
	raw = append(raw, padUint(interval)...)
	raw = append(raw, padBig(minBuy)...)
	return primitives.EncodeHex(raw)
}

func TestInterpretScheduledBatchOrder(t *testing.T) {
	approve := calldecode.CallStep{Index: 0, Method: "approve", HasMethod: true, Operation: evidence.OpCall}
	staticInput := encodeTWAPStatic(
		"0x3333333333333333333333333333333333333333",
		"0x4444444444444444444444444444444444444444",
		10, 3600, "1000000",
	)
	order := calldecode.CallStep{
		Index:     1,
		Method:    "createWithContext",
		HasMethod: true,
		Operation: evidence.OpDelegateCall,
		Params: []evidence.DecodedParam{
			{Name: "staticInput", Type: "bytes", Value: staticInput},
		},
	}
	all := []calldecode.CallStep{approve, order}

	t.Run("without decimals", func(t *testing.T) {
		interp, ok := Run(order, all, safe, nil, nil)
		if !ok {
			t.Fatal("expected twap-order interpretation to fire")
		}
		if interp.ID != "twap-order" {
			t.Fatalf("unexpected id: %s", interp.ID)
		}
		if !strings.Contains(interp.Summary, "10-part") {
			t.Fatalf("expected part count in summary, got %q", interp.Summary)
		}
		if interp.Details["partIntervalSeconds"] != uint64(3600) {
			t.Fatalf("unexpected interval detail: %+v", interp.Details)
		}
		if interp.Details["minPartBuyAmount"] != "1000000 wei (decimals unknown)" {
			t.Fatalf("expected raw-wei fallback, got %+v", interp.Details["minPartBuyAmount"])
		}
	})

	t.Run("with decimals and nicknames", func(t *testing.T) {
		buyToken := "0x4444444444444444444444444444444444444444"
		info := fakeTokenInfo{
			decimals:  map[string]int{strings.ToLower(buyToken): 6},
			nicknames: map[string]string{strings.ToLower(buyToken): "USDC"},
		}
		interp, ok := Run(order, all, safe, nil, info)
		if !ok {
			t.Fatal("expected twap-order interpretation to fire")
		}
		if interp.Details["minPartBuyAmount"] != "1" {
			t.Fatalf("expected 1000000 wei at 6 decimals to format as \"1\", got %+v", interp.Details["minPartBuyAmount"])
		}
		if interp.Details["minPartBuyAmountWei"] != "1000000" {
			t.Fatalf("expected raw wei preserved in details, got %+v", interp.Details["minPartBuyAmountWei"])
		}
		if !strings.Contains(interp.Summary, "USDC") {
			t.Fatalf("expected buyToken nickname in summary, got %q", interp.Summary)
		}
	})
}

func TestInterpretScheduledBatchOrderRequiresPrecedingApproval(t *testing.T) {
	staticInput := encodeTWAPStatic(
		"0x3333333333333333333333333333333333333333",
		"0x4444444444444444444444444444444444444444",
		10, 3600, "1000000",
	)
	order := calldecode.CallStep{
		Index:     0,
		Method:    "createWithContext",
		HasMethod: true,
		Operation: evidence.OpDelegateCall,
		Params: []evidence.DecodedParam{
			{Name: "staticInput", Type: "bytes", Value: staticInput},
		},
	}
	if _, ok := Run(order, []calldecode.CallStep{order}, safe, nil, nil); ok {
		t.Fatal("expected no match without a preceding approval")
	}
}
