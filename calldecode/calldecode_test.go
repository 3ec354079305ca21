package calldecode

import (
	"testing"

	"github.com/safelens/safelens/evidence"
)

func TestDecodeNoTree(t *testing.T) {
	tx := &evidence.SafeTx{To: "0xabc", Data: "0x"}
	steps := Decode(tx, nil)
	if len(steps) != 0 {
		t.Fatalf("expected no steps, got %d", len(steps))
	}
}

func TestDecodeMissingMethod(t *testing.T) {
	tx := &evidence.SafeTx{To: "0xabc", Data: "0x"}
	steps := Decode(tx, &evidence.DecodedCall{})
	if len(steps) != 0 {
		t.Fatalf("expected no steps for empty method, got %d", len(steps))
	}
}

func TestDecodeSingleCall(t *testing.T) {
	tx := &evidence.SafeTx{To: "0xabc", Value: "5", Data: "0xdeadbeef", Operation: evidence.OpCall}
	decoded := &evidence.DecodedCall{
		Method: "transfer",
		Parameters: []evidence.DecodedParam{
			{Name: "to", Type: "address", Value: "0xdef"},
			{Name: "amount", Type: "uint256", Value: "5"},
		},
	}
	steps := Decode(tx, decoded)
	if len(steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(steps))
	}
	s := steps[0]
	if s.To != "0xabc" || s.Value != "5" || s.Method != "transfer" {
		t.Fatalf("unexpected step: %+v", s)
	}
	if sig := s.SelectorSignature(); sig != "transfer(address,uint256)" {
		t.Fatalf("unexpected signature: %s", sig)
	}
}

func TestDecodeMultiSend(t *testing.T) {
	op := evidence.OpDelegateCall
	decoded := &evidence.DecodedCall{
		Method: "multiSend",
		Parameters: []evidence.DecodedParam{
			{
				Name: "transactions",
				Type: "bytes",
				ValueDecoded: []evidence.InnerTransaction{
					{To: "0x1111111111111111111111111111111111111111", Value: "", Data: "0xaaaa"},
					{
						Operation: &op,
						To:        "0x2222222222222222222222222222222222222222",
						Value:     "7",
						Data:      "0xbbbb",
						DataDecoded: &evidence.DecodedCall{
							Method: "approve",
							Parameters: []evidence.DecodedParam{
								{Name: "spender", Type: "address"},
								{Name: "amount", Type: "uint256"},
							},
						},
					},
				},
			},
		},
	}
	steps := Decode(&evidence.SafeTx{To: "0xouter"}, decoded)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Index != 0 || steps[1].Index != 1 {
		t.Fatalf("expected sequential indices, got %d, %d", steps[0].Index, steps[1].Index)
	}
	if steps[0].Value != "0" {
		t.Fatalf("expected default value \"0\", got %q", steps[0].Value)
	}
	if steps[0].Operation != evidence.OpCall {
		t.Fatalf("expected default operation Call, got %v", steps[0].Operation)
	}
	if steps[1].Operation != evidence.OpDelegateCall {
		t.Fatalf("expected DelegateCall, got %v", steps[1].Operation)
	}
	if steps[1].Method != "approve" {
		t.Fatalf("expected method approve, got %q", steps[1].Method)
	}
	if sig := steps[1].SelectorSignature(); sig != "approve(address,uint256)" {
		t.Fatalf("unexpected signature: %s", sig)
	}
}

func TestDecodeIdempotence(t *testing.T) {
	decoded := &evidence.DecodedCall{
		Method: "multiSend",
		Parameters: []evidence.DecodedParam{
			{
				Name: "transactions",
				Type: "bytes",
				ValueDecoded: []evidence.InnerTransaction{
					{To: "0x1111111111111111111111111111111111111111", Data: "0xaa"},
				},
			},
		},
	}
	tx := &evidence.SafeTx{To: "0xouter"}
	first := Decode(tx, decoded)
	second := Decode(tx, decoded)
	if len(first) != len(second) {
		t.Fatalf("decode not idempotent: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].To != second[i].To || first[i].Method != second[i].Method || first[i].RawData != second[i].RawData {
			t.Fatalf("step %d differs between runs", i)
		}
	}
}
