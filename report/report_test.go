package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/safelens/safelens/sigverify"
	"github.com/safelens/safelens/verifier"
)

func sampleReport() *verifier.Report {
	return &verifier.Report{
		OK:          true,
		SafeTxHash:  "0x" + strings.Repeat("ab", 32),
		ChainID:     1,
		SafeAddress: "0x1111111111111111111111111111111111111111",
		HasProposer: true,
		Proposer:    "0x2222222222222222222222222222222222222222",
		SignatureSummary: verifier.SignatureSummary{
			Total: 1, Valid: 1,
		},
		SignatureByOwner: map[string]sigverify.Result{},
		Sources: []verifier.SourceEntry{
			{ID: "evidence_package", Status: verifier.SourceEnabled, Trust: "untrusted-input"},
			{ID: "hash_recompute", Status: verifier.SourceEnabled, Trust: "cryptographic"},
		},
	}
}

func TestMarshalJSONFieldOrder(t *testing.T) {
	rep := sampleReport()
	data, err := MarshalJSON(rep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	okIdx := strings.Index(s, `"ok"`)
	hashIdx := strings.Index(s, `"safeTxHash"`)
	chainIdx := strings.Index(s, `"chainId"`)
	if !(okIdx < hashIdx && hashIdx < chainIdx) {
		t.Fatalf("expected field order ok < safeTxHash < chainId, got %s", s)
	}
	var round map[string]interface{}
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("round-trip unmarshal: %v", err)
	}
}

func TestTextReportContainsHeader(t *testing.T) {
	rep := sampleReport()
	text := Text(rep)
	if !strings.Contains(text, "Evidence verified.") {
		t.Fatalf("expected success header, got %q", text)
	}
	if !strings.Contains(text, rep.SafeAddress) {
		t.Fatal("expected safe address in text report")
	}
}

func TestTextReportFailureHeader(t *testing.T) {
	rep := sampleReport()
	rep.OK = false
	text := Text(rep)
	if !strings.Contains(text, "FAILED") {
		t.Fatalf("expected failure header, got %q", text)
	}
}
