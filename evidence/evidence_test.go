package evidence

import "testing"

func minimalPackageJSON() string {
	return `{
		"version": "1.0",
		"safeAddress": "0x1111111111111111111111111111111111111111",
		"safeTxHash": "0x` + stringRepeat("ab", 32) + `",
		"chainId": 1,
		"transaction": {
			"to": "0x2222222222222222222222222222222222222222",
			"value": "0",
			"data": "0x",
			"operation": 0,
			"safeTxGas": "0",
			"baseGas": "0",
			"gasPrice": "0",
			"gasToken": "0x0000000000000000000000000000000000000000",
			"refundReceiver": "0x0000000000000000000000000000000000000000",
			"nonce": "42"
		},
		"confirmations": [
			{"owner": "0x3333333333333333333333333333333333333333", "signature": "0x` + stringRepeat("11", 65) + `", "submissionDate": "2026-01-01T00:00:00Z"}
		],
		"confirmationsRequired": 1,
		"ethereumTxHash": null,
		"dataDecoded": null,
		"sources": {"safeApiUrl": "https://example.invalid/api", "transactionUrl": "https://example.invalid/tx"},
		"packagedAt": "2026-01-01T00:00:00Z"
	}`
}

func stringRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func TestParseValidPackage(t *testing.T) {
	pkg, err := Parse([]byte(minimalPackageJSON()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pkg.ChainID != 1 {
		t.Errorf("expected chainId 1, got %d", pkg.ChainID)
	}
	if len(pkg.Confirmations) != 1 {
		t.Errorf("expected 1 confirmation, got %d", len(pkg.Confirmations))
	}
}

func TestParseRejectsBadVersion(t *testing.T) {
	bad := `{"version":"2.0"}`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected schema error for unsupported version")
	}
}

func TestParseMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"version": `)); err == nil {
		t.Fatal("expected JSON parse error")
	}
}

func TestParseRejectsBadChainID(t *testing.T) {
	pkg, _ := Parse([]byte(minimalPackageJSON()))
	pkg.ChainID = 0
	if err := Validate(pkg); err == nil {
		t.Fatal("expected chainId validation error")
	}
}

func TestParseRejectsEmptyConfirmations(t *testing.T) {
	pkg, _ := Parse([]byte(minimalPackageJSON()))
	pkg.Confirmations = nil
	if err := Validate(pkg); err == nil {
		t.Fatal("expected confirmations validation error")
	}
}
