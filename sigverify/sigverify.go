// Package sigverify classifies and verifies the signature schemes a Safe
// confirmation may carry (spec §4.2): EIP-1271 contract signatures,
// pre-approved hashes, eth_sign-prefixed ECDSA, and standard EIP-712
// ECDSA. Only the latter two are checkable offline; the others are
// reported as unsupported rather than rejected.
package sigverify

import (
	"math/big"
	"sort"
	"time"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/safelens/safelens/evidence"
	"github.com/safelens/safelens/primitives"
)

// Scheme tags which of the four coexisting signature schemes a
// confirmation's signature was classified as.
type Scheme string

const (
	SchemeEcdsa712  Scheme = "Ecdsa712"
	SchemeEthSign   Scheme = "EthSign"
	SchemeContract  Scheme = "Contract1271"
	SchemePreApprov Scheme = "PreApproved"
	SchemeUnknown   Scheme = "Unknown"
)

// Status is the per-signature verification outcome.
type Status string

const (
	StatusValid       Status = "valid"
	StatusInvalid     Status = "invalid"
	StatusUnsupported Status = "unsupported"
)

// Result is the outcome of verifying one confirmation's signature.
type Result struct {
	Owner     string
	Scheme    Scheme
	Status    Status
	Recovered string // hex address recovered from the signature; empty if not recoverable
	Reason    string // populated for Unsupported and Invalid
}

const ethSignedMessagePrefix = "\x19Ethereum Signed Message:\n32"

// classify inspects a signature's length and final byte (v) to select a
// scheme per the table in spec §4.2.
func classify(sig []byte) (Scheme, byte, string) {
	if len(sig) < 65 {
		return SchemeUnknown, 0, "signature shorter than 65 bytes"
	}
	v := sig[64]
	switch {
	case len(sig) >= 65 && v == 0:
		return SchemeContract, v, "Contract signature"
	case len(sig) == 65 && v == 1:
		return SchemePreApprov, v, "Pre-approved hash"
	case len(sig) == 65 && (v == 31 || v == 32):
		return SchemeEthSign, v, ""
	case len(sig) == 65 && (v == 27 || v == 28):
		return SchemeEcdsa712, v, ""
	default:
		return SchemeUnknown, v, "unrecognized signature length/v combination"
	}
}

// Verify classifies and, where possible, cryptographically verifies one
// confirmation's signature against the final EIP-712 digest, comparing
// any recovered signer to the claimed owner case-insensitively (spec
// §4.2, §8 invariant 4).
func Verify(digest primitives.Hash, owner string, signatureHex string) Result {
	res := Result{Owner: owner}

	sig, err := primitives.ParseHexBytes(signatureHex)
	if err != nil {
		res.Status = StatusUnsupported
		res.Scheme = SchemeUnknown
		res.Reason = "malformed signature hex: " + err.Error()
		return res
	}

	scheme, _, reason := classify(sig)
	res.Scheme = scheme

	switch scheme {
	case SchemeContract, SchemePreApprov, SchemeUnknown:
		res.Status = StatusUnsupported
		res.Reason = reason
		return res
	}

	r := new(big.Int).SetBytes(sig[0:32])
	s := new(big.Int).SetBytes(sig[32:64])
	v := sig[64]

	if !gethcrypto.ValidateSignatureValues(0, r, s, true) {
		res.Status = StatusUnsupported
		res.Reason = "Malleable signature"
		return res
	}

	var signHash []byte
	var recoveryID byte
	switch scheme {
	case SchemeEthSign:
		prefixed := primitives.Keccak256([]byte(ethSignedMessagePrefix), digest[:])
		signHash = prefixed
		recoveryID = v - 31
	case SchemeEcdsa712:
		signHash = digest[:]
		recoveryID = v - 27
	}

	recoverable := make([]byte, 65)
	copy(recoverable[0:32], sig[0:32])
	copy(recoverable[32:64], sig[32:64])
	recoverable[64] = recoveryID

	pub, err := gethcrypto.SigToPub(signHash, recoverable)
	if err != nil {
		res.Status = StatusUnsupported
		res.Reason = "signature recovery failed: " + err.Error()
		return res
	}

	recovered := gethcrypto.PubkeyToAddress(*pub)
	res.Recovered = recovered.Hex()

	if primitives.EqualAddress(recovered.Hex(), owner) {
		res.Status = StatusValid
	} else {
		res.Status = StatusInvalid
		res.Reason = "recovered signer does not match claimed owner"
	}
	return res
}

// Proposer returns the owner of the chronologically earliest confirmation
// (min by submissionDate, ties broken by list order), per spec §4.2. It
// returns ("", false) when confirmations is empty.
func Proposer(confirmations []evidence.Confirmation) (string, bool) {
	if len(confirmations) == 0 {
		return "", false
	}
	type dated struct {
		t    time.Time
		hasT bool
		conf evidence.Confirmation
	}
	dl := make([]dated, len(confirmations))
	for i, c := range confirmations {
		t, err := time.Parse(time.RFC3339Nano, c.SubmissionDate)
		if err != nil {
			t, err = time.Parse(time.RFC3339, c.SubmissionDate)
		}
		dl[i] = dated{t: t, hasT: err == nil, conf: c}
	}
	sort.SliceStable(dl, func(i, j int) bool {
		if dl[i].hasT && dl[j].hasT {
			return dl[i].t.Before(dl[j].t)
		}
		// Unparseable dates sort after parseable ones but otherwise keep
		// original order (SliceStable preserves ties, including ties
		// between two unparseable entries).
		if dl[i].hasT != dl[j].hasT {
			return dl[i].hasT
		}
		return false
	})
	return dl[0].conf.Owner, true
}
