// Package verifier is the driver (spec §4.6): it sequences hash
// recomputation, signature verification, calldata decoding, selector
// verification, and interpreter dispatch, accumulating a typed
// VerificationReport. It is single-threaded, stateless, and performs no
// I/O beyond the byte buffer it is handed (spec §5).
package verifier

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/safelens/safelens/calldecode"
	"github.com/safelens/safelens/evidence"
	"github.com/safelens/safelens/hashengine"
	"github.com/safelens/safelens/interpret"
	"github.com/safelens/safelens/primitives"
	"github.com/safelens/safelens/selector"
	"github.com/safelens/safelens/settings"
	"github.com/safelens/safelens/sigverify"
)

// ContractRegistry is the subset of the local settings store the driver
// needs: a lookup table of known contract addresses (consulted for the
// DelegateCall-to-unknown-contract warning, spec §4.4, §4.6 step 5), plus
// the token-decimals and address-nickname lookups threaded into the
// interpreter registry (spec §4.5) — satisfied by *settings.Store.
type ContractRegistry interface {
	KnownTargets() []string
	Decimals(addr string) (int, bool)
	Nickname(addr string) (string, bool)
}

// Options configures a Verify call.
type Options struct {
	// Logger receives diagnostic breadcrumbs; never used for control flow.
	// A nil Logger disables logging.
	Logger *zap.Logger
	// Settings is the local address-book/ABI-registry store. A nil value
	// means the caller supplied none; the "settings" source entry is then
	// reported "disabled" (spec §4.6 step 5).
	Settings ContractRegistry
	// DisabledInterpreters skips the named interpreter ids (spec §4.5).
	DisabledInterpreters map[string]bool
}

// SourceStatus is one entry in the fixed source catalog (spec §4.6 step 5).
type SourceStatus string

const (
	SourceEnabled  SourceStatus = "enabled"
	SourceDisabled SourceStatus = "disabled"
	SourceNA       SourceStatus = "n/a"
)

// SourceEntry records one entry of the fixed source catalog.
type SourceEntry struct {
	ID     string
	Status SourceStatus
	Trust  string
}

// Warning is one entry of the report's warnings taxonomy (spec §6).
type Warning struct {
	Level   string
	Message string
}

// SignatureSummary aggregates per-signature counts (spec §3).
type SignatureSummary struct {
	Total       int
	Valid       int
	Invalid     int
	Unsupported int
}

// Report is the VerificationReport produced by Verify (spec §3).
type Report struct {
	OK               bool
	SafeTxHash       string
	SafeAddress      string
	ChainID          uint64
	Proposer         string
	HasProposer      bool
	DomainSeparator  string
	MessageHash      string
	SignatureSummary SignatureSummary
	SignatureList    []sigverify.Result
	SignatureByOwner map[string]sigverify.Result
	Warnings         []Warning
	Sources          []SourceEntry
	Calls            []CallReport
	Interpretations  []interpret.Interpretation
}

// CallReport pairs a normalized CallStep with its selector-verification
// outcome, ready for serialization.
type CallReport struct {
	Step            calldecode.CallStep
	SelectorOutcome selector.Outcome
	SelectorDetail  selector.Result
}

// fixedSourceIDs is the catalog order mandated by spec §6.
var fixedSourceIDs = []string{
	"evidence_package",
	"hash_recompute",
	"signatures",
	"signature_scheme_coverage",
	"safe_owners_threshold",
	"onchain_policy_proof",
	"decoded_calldata",
	"simulation",
	"consensus_proof",
	"settings",
}

// Verify runs the full pipeline over pkg (spec §4.6). Schema/IO errors are
// expected to have been handled by the caller via evidence.Parse before
// Verify is invoked — Verify itself never fails; every check it performs
// contributes to the returned Report instead of aborting the call.
func Verify(pkg *evidence.EvidencePackage, opts Options) *Report {
	log := opts.Logger
	report := &Report{
		SafeAddress:      pkg.SafeAddress,
		ChainID:          pkg.ChainID,
		SafeTxHash:       pkg.SafeTxHash,
		SignatureByOwner: map[string]sigverify.Result{},
	}

	safeAddr, addrErr := primitives.ParseAddress(pkg.SafeAddress)
	hashOK := false
	if addrErr == nil {
		digest, err := hashengine.Recompute(safeAddr, pkg.ChainID, &pkg.Transaction, pkg.SafeTxHash)
		if digest != nil {
			report.DomainSeparator = digest.DomainSeparator.Hex()
			report.MessageHash = digest.MessageHash.Hex()
		}
		hashOK = err == nil
		if err != nil && log != nil {
			log.Warn("hash recompute mismatch", zap.String("declared", pkg.SafeTxHash), zap.Error(err))
		}
	} else if log != nil {
		log.Warn("safeAddress unparseable, skipping hash recompute", zap.Error(addrErr))
	}

	var finalDigest primitives.Hash
	if hashOK {
		finalDigest, _ = primitives.ParseHash(report.SafeTxHash)
	}

	seenOwners := map[string]bool{}
	selectorClean := true
	for _, c := range pkg.Confirmations {
		var res sigverify.Result
		if hashOK {
			res = sigverify.Verify(finalDigest, c.Owner, c.Signature)
		} else {
			// Hash mismatch: still decode/report signatures against the
			// declared hash as a diagnostic (spec §8 scenario S2).
			declared, err := primitives.ParseHash(pkg.SafeTxHash)
			if err == nil {
				res = sigverify.Verify(declared, c.Owner, c.Signature)
			} else {
				res = sigverify.Result{Owner: c.Owner, Status: sigverify.StatusUnsupported, Reason: "declared safeTxHash unparseable"}
			}
		}
		report.SignatureList = append(report.SignatureList, res)
		report.SignatureByOwner[normalizeOwnerKey(c.Owner)] = res
		report.SignatureSummary.Total++
		switch res.Status {
		case sigverify.StatusValid:
			report.SignatureSummary.Valid++
		case sigverify.StatusInvalid:
			report.SignatureSummary.Invalid++
		case sigverify.StatusUnsupported:
			report.SignatureSummary.Unsupported++
		}

		ownerKey := normalizeOwnerKey(c.Owner)
		if seenOwners[ownerKey] {
			report.Warnings = append(report.Warnings, Warning{
				Level:   "warn",
				Message: "Duplicate owner in confirmations: " + c.Owner,
			})
		}
		seenOwners[ownerKey] = true
	}

	if owner, ok := sigverify.Proposer(pkg.Confirmations); ok {
		report.Proposer = owner
		report.HasProposer = true
	}

	steps := calldecode.Decode(&pkg.Transaction, pkg.DataDecoded)
	var knownTargets []string
	// tokenInfo defaults to an empty store so the interpreter registry
	// always has a non-nil lookup to call, even with no --settings file;
	// the "settings" source-catalog entry below still reports disabled in
	// that case, since hasSettings tracks opts.Settings, not tokenInfo.
	tokenInfo := interpret.TokenInfo(settings.Empty())
	if opts.Settings != nil {
		knownTargets = opts.Settings.KnownTargets()
		tokenInfo = opts.Settings
	}
	for _, step := range steps {
		selRes := selector.Verify(step)
		cr := CallReport{Step: step, SelectorOutcome: selRes.Outcome, SelectorDetail: selRes}
		report.Calls = append(report.Calls, cr)

		if selRes.Outcome == selector.OutcomeMismatch {
			report.Warnings = append(report.Warnings, Warning{
				Level:   "warn",
				Message: warningSelectorMismatch(step.Index),
			})
			if step.Operation != evidence.OpDelegateCall {
				selectorClean = false
			}
		}
		if selRes.Outcome == selector.OutcomeNotAttempted && step.HasMethod {
			// A method was declared but its parameter types include a
			// nested tuple deeper than the shallow parser understands
			// (spec §9): flagged, not silently skipped.
			report.Warnings = append(report.Warnings, Warning{
				Level:   "warn",
				Message: fmt.Sprintf("Selector verification not attempted on call #%d: parameter types include a nested tuple", step.Index),
			})
		}
		if step.Operation == evidence.OpDelegateCall && selector.IsDelegateCallToUnknown(step, knownTargets) {
			report.Warnings = append(report.Warnings, Warning{
				Level:   "danger",
				Message: "DelegateCall to unknown contract at " + step.To,
			})
		}
		if interp, ok := interpret.Run(step, steps, pkg.SafeAddress, opts.DisabledInterpreters, tokenInfo); ok {
			report.Interpretations = append(report.Interpretations, interp)
		}
	}

	report.Sources = buildSources(hashOK, len(steps) > 0, pkg, opts.Settings != nil)

	report.OK = hashOK && report.SignatureSummary.Invalid == 0 && report.SignatureSummary.Unsupported == 0 && selectorClean

	return report
}

func warningSelectorMismatch(index int) string {
	return fmt.Sprintf("Selector mismatch on call #%d: decoded method does not match calldata prefix", index)
}

func normalizeOwnerKey(owner string) string {
	// Case-insensitive owner key, using the canonical EIP-55 checksummed
	// form so map lookups don't depend on the caller's casing (spec §8
	// invariant 4).
	if addr, err := primitives.ParseAddress(owner); err == nil {
		return addr.Hex()
	}
	return owner
}

func buildSources(hashOK, hasCalls bool, pkg *evidence.EvidencePackage, hasSettings bool) []SourceEntry {
	status := func(id string) SourceStatus {
		switch id {
		case "evidence_package":
			return SourceEnabled
		case "hash_recompute":
			if hashOK {
				return SourceEnabled
			}
			return SourceDisabled
		case "signatures", "signature_scheme_coverage":
			return SourceEnabled
		case "safe_owners_threshold":
			return SourceNA
		case "onchain_policy_proof":
			if len(pkg.OnchainPolicyProof) > 0 {
				return SourceEnabled
			}
			return SourceNA
		case "decoded_calldata":
			if hasCalls {
				return SourceEnabled
			}
			return SourceDisabled
		case "simulation":
			if len(pkg.Simulation) > 0 {
				return SourceEnabled
			}
			return SourceNA
		case "consensus_proof":
			if len(pkg.ConsensusProof) > 0 {
				return SourceEnabled
			}
			return SourceNA
		case "settings":
			if hasSettings {
				return SourceEnabled
			}
			return SourceDisabled
		default:
			return SourceNA
		}
	}
	trust := func(id string) string {
		switch id {
		case "evidence_package":
			return "untrusted-input"
		case "hash_recompute":
			return "cryptographic"
		case "signatures":
			return "cryptographic"
		case "signature_scheme_coverage":
			return "cryptographic"
		case "safe_owners_threshold":
			return "unverified-declaration"
		case "onchain_policy_proof":
			return "attested"
		case "decoded_calldata":
			return "api-reconciled"
		case "simulation":
			return "unverified-declaration"
		case "consensus_proof":
			return "attested"
		case "settings":
			return "local-trusted"
		default:
			return "unknown"
		}
	}

	entries := make([]SourceEntry, 0, len(fixedSourceIDs))
	for _, id := range fixedSourceIDs {
		entries = append(entries, SourceEntry{ID: id, Status: status(id), Trust: trust(id)})
	}
	return entries
}
