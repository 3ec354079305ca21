package evidence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/safelens/safelens/errors"
	"github.com/safelens/safelens/primitives"
)

// Parse unmarshals and schema-validates raw evidence-package JSON,
// returning a path-qualified *errors.SafeLensError (code SchemaError) on
// any malformed field. This runs before any hashing (spec §4.6 step 1).
func Parse(data []byte) (*EvidencePackage, error) {
	var pkg EvidencePackage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, errors.New(errors.CodeSchema, "invalid JSON format", err)
	}
	if err := Validate(&pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// Validate checks an already-parsed EvidencePackage against the schema
// described in spec §3, returning the first violation found as a
// path-qualified *errors.SafeLensError.
func Validate(pkg *EvidencePackage) error {
	if pkg.Version != SupportedVersion {
		return errors.NewSchemaError("version", fmt.Sprintf("expected %q, got %q", SupportedVersion, pkg.Version))
	}
	if _, err := primitives.ParseAddress(pkg.SafeAddress); err != nil {
		return errors.NewSchemaError("safeAddress", err.Error())
	}
	if _, err := primitives.ParseHash(pkg.SafeTxHash); err != nil {
		return errors.NewSchemaError("safeTxHash", err.Error())
	}
	if pkg.ChainID < 1 {
		return errors.NewSchemaError("chainId", "must be >= 1")
	}
	if err := validateSafeTx(&pkg.Transaction); err != nil {
		return err
	}
	if len(pkg.Confirmations) == 0 {
		return errors.NewSchemaError("confirmations", "must contain at least one confirmation")
	}
	for i, c := range pkg.Confirmations {
		path := fmt.Sprintf("confirmations[%d]", i)
		if _, err := primitives.ParseAddress(c.Owner); err != nil {
			return errors.NewSchemaError(path+".owner", err.Error())
		}
		if _, err := primitives.ParseHexBytes(c.Signature); err != nil {
			return errors.NewSchemaError(path+".signature", err.Error())
		}
		if _, err := parseInstant(c.SubmissionDate); err != nil {
			return errors.NewSchemaError(path+".submissionDate", "not a valid ISO-8601 instant: "+c.SubmissionDate)
		}
	}
	if pkg.ConfirmationsRequired < 1 {
		return errors.NewSchemaError("confirmationsRequired", "must be >= 1")
	}
	if pkg.EthereumTxHash != nil {
		if _, err := primitives.ParseHash(*pkg.EthereumTxHash); err != nil {
			return errors.NewSchemaError("ethereumTxHash", err.Error())
		}
	}
	if pkg.DataDecoded != nil {
		if err := validateDecodedCall(pkg.DataDecoded, "dataDecoded"); err != nil {
			return err
		}
	}
	if _, err := parseInstant(pkg.PackagedAt); err != nil {
		return errors.NewSchemaError("packagedAt", "not a valid ISO-8601 instant: "+pkg.PackagedAt)
	}
	for _, raw := range []struct {
		path string
		data json.RawMessage
	}{
		{"simulation", pkg.Simulation},
		{"simulationWitness", pkg.SimulationWitness},
		{"consensusProof", pkg.ConsensusProof},
		{"onchainPolicyProof", pkg.OnchainPolicyProof},
		{"exportContract", pkg.ExportContract},
	} {
		if len(raw.data) > 0 && !json.Valid(raw.data) {
			return errors.NewSchemaError(raw.path, "not well-formed JSON")
		}
	}
	return nil
}

func validateSafeTx(tx *SafeTx) error {
	if _, err := primitives.ParseAddress(tx.To); err != nil {
		return errors.NewSchemaError("transaction.to", err.Error())
	}
	if _, err := primitives.ParseU256Decimal(tx.Value); err != nil {
		return errors.NewSchemaError("transaction.value", err.Error())
	}
	if _, err := primitives.ParseHexBytes(tx.Data); err != nil {
		return errors.NewSchemaError("transaction.data", err.Error())
	}
	if tx.Operation != OpCall && tx.Operation != OpDelegateCall {
		return errors.NewSchemaError("transaction.operation", "must be 0 (Call) or 1 (DelegateCall)")
	}
	for _, f := range []struct {
		path string
		val  string
	}{
		{"transaction.safeTxGas", tx.SafeTxGas},
		{"transaction.baseGas", tx.BaseGas},
		{"transaction.gasPrice", tx.GasPrice},
	} {
		if _, err := primitives.ParseU256Decimal(f.val); err != nil {
			return errors.NewSchemaError(f.path, err.Error())
		}
	}
	if _, err := primitives.ParseAddress(tx.GasToken); err != nil {
		return errors.NewSchemaError("transaction.gasToken", err.Error())
	}
	if _, err := primitives.ParseAddress(tx.RefundReceiver); err != nil {
		return errors.NewSchemaError("transaction.refundReceiver", err.Error())
	}
	if _, err := primitives.ParseU256Decimal(tx.Nonce); err != nil {
		return errors.NewSchemaError("transaction.nonce", err.Error())
	}
	return nil
}

func validateDecodedCall(call *DecodedCall, path string) error {
	for i, p := range call.Parameters {
		ppath := fmt.Sprintf("%s.parameters[%d]", path, i)
		for j, inner := range p.ValueDecoded {
			ipath := fmt.Sprintf("%s.valueDecoded[%d]", ppath, j)
			if inner.To != "" {
				if _, err := primitives.ParseAddress(inner.To); err != nil {
					return errors.NewSchemaError(ipath+".to", err.Error())
				}
			}
			if inner.DataDecoded != nil {
				if err := validateDecodedCall(inner.DataDecoded, ipath+".dataDecoded"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// parseInstant accepts RFC3339 (the common ISO-8601 profile produced by
// the hosted transaction service) with or without fractional seconds.
func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
