// Package calldecode normalizes an evidence package's optional dataDecoded
// tree into an ordered list of CallStep records (spec §4.3), unpacking
// multiSend's packed batch encoding. It never trusts the decoded tree as
// authoritative — that reconciliation against raw bytes happens in
// package selector.
package calldecode

import (
	"github.com/safelens/safelens/evidence"
	"github.com/safelens/safelens/primitives"
)

// CallStep is one normalized sub-call (spec §3 "CallStep"). Constructed by
// Decode, consumed by selector verification and the interpreter registry,
// and never mutated afterward.
type CallStep struct {
	Index     int
	To        string
	Value     string
	Operation evidence.Operation
	Method    string
	HasMethod bool
	Params    []evidence.DecodedParam
	RawData   string
}

const multiSendMethod = "multiSend"
const multiSendParamName = "transactions"

// Decode normalizes tx's decoded-call tree into an ordered []CallStep per
// spec §4.3:
//   - no tree, or a tree missing Method, yields an empty list; the driver
//     then produces no call step, and so no selector check, for the raw
//     data;
//   - any method other than multiSend yields a single step describing the
//     transaction's own call;
//   - multiSend unpacks its "transactions" bytes parameter's ValueDecoded
//     list into one step per inner transaction, indexed from 0.
func Decode(tx *evidence.SafeTx, decoded *evidence.DecodedCall) []CallStep {
	if decoded == nil || decoded.Method == "" {
		return nil
	}
	if decoded.Method != multiSendMethod {
		return []CallStep{{
			Index:     0,
			To:        tx.To,
			Value:     tx.Value,
			Operation: tx.Operation,
			Method:    decoded.Method,
			HasMethod: true,
			Params:    decoded.Parameters,
			RawData:   tx.Data,
		}}
	}
	return decodeMultiSend(decoded)
}

// decodeMultiSend finds the "transactions" bytes parameter and unpacks its
// ValueDecoded list into one CallStep per inner transaction (spec §4.3).
func decodeMultiSend(decoded *evidence.DecodedCall) []CallStep {
	var inner []evidence.InnerTransaction
	for _, p := range decoded.Parameters {
		if p.Name == multiSendParamName && p.Type == "bytes" {
			inner = p.ValueDecoded
			break
		}
	}
	steps := make([]CallStep, 0, len(inner))
	for i, it := range inner {
		op := evidence.OpCall
		if it.Operation != nil {
			op = *it.Operation
		}
		value := it.Value
		if value == "" {
			value = "0"
		}
		step := CallStep{
			Index:     i,
			To:        it.To,
			Value:     value,
			Operation: op,
			RawData:   it.Data,
		}
		if it.DataDecoded != nil {
			step.Method = it.DataDecoded.Method
			step.HasMethod = it.DataDecoded.Method != ""
			step.Params = it.DataDecoded.Parameters
		}
		steps = append(steps, step)
	}
	return steps
}

// SelectorSignature reconstructs "method(type1,type2,...)" from a
// CallStep's method and parameter types, in declared order, for the
// selector verifier (spec §4.4 step 1).
func (c CallStep) SelectorSignature() string {
	sig := c.Method + "("
	for i, p := range c.Params {
		if i > 0 {
			sig += ","
		}
		sig += p.Type
	}
	return sig + ")"
}

// RawBytes decodes RawData, returning an empty (non-nil) slice for "" or
// "0x" and a parse error for malformed hex.
func (c CallStep) RawBytes() ([]byte, error) {
	return primitives.ParseHexBytes(c.RawData)
}
