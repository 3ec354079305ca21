// Package report renders a verifier.Report into its two external forms
// (spec §6): stable-ordered JSON (explicit field order, sorted map keys,
// 0x-prefixed lowercase hex) and a deterministic, labeled text report.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/safelens/safelens/sigverify"
	"github.com/safelens/safelens/verifier"
)

// jsonSignatureResult mirrors sigverify.Result with stable field order.
type jsonSignatureResult struct {
	Owner     string `json:"owner"`
	Scheme    string `json:"scheme"`
	Status    string `json:"status"`
	Recovered string `json:"recovered,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type jsonSignatures struct {
	Summary jsonSummary                    `json:"summary"`
	List    []jsonSignatureResult          `json:"list"`
	ByOwner map[string]jsonSignatureResult `json:"byOwner"`
}

type jsonSummary struct {
	Total       int `json:"total"`
	Valid       int `json:"valid"`
	Invalid     int `json:"invalid"`
	Unsupported int `json:"unsupported"`
}

type jsonWarning struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type jsonSource struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Trust  string `json:"trust"`
}

type jsonCallStep struct {
	Index     int    `json:"index"`
	To        string `json:"to"`
	Value     string `json:"value"`
	Operation string `json:"operation"`
	Method    string `json:"method,omitempty"`
	RawData   string `json:"rawData"`
	Selector  string `json:"selectorOutcome"`
}

type jsonInterpretation struct {
	ID       string                 `json:"id"`
	Protocol string                 `json:"protocol"`
	Action   string                 `json:"action"`
	Severity string                 `json:"severity"`
	Summary  string                 `json:"summary"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// jsonReport's field order is the stable order mandated by spec §6:
// {ok, safeTxHash, chainId, safeAddress, proposer, signatures, warnings,
// sources, calls, interpretations}.
type jsonReport struct {
	OK              bool                 `json:"ok"`
	SafeTxHash      string               `json:"safeTxHash"`
	ChainID         uint64               `json:"chainId"`
	SafeAddress     string               `json:"safeAddress"`
	Proposer        string               `json:"proposer,omitempty"`
	Signatures      jsonSignatures       `json:"signatures"`
	Warnings        []jsonWarning        `json:"warnings"`
	Sources         []jsonSource         `json:"sources"`
	Calls           []jsonCallStep       `json:"calls"`
	Interpretations []jsonInterpretation `json:"interpretations"`
}

func toJSONSignature(r sigverify.Result) jsonSignatureResult {
	return jsonSignatureResult{
		Owner:     r.Owner,
		Scheme:    string(r.Scheme),
		Status:    string(r.Status),
		Recovered: r.Recovered,
		Reason:    r.Reason,
	}
}

func toJSON(rep *verifier.Report) jsonReport {
	list := make([]jsonSignatureResult, 0, len(rep.SignatureList))
	for _, r := range rep.SignatureList {
		list = append(list, toJSONSignature(r))
	}
	byOwner := make(map[string]jsonSignatureResult, len(rep.SignatureByOwner))
	for k, v := range rep.SignatureByOwner {
		byOwner[k] = toJSONSignature(v)
	}

	warnings := make([]jsonWarning, 0, len(rep.Warnings))
	for _, w := range rep.Warnings {
		warnings = append(warnings, jsonWarning{Level: w.Level, Message: w.Message})
	}

	sources := make([]jsonSource, 0, len(rep.Sources))
	for _, s := range rep.Sources {
		sources = append(sources, jsonSource{ID: s.ID, Status: string(s.Status), Trust: s.Trust})
	}

	calls := make([]jsonCallStep, 0, len(rep.Calls))
	for _, c := range rep.Calls {
		calls = append(calls, jsonCallStep{
			Index:     c.Step.Index,
			To:        c.Step.To,
			Value:     c.Step.Value,
			Operation: c.Step.Operation.String(),
			Method:    c.Step.Method,
			RawData:   c.Step.RawData,
			Selector:  string(c.SelectorOutcome),
		})
	}

	interps := make([]jsonInterpretation, 0, len(rep.Interpretations))
	for _, it := range rep.Interpretations {
		interps = append(interps, jsonInterpretation{
			ID:       it.ID,
			Protocol: it.Protocol,
			Action:   it.Action,
			Severity: string(it.Severity),
			Summary:  it.Summary,
			Details:  it.Details,
		})
	}

	proposer := ""
	if rep.HasProposer {
		proposer = rep.Proposer
	}

	return jsonReport{
		OK:          rep.OK,
		SafeTxHash:  rep.SafeTxHash,
		ChainID:     rep.ChainID,
		SafeAddress: rep.SafeAddress,
		Proposer:    proposer,
		Signatures: jsonSignatures{
			Summary: jsonSummary{
				Total:       rep.SignatureSummary.Total,
				Valid:       rep.SignatureSummary.Valid,
				Invalid:     rep.SignatureSummary.Invalid,
				Unsupported: rep.SignatureSummary.Unsupported,
			},
			List:    list,
			ByOwner: byOwner,
		},
		Warnings:        warnings,
		Sources:         sources,
		Calls:           calls,
		Interpretations: interps,
	}
}

// MarshalJSON renders rep as stable-ordered JSON: the field order above,
// map keys sorted (encoding/json already sorts map[string]... keys), hex
// byte strings already 0x-lowercase from their producing packages.
func MarshalJSON(rep *verifier.Report) ([]byte, error) {
	return json.Marshal(toJSON(rep))
}

// MarshalIndentJSON renders rep the same way, indented for human reading.
func MarshalIndentJSON(rep *verifier.Report) ([]byte, error) {
	return json.MarshalIndent(toJSON(rep), "", "  ")
}

// WriteText renders rep as the deterministic, labeled text report
// described in spec §6.
func WriteText(w *bytes.Buffer, rep *verifier.Report) {
	if rep.OK {
		fmt.Fprintln(w, "Evidence verified.")
	} else {
		fmt.Fprintln(w, "Evidence verification FAILED.")
	}
	fmt.Fprintf(w, "Safe address:   %s\n", rep.SafeAddress)
	fmt.Fprintf(w, "Chain ID:       %d\n", rep.ChainID)
	fmt.Fprintf(w, "SafeTx hash:    %s\n", rep.SafeTxHash)
	if rep.DomainSeparator != "" {
		fmt.Fprintf(w, "Domain sep:     %s\n", rep.DomainSeparator)
		fmt.Fprintf(w, "Message hash:   %s\n", rep.MessageHash)
	}
	if rep.HasProposer {
		fmt.Fprintf(w, "Proposer:       %s\n", rep.Proposer)
	}

	fmt.Fprintf(w, "\nSignatures (%d total: %d valid, %d invalid, %d unsupported):\n",
		rep.SignatureSummary.Total, rep.SignatureSummary.Valid, rep.SignatureSummary.Invalid, rep.SignatureSummary.Unsupported)
	for _, s := range rep.SignatureList {
		fmt.Fprintf(w, "  - %s  scheme=%s  status=%s", s.Owner, s.Scheme, s.Status)
		if s.Reason != "" {
			fmt.Fprintf(w, "  (%s)", s.Reason)
		}
		fmt.Fprintln(w)
	}

	if len(rep.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, wmsg := range rep.Warnings {
			fmt.Fprintf(w, "  [%s] %s\n", strings.ToUpper(wmsg.Level), wmsg.Message)
		}
	}

	if len(rep.Calls) > 0 {
		fmt.Fprintln(w, "\nExecution:")
		for _, c := range rep.Calls {
			writeCallLine(w, c)
		}
	}

	if len(rep.Interpretations) > 0 {
		fmt.Fprintln(w, "\nInterpretations:")
		for _, it := range rep.Interpretations {
			fmt.Fprintf(w, "  [%s/%s] %s: %s\n", it.Protocol, it.Severity, it.Action, it.Summary)
		}
	}

	fmt.Fprintln(w, "\nSources:")
	ids := make([]string, 0, len(rep.Sources))
	byID := map[string]verifier.SourceEntry{}
	for _, s := range rep.Sources {
		ids = append(ids, s.ID)
		byID[s.ID] = s
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := byID[id]
		fmt.Fprintf(w, "  %-28s %-10s trust=%s\n", s.ID, s.Status, s.Trust)
	}
}

func writeCallLine(w *bytes.Buffer, c verifier.CallReport) {
	method := c.Step.Method
	if method == "" {
		method = "(raw)"
	}
	fmt.Fprintf(w, "  #%d  %s  method=%s  to=%s  value=%s wei  selector=%s\n",
		c.Step.Index, c.Step.Operation, method, c.Step.To, c.Step.Value, c.SelectorOutcome)
}

// Text renders rep to a string via WriteText.
func Text(rep *verifier.Report) string {
	var buf bytes.Buffer
	WriteText(&buf, rep)
	return buf.String()
}
