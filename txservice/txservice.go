// Package txservice is a thin client for the hosted transaction service
// that a separate evidence-package generator queries to assemble a
// package (spec §1 "a separate generator assembles the package from a
// hosted transaction service"). It is the producer-side external
// collaborator whose interface the evidence package's `sources` field
// references; the verifier itself is network-free (spec §5) and never
// imports this package.
package txservice

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/safelens/safelens/errors"
	"github.com/safelens/safelens/evidence"
)

// Client is a minimal HTTP wrapper around a hosted Safe transaction
// service's REST API, grounded on the teacher's http.Client
// (http/client.go) request/response plumbing.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// NewClient constructs a Client. apiToken may be empty for anonymous,
// read-only endpoints.
func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiToken:   apiToken,
	}
}

// safeTxAPIResponse is the hosted service's wire shape for a pending or
// executed multisig transaction; it is reshaped into an
// evidence.EvidencePackage by FetchEvidencePackage.
type safeTxAPIResponse struct {
	Safe                  string                  `json:"safe"`
	SafeTxHash            string                  `json:"safeTxHash"`
	To                    string                  `json:"to"`
	Value                 string                  `json:"value"`
	Data                  string                  `json:"data"`
	Operation             evidence.Operation      `json:"operation"`
	SafeTxGas             string                  `json:"safeTxGas"`
	BaseGas               string                  `json:"baseGas"`
	GasPrice              string                  `json:"gasPrice"`
	GasToken              string                  `json:"gasToken"`
	RefundReceiver        string                  `json:"refundReceiver"`
	Nonce                 string                  `json:"nonce"`
	Confirmations         []evidence.Confirmation `json:"confirmations"`
	ConfirmationsRequired int                     `json:"confirmationsRequired"`
	TransactionHash       *string                 `json:"transactionHash"`
	DataDecoded           *evidence.DecodedCall   `json:"dataDecoded"`
}

// FetchEvidencePackage retrieves a multisig transaction by safeTxHash and
// reshapes it into an EvidencePackage ready for local verification. Not
// called by the verifier itself — provided for the producer side of the
// pipeline described in spec §1.
func (c *Client) FetchEvidencePackage(chainID uint64, safeTxHash string, packagedAt string) (*evidence.EvidencePackage, error) {
	path := "/api/v1/multisig-transactions/" + safeTxHash + "/"
	body, err := c.get(path)
	if err != nil {
		return nil, err
	}

	var resp safeTxAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.New(errors.CodeIO, "malformed transaction-service response", err)
	}

	return &evidence.EvidencePackage{
		Version:     evidence.SupportedVersion,
		SafeAddress: resp.Safe,
		SafeTxHash:  resp.SafeTxHash,
		ChainID:     chainID,
		Transaction: evidence.SafeTx{
			To:             resp.To,
			Value:          resp.Value,
			Data:           resp.Data,
			Operation:      resp.Operation,
			SafeTxGas:      resp.SafeTxGas,
			BaseGas:        resp.BaseGas,
			GasPrice:       resp.GasPrice,
			GasToken:       resp.GasToken,
			RefundReceiver: resp.RefundReceiver,
			Nonce:          resp.Nonce,
		},
		Confirmations:         resp.Confirmations,
		ConfirmationsRequired: resp.ConfirmationsRequired,
		EthereumTxHash:        resp.TransactionHash,
		DataDecoded:           resp.DataDecoded,
		Sources: evidence.Sources{
			SafeAPIURL:     c.baseURL,
			TransactionURL: c.baseURL + path,
		},
		PackagedAt: packagedAt,
	}, nil
}

func (c *Client) get(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.New(errors.CodeIO, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(errors.CodeIO, "transaction-service request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errors.CodeIO, "failed to read transaction-service response", err)
	}
	if resp.StatusCode >= 400 {
		return nil, errors.New(errors.CodeIO, "transaction-service returned an error status", nil)
	}
	return respBody, nil
}
