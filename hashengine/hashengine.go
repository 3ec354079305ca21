// Package hashengine recomputes the EIP-712 digest of a Safe transaction
// (spec §4.1): the domain separator, the SafeTx struct hash, and the
// final signing digest, returned together so the CLI can surface
// intermediate hashes for hardware-wallet verification.
package hashengine

import (
	"github.com/safelens/safelens/errors"
	"github.com/safelens/safelens/evidence"
	"github.com/safelens/safelens/primitives"
)

// domainTypeString is keccak256'd to produce the EIP712Domain type hash.
const domainTypeString = "EIP712Domain(uint256 chainId,address verifyingContract)"

// safeTxTypeString is keccak256'd to produce the SafeTx type hash.
const safeTxTypeString = "SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"

var (
	domainTypeHash = primitives.Keccak256([]byte(domainTypeString))
	safeTxTypeHash = primitives.Keccak256([]byte(safeTxTypeString))
)

// Digest holds the three hashes produced by recomputation (spec §4.1).
type Digest struct {
	DomainSeparator primitives.Hash
	MessageHash     primitives.Hash
	SafeTxHash      primitives.Hash
}

// DomainSeparator computes keccak256(domainTypeHash ‖ chainId(32 BE) ‖
// safeAddress(left-padded to 32)).
func DomainSeparator(chainID uint64, safeAddress primitives.Address) primitives.Hash {
	chainIDBytes := primitives.U256FromUint64(chainID).Bytes32()
	addrBytes := primitives.LeftPad32(safeAddress.Bytes())
	return primitives.Keccak256Hash(domainTypeHash, chainIDBytes, addrBytes)
}

// MessageHash computes the SafeTx struct hash described in spec §4.1 step
// 3, given the already-parsed numeric/byte fields of a SafeTx.
func MessageHash(tx *ParsedSafeTx) primitives.Hash {
	dataHash := primitives.Keccak256Hash(tx.Data)
	return primitives.Keccak256Hash(
		safeTxTypeHash,
		primitives.LeftPad32(tx.To.Bytes()),
		tx.Value.Bytes32(),
		dataHash[:],
		primitives.U256FromUint64(uint64(tx.Operation)).Bytes32(),
		tx.SafeTxGas.Bytes32(),
		tx.BaseGas.Bytes32(),
		tx.GasPrice.Bytes32(),
		primitives.LeftPad32(tx.GasToken.Bytes()),
		primitives.LeftPad32(tx.RefundReceiver.Bytes()),
		tx.Nonce.Bytes32(),
	)
}

// FinalDigest computes keccak256(0x19 ‖ 0x01 ‖ domainSeparator ‖
// messageHash), the hash actually signed by each owner.
func FinalDigest(domainSeparator, messageHash primitives.Hash) primitives.Hash {
	prefix := []byte{0x19, 0x01}
	return primitives.Keccak256Hash(prefix, domainSeparator[:], messageHash[:])
}

// ParsedSafeTx holds a SafeTx's fields parsed into fixed-width types,
// ready for struct hashing.
type ParsedSafeTx struct {
	To             primitives.Address
	Value          primitives.U256
	Data           []byte
	Operation      evidence.Operation
	SafeTxGas      primitives.U256
	BaseGas        primitives.U256
	GasPrice       primitives.U256
	GasToken       primitives.Address
	RefundReceiver primitives.Address
	Nonce          primitives.U256
}

// ParseSafeTx parses every numeric/address/byte field of a wire-format
// SafeTx, failing before any hashing if a field is malformed or overflows
// 256 bits (spec §4.1 "overflow fails the pipeline before hashing").
func ParseSafeTx(tx *evidence.SafeTx) (*ParsedSafeTx, error) {
	to, err := primitives.ParseAddress(tx.To)
	if err != nil {
		return nil, err
	}
	value, err := primitives.ParseU256Decimal(tx.Value)
	if err != nil {
		return nil, err
	}
	data, err := primitives.ParseHexBytes(tx.Data)
	if err != nil {
		return nil, err
	}
	safeTxGas, err := primitives.ParseU256Decimal(tx.SafeTxGas)
	if err != nil {
		return nil, err
	}
	baseGas, err := primitives.ParseU256Decimal(tx.BaseGas)
	if err != nil {
		return nil, err
	}
	gasPrice, err := primitives.ParseU256Decimal(tx.GasPrice)
	if err != nil {
		return nil, err
	}
	gasToken, err := primitives.ParseAddress(tx.GasToken)
	if err != nil {
		return nil, err
	}
	refundReceiver, err := primitives.ParseAddress(tx.RefundReceiver)
	if err != nil {
		return nil, err
	}
	nonce, err := primitives.ParseU256Decimal(tx.Nonce)
	if err != nil {
		return nil, err
	}
	return &ParsedSafeTx{
		To:             to,
		Value:          value,
		Data:           data,
		Operation:      tx.Operation,
		SafeTxGas:      safeTxGas,
		BaseGas:        baseGas,
		GasPrice:       gasPrice,
		GasToken:       gasToken,
		RefundReceiver: refundReceiver,
		Nonce:          nonce,
	}, nil
}

// Recompute parses, hashes, and compares a SafeTx against the evidence
// package's declared safeAddress/chainId/safeTxHash. Once the SafeTx
// fields parse, it returns the Digest it computed, even when the declared
// hash does not match, so the driver can continue producing the rest of
// the report (spec §4.6 step 2). The returned error is non-nil when a
// SafeTx field fails to parse (the Digest is then nil), when the declared
// hash is not a well-formed 32-byte hash, or when it does not match.
func Recompute(safeAddress primitives.Address, chainID uint64, tx *evidence.SafeTx, declaredSafeTxHash string) (*Digest, error) {
	parsed, err := ParseSafeTx(tx)
	if err != nil {
		return nil, err
	}
	domainSep := DomainSeparator(chainID, safeAddress)
	msgHash := MessageHash(parsed)
	final := FinalDigest(domainSep, msgHash)

	digest := &Digest{
		DomainSeparator: domainSep,
		MessageHash:     msgHash,
		SafeTxHash:      final,
	}

	declared, err := primitives.ParseHash(declaredSafeTxHash)
	if err != nil {
		return digest, err
	}
	if declared != final {
		return digest, errors.NewHashMismatchError(declared.Hex(), final.Hex())
	}
	return digest, nil
}
