// Package primitives provides the byte-level building blocks every other
// SafeLens package is built on: 20-byte addresses, 32-byte hashes, a
// fixed-width 256-bit big-endian integer, a strict hex codec, and
// keccak-256. Nothing here touches JSON or the network.
package primitives

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/safelens/safelens/errors"
)

// Address is a 20-byte Ethereum-style address.
type Address = common.Address

// Hash is a 32-byte digest.
type Hash = common.Hash

// ZeroAddress is the all-zero 20-byte address used for unset gas
// token/refund receiver fields.
var ZeroAddress = Address{}

// ParseAddress decodes a hex address (checksummed or lowercase) and
// reports whether it is well-formed: 40 hex digits, with or without a
// "0x" prefix.
func ParseAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return Address{}, errors.New(errors.CodeSchema, "not a well-formed 20-byte address: "+s, nil)
	}
	return common.HexToAddress(s), nil
}

// EqualAddress compares two address strings case-insensitively, per the
// data model's "case-insensitive compare" invariant on safeAddress/owner.
func EqualAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(a, "0x"), strings.TrimPrefix(b, "0x"))
}

// ParseHash decodes a hex 32-byte digest.
func ParseHash(s string) (Hash, error) {
	b, err := ParseHexBytes(s)
	if err != nil {
		return Hash{}, err
	}
	if len(b) != 32 {
		return Hash{}, errors.New(errors.CodeSchema, "expected 32 bytes, got "+itoa(len(b)), nil)
	}
	return common.BytesToHash(b), nil
}

// ParseHexBytes decodes an arbitrary-length "0x"-prefixed hex byte
// string. "0x" (or "") decodes to an empty (non-nil) slice.
func ParseHexBytes(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return []byte{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, errors.New(errors.CodeSchema, "malformed hex byte string: "+s, err)
	}
	return b, nil
}

// EncodeHex renders bytes as "0x"-prefixed lowercase hex, the report's
// canonical byte-string encoding.
func EncodeHex(b []byte) string {
	return hexutil.Encode(b)
}

// Keccak256 hashes the concatenation of its arguments.
func Keccak256(data ...[]byte) []byte {
	return crypto.Keccak256(data...)
}

// Keccak256Hash hashes the concatenation of its arguments into a Hash.
func Keccak256Hash(data ...[]byte) Hash {
	return crypto.Keccak256Hash(data...)
}

// LeftPad32 left-pads b to 32 bytes, truncating nothing (callers must
// ensure b is at most 32 bytes; EIP-712 encoding never produces longer
// fixed-width values).
func LeftPad32(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// U256 is a fixed-width, big-endian, unsigned 256-bit integer. It never
// exposes a floating-point path (spec §9 "Never expose a floating-point
// path").
type U256 struct {
	inner uint256.Int
}

// ParseU256Decimal parses a decimal string into a U256. It rejects
// leading zeros beyond a single "0" (spec §4.1) and values that overflow
// 256 bits.
func ParseU256Decimal(s string) (U256, error) {
	if s == "" {
		return U256{}, errors.New(errors.CodeSchema, "empty integer string", nil)
	}
	if len(s) > 1 && s[0] == '0' {
		return U256{}, errors.New(errors.CodeSchema, "leading zero not allowed in integer string: "+s, nil)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return U256{}, errors.New(errors.CodeSchema, "not a decimal integer: "+s, nil)
		}
	}
	var v uint256.Int
	if err := v.SetFromDecimal(s); err != nil {
		return U256{}, errors.New(errors.CodeSchema, "integer overflows 256 bits: "+s, err)
	}
	return U256{inner: v}, nil
}

// String renders the value back to a decimal string.
func (u U256) String() string {
	return u.inner.Dec()
}

// Bytes32 renders the value as a 32-byte big-endian array.
func (u U256) Bytes32() []byte {
	b := u.inner.Bytes32()
	return b[:]
}

// Uint64 returns the low 64 bits (callers must only use this where the
// value is known to fit, e.g. operation/nonce fields).
func (u U256) Uint64() uint64 {
	return u.inner.Uint64()
}

// IsZero reports whether the value is zero.
func (u U256) IsZero() bool {
	return u.inner.IsZero()
}

// Equal reports value equality.
func (u U256) Equal(other U256) bool {
	return u.inner.Eq(&other.inner)
}

// U256FromUint64 constructs a U256 from a native uint64.
func U256FromUint64(v uint64) U256 {
	var u uint256.Int
	u.SetUint64(v)
	return U256{inner: u}
}
