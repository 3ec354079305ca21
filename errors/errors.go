// Package errors defines SafeLens's structured error taxonomy.
//
// Every error surfaced by the verification pipeline carries a stable Code
// so that CLI and machine consumers can switch on failure kind without
// parsing messages. No panics cross package boundaries: every fallible
// operation returns (value, error).
package errors

import "fmt"

// Code identifies the taxonomy a SafeLensError belongs to (see spec §7).
type Code string

const (
	CodeSchema           Code = "SchemaError"
	CodeHashMismatch     Code = "HashRecomputeMismatch"
	CodeSignatureInvalid Code = "SignatureInvalid"
	CodeUnsupportedSig   Code = "SignatureUnsupported"
	CodeSelectorMismatch Code = "SelectorMismatch"
	CodeIO               Code = "IoError"
	CodeInternal         Code = "InternalError"
)

// SafeLensError is the single structured error type returned by every
// SafeLens package. Path is a dotted field path for schema errors (empty
// otherwise); it lets a caller point a user at the offending JSON field.
type SafeLensError struct {
	Code    Code
	Path    string
	Message string
	Err     error
}

func (e *SafeLensError) Error() string {
	prefix := string(e.Code)
	if e.Path != "" {
		prefix = fmt.Sprintf("%s[%s]", prefix, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *SafeLensError) Unwrap() error {
	return e.Err
}

// New builds a SafeLensError of the given code with no field path.
func New(code Code, message string, cause error) *SafeLensError {
	return &SafeLensError{Code: code, Message: message, Err: cause}
}

// NewSchemaError builds a path-qualified schema validation error.
func NewSchemaError(path, message string) *SafeLensError {
	return &SafeLensError{Code: CodeSchema, Path: path, Message: message}
}

// NewHashMismatchError reports a recomputed digest that disagrees with the
// evidence package's declared safeTxHash.
func NewHashMismatchError(declared, computed string) *SafeLensError {
	return &SafeLensError{
		Code:    CodeHashMismatch,
		Message: fmt.Sprintf("declared safeTxHash %s does not match recomputed %s", declared, computed),
	}
}

// NewSignatureInvalidError reports a recoverable signature whose recovered
// signer does not match the claimed owner.
func NewSignatureInvalidError(owner, recovered string) *SafeLensError {
	return &SafeLensError{
		Code:    CodeSignatureInvalid,
		Message: fmt.Sprintf("owner %s: recovered signer %s does not match", owner, recovered),
	}
}

// NewSignatureUnsupportedError reports a signature scheme the verifier
// cannot check offline.
func NewSignatureUnsupportedError(owner, reason string) *SafeLensError {
	return &SafeLensError{
		Code:    CodeUnsupportedSig,
		Message: fmt.Sprintf("owner %s: %s", owner, reason),
	}
}

// NewSelectorMismatchError reports a call whose decoded method does not
// match its raw calldata prefix.
func NewSelectorMismatchError(index int, declaredMethod, rawPrefix string) *SafeLensError {
	return &SafeLensError{
		Code:    CodeSelectorMismatch,
		Message: fmt.Sprintf("call #%d: declared method %q does not match calldata prefix %s", index, declaredMethod, rawPrefix),
	}
}

// NewIOError wraps a filesystem/stdin failure encountered by the CLI layer.
func NewIOError(path string, cause error) *SafeLensError {
	return &SafeLensError{Code: CodeIO, Path: path, Message: "I/O failure", Err: cause}
}

// Is reports whether err is a SafeLensError of the given code, unwrapping
// as needed.
func Is(err error, code Code) bool {
	for err != nil {
		if sle, ok := err.(*SafeLensError); ok && sle.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
