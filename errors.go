package siwe

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorKind identifies why a message was rejected. Every error returned by
// this package that is not a context or entropy failure is an *Error
// carrying one of these kinds.
type ErrorKind uint8

const (
	// MalformedMessage means the text does not follow the EIP-4361 layout.
	MalformedMessage ErrorKind = iota + 1
	// InvalidField means a single field failed its syntax rule. Error.Field names it.
	InvalidField
	// MalformedSession means fields required for verification are missing.
	// Error.Missing lists them.
	MalformedSession
	DomainMismatch
	NonceMismatch
	ExpiredMessage
	NotYetValid
	// InvalidSignature covers both recovery failures and a recovered signer
	// that differs from the message address.
	InvalidSignature
	NotImplemented
)

var kindNames = map[ErrorKind]string{
	MalformedMessage: "Malformed Message",
	InvalidField:     "Invalid Message",
	MalformedSession: "Malformed Session",
	DomainMismatch:   "Domain Mismatch",
	NonceMismatch:    "Nonce Mismatch",
	ExpiredMessage:   "Expired Message",
	NotYetValid:      "Message Not Yet Valid",
	InvalidSignature: "Invalid Signature",
	NotImplemented:   "Not Implemented",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// Error lets a kind be used as a target for errors.Is.
func (k ErrorKind) Error() string {
	return k.String()
}

type Error struct {
	Kind    ErrorKind
	Field   string
	Missing []string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("%s: missing %s", e.Kind, strings.Join(e.Missing, ", "))
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	kind, ok := target.(ErrorKind)
	return ok && kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func errMalformed(reason string) error {
	return &Error{Kind: MalformedMessage, Reason: reason}
}

func errInvalidField(field, reason string, cause error) error {
	return &Error{Kind: InvalidField, Field: field, Reason: reason, Err: cause}
}

func errInvalidFormat(field string, cause error) error {
	return errInvalidField(field, fmt.Sprintf("Invalid format for field `%s`", field), cause)
}
