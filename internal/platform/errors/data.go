package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Metadata keys shared by the constructors below.
const (
	MetaKind     = "kind"
	MetaTag      = "tag"
	MetaExpected = "expected"
	MetaFound    = "found"
	MetaMissing  = "missing"
	MetaChain    = "chain"
	MetaLimit    = "limit"
	MetaKey      = "key"
	MetaSession  = "session"
)

// DoesNotExist reports that name was not found in the collection named by kind
// (tag, attribute, condition, modifier, equation or value).
func DoesNotExist(kind, name string) *Error {
	return WithMetadata(CodeDoesNotExist,
		fmt.Sprintf("%s %q does not exist", kind, name),
		map[string]string{MetaKind: kind, MetaTag: name},
	)
}

// ConflictingExpectedType reports that name resolved to a value of the wrong kind.
func ConflictingExpectedType(name, expected, found string) *Error {
	return WithMetadata(CodeConflictingExpectedType,
		fmt.Sprintf("%q: expected %s, found %s", name, expected, found),
		map[string]string{MetaTag: name, MetaExpected: expected, MetaFound: found},
	)
}

// InvalidState reports a request the current state cannot satisfy.
func InvalidState(message string) *Error {
	return New(CodeInvalidState, message)
}

// MissingTemplateValues reports the placeholders a template still needs.
func MissingTemplateValues(names []string) *Error {
	joined := strings.Join(names, ",")
	return WithMetadata(CodeTemplate,
		"missing template values: "+joined,
		map[string]string{MetaMissing: joined},
	)
}

// CyclicReference reports that resolving name led back to itself.
func CyclicReference(name string, chain []string) *Error {
	joined := strings.Join(chain, " -> ")
	return WithMetadata(CodeCyclicReference,
		fmt.Sprintf("cyclic reference to %q: %s", name, joined),
		map[string]string{MetaTag: name, MetaChain: joined},
	)
}

// DepthExceeded reports that resolving name nested deeper than limit.
func DepthExceeded(name string, limit int) *Error {
	return WithMetadata(CodeDepthExceeded,
		fmt.Sprintf("resolving %q exceeded depth %d", name, limit),
		map[string]string{MetaTag: name, MetaLimit: strconv.Itoa(limit)},
	)
}

// MalformedJSON reports a wire payload that does not have the expected shape.
// key may be empty when the problem is the root value.
func MalformedJSON(key, message string) *Error {
	msg := "malformed json: " + message
	if key != "" {
		msg = fmt.Sprintf("malformed json at %q: %s", key, message)
	}
	return WithMetadata(CodeMalformedJSON, msg, map[string]string{MetaKey: key})
}

// CodeOf returns the Code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether err wraps an *Error with the given code.
func HasCode(err error, code Code) bool {
	return stderrors.Is(err, &Error{Code: code})
}
