// Package errors provides structured error handling for the formula engine.
//
// Every failure surfaced by the engine is an *Error carrying a Code. Lookup
// failures record which collection was searched and which tag was missing in
// Metadata so a serving layer can render a validation message without parsing
// strings.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Lookup errors
	CodeDoesNotExist            Code = "DOES_NOT_EXIST"
	CodeConflictingExpectedType Code = "CONFLICTING_EXPECTED_TYPE"
	CodeInvalidState            Code = "INVALID_STATE"

	// Formula errors
	CodeTagParse     Code = "TAG_PARSE"
	CodeTokenization Code = "TOKENIZATION"
	CodeSyntax       Code = "SYNTAX"
	CodeParsing      Code = "PARSING"
	CodeEvaluation   Code = "EVALUATION"
	CodeTemplate     Code = "TEMPLATE"

	// Resolution guard errors
	CodeCyclicReference Code = "CYCLIC_REFERENCE"
	CodeDepthExceeded   Code = "DEPTH_EXCEEDED"

	// Wire errors
	CodeMalformedJSON Code = "MALFORMED_JSON"

	// Session errors
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"
	CodeSessionLimit    Code = "SESSION_LIMIT"
	CodeStorage         Code = "STORAGE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - rule content the caller authored is malformed
	case CodeTagParse,
		CodeTokenization,
		CodeSyntax,
		CodeParsing,
		CodeMalformedJSON,
		CodeConflictingExpectedType,
		CodeEvaluation:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeTemplate,
		CodeInvalidState,
		CodeCyclicReference,
		CodeDepthExceeded:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeDoesNotExist,
		CodeSessionNotFound:
		return codes.NotFound

	case CodeSessionLimit:
		return codes.ResourceExhausted

	case CodeStorage:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}
