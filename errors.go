package anchor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"text/template"
)

// ErrorKind identifies the category of a node failure. The set is closed:
// every error leaving a chain can be classified as exactly one kind.
type ErrorKind int

const (
	// KindModel covers a failed model or service call, and any failure that
	// has no more specific classification.
	KindModel ErrorKind = iota
	// KindRequest covers building or serializing a request to an external API.
	KindRequest
	// KindParse covers deserialization of a structured response.
	KindParse
	// KindEmptyResponse is returned when a model produced no content.
	KindEmptyResponse
	// KindInvalidInput covers malformed input handed to a node.
	KindInvalidInput
	// KindTemplate covers prompt template construction and rendering.
	KindTemplate
	// KindHTTP covers HTTP transport failures.
	KindHTTP
	// KindOpenAI covers errors reported by the OpenAI client.
	KindOpenAI
	// KindBedrock covers errors reported by the Bedrock client.
	KindBedrock
	// KindOpenSearch covers OpenSearch client configuration and transport.
	KindOpenSearch
	// KindOpenSearchInternal covers error responses returned by OpenSearch.
	KindOpenSearchInternal
)

var kindNames = map[ErrorKind]string{
	KindModel:              "model error",
	KindRequest:            "request error",
	KindParse:              "parse error",
	KindEmptyResponse:      "empty response",
	KindInvalidInput:       "invalid input",
	KindTemplate:           "template error",
	KindHTTP:               "http error",
	KindOpenAI:             "openai error",
	KindBedrock:            "bedrock error",
	KindOpenSearch:         "opensearch error",
	KindOpenSearchInternal: "opensearch returned error",
}

// String returns the human readable name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the single error type surfaced by chains. It is created at the
// point of failure and never modified afterwards.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Sentinel values for errors.Is checks. A sentinel matches any *Error of the
// same kind.
var (
	ErrModel              = &Error{Kind: KindModel}
	ErrRequest            = &Error{Kind: KindRequest}
	ErrParse              = &Error{Kind: KindParse}
	ErrEmptyResponse      = &Error{Kind: KindEmptyResponse}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrTemplate           = &Error{Kind: KindTemplate}
	ErrHTTP               = &Error{Kind: KindHTTP}
	ErrOpenAI             = &Error{Kind: KindOpenAI}
	ErrBedrock            = &Error{Kind: KindBedrock}
	ErrOpenSearch         = &Error{Kind: KindOpenSearch}
	ErrOpenSearchInternal = &Error{Kind: KindOpenSearchInternal}
)

// Construction errors. These are returned by builders, never by Process.
var (
	// ErrTypeMismatch is returned when adjacent stages of a dynamic chain
	// do not compose.
	ErrTypeMismatch = errors.New("anchor: type mismatch")

	// ErrEmptyChain is returned when building a chain without stages.
	ErrEmptyChain = errors.New("anchor: chain has no stages")
)

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates an error of the given kind with a formatted message.
// A %w verb in format is honored.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Message: wrapped.Error(), Err: errors.Unwrap(wrapped)}
}

// WrapError classifies err as kind. A nil err yields nil.
func WrapError(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Kind.String() + ": " + e.Message
	case e.Err != nil:
		return e.Kind.String() + ": " + e.Err.Error()
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the collaborator error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain. The second
// result is false when err is not part of the taxonomy.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Normalize converts err into the taxonomy. Errors that already carry an
// *Error are returned as is so that stage and branch context survives.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		execErr   template.ExecError
		urlErr    *url.Error
		netErr    net.Error
	)
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return &Error{Kind: KindRequest, Err: err}
	case errors.As(err, &execErr):
		return &Error{Kind: KindTemplate, Err: err}
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return &Error{Kind: KindHTTP, Err: err}
	default:
		return &Error{Kind: KindModel, Err: err}
	}
}

// StageError records which stage of a chain failed. Err is the normalized
// failure: an *Error, or for a nested chain or parallel node the inner
// *StageError or *BranchError. The *Error is always reachable through
// Unwrap, so errors.As and errors.Is see the kind.
type StageError struct {
	Index int
	Name  string
	Err   error
}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Index, e.Name, e.Err)
}

// Unwrap returns the stage failure.
func (e *StageError) Unwrap() error {
	return e.Err
}

// BranchError records which sibling of a ParallelNode failed.
type BranchError struct {
	Index int
	Name  string
	Err   error
}

// Error implements error.
func (e *BranchError) Error() string {
	return fmt.Sprintf("branch %d (%s): %v", e.Index, e.Name, e.Err)
}

// Unwrap returns the classified branch failure.
func (e *BranchError) Unwrap() error {
	return e.Err
}
