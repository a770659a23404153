// Package registry holds the failure taxonomy shared by the registry lookup packages
// (authentication, company lookup, payload normalization) and the classifier that
// reduces any of those failures to an outcome the HTTP layer can act on.
package registry

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory defines the normalized failure taxonomy.
type ErrorCategory string

const (
	// CategoryAuthentication: credentials rejected or malformed login response.
	CategoryAuthentication ErrorCategory = "authentication"

	// CategoryUpstreamHTTP: the registry answered with a non-2xx status.
	CategoryUpstreamHTTP ErrorCategory = "upstream_http"

	// CategoryTransport: the request was sent but no response arrived.
	CategoryTransport ErrorCategory = "transport"

	// CategoryNotFound: the registry answered but holds no formality for the number.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryBadData: the payload has no person-type discriminator.
	CategoryBadData ErrorCategory = "bad_data"

	// CategoryInternal: anything else.
	CategoryInternal ErrorCategory = "internal"
)

// Error wraps registry failures with normalized categorization.
type Error struct {
	Category ErrorCategory
	Op       string // "login", "lookup", "normalize"
	Message  string
	Status   int    // upstream HTTP status, CategoryUpstreamHTTP only
	Body     []byte // upstream body, verbatim
	// ContentType is the upstream Content-Type header, relayed with Body.
	ContentType string
	Underlying  error
	Retryable   bool
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("registry %s [%s]: %s", e.Op, e.Category, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Underlying != nil {
		return msg + ": " + e.Underlying.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches the package sentinels by category so that errors.Is(err, ErrNoData)
// holds for any not-found registry error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" {
		return false
	}
	return e.Category == t.Category
}

// Sentinels for errors.Is checks. They carry no Op, which is how Is tells them apart.
var (
	ErrNoData           = &Error{Category: CategoryNotFound, Message: "no data found for registration number"}
	ErrMalformedPayload = &Error{Category: CategoryBadData, Message: "payload is neither a physical nor a moral person"}
	ErrAuthentication   = &Error{Category: CategoryAuthentication, Message: "authentication failed"}
)

// NewError creates a categorized registry error.
func NewError(category ErrorCategory, op, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Op:         op,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == CategoryTransport,
	}
}

// NewUpstreamError records a non-2xx registry answer. 5xx and 429 are retryable.
func NewUpstreamError(op string, status int, body []byte) *Error {
	return &Error{
		Category:  CategoryUpstreamHTTP,
		Op:        op,
		Message:   "unexpected registry status",
		Status:    status,
		Body:      body,
		Retryable: status >= http.StatusInternalServerError || status == http.StatusTooManyRequests,
	}
}

// WithContentType records the media type the registry declared for Body.
func (e *Error) WithContentType(contentType string) *Error {
	e.ContentType = contentType
	return e
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return CategoryInternal
}

// OutcomeKind is what a caller of the lookup learns about a failure.
type OutcomeKind string

const (
	OutcomeUpstreamHTTP OutcomeKind = "upstream_http"
	OutcomeTransport    OutcomeKind = "transport"
	OutcomeUnknown      OutcomeKind = "unknown"
)

// Outcome is the classified form of a failure. Status, Body and ContentType are
// set only for OutcomeUpstreamHTTP and must be relayed to the caller unchanged.
type Outcome struct {
	Kind        OutcomeKind
	Status      int
	Body        []byte
	ContentType string
}

// Classify maps a failure from any stage of the lookup to an outcome.
// "No data" is not a failure and must be checked with errors.Is(err, ErrNoData)
// before calling Classify.
func Classify(err error) Outcome {
	var re *Error
	if !errors.As(err, &re) {
		return Outcome{Kind: OutcomeUnknown}
	}
	switch re.Category {
	case CategoryUpstreamHTTP:
		return Outcome{Kind: OutcomeUpstreamHTTP, Status: re.Status, Body: re.Body, ContentType: re.ContentType}
	case CategoryTransport:
		return Outcome{Kind: OutcomeTransport}
	default:
		return Outcome{Kind: OutcomeUnknown}
	}
}
