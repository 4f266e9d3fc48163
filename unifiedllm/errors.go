package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// SDKError is the base error type for all backend errors.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ProviderError represents an error returned by an LLM provider.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	Retryable  bool
	RetryAfter *float64
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type AccessDeniedError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContentFilterError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }

// Non-provider errors.

type RequestTimeoutError struct{ SDKError }
type AbortError struct{ SDKError }
type NetworkError struct{ SDKError }
type ConfigurationError struct{ SDKError }

// InvalidResponseError reports a backend reply that could not be decoded.
type InvalidResponseError struct {
	SDKError
	Provider string
}

func newInvalidResponse(provider, msg string, cause error) *InvalidResponseError {
	return &InvalidResponseError{SDKError: SDKError{Message: msg, Cause: cause}, Provider: provider}
}

// ErrorFromStatusCode types a provider failure by its HTTP status.
// Statuses it does not know yield a retryable ProviderError.
func ErrorFromStatusCode(statusCode int, message, provider string, cause error, retryAfter *float64) error {
	p := ProviderError{
		SDKError:   SDKError{Message: message, Cause: cause},
		Provider:   provider,
		StatusCode: statusCode,
		RetryAfter: retryAfter,
	}

	switch statusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &InvalidRequestError{p}
	case http.StatusUnauthorized:
		return &AuthenticationError{p}
	case http.StatusForbidden:
		return &AccessDeniedError{p}
	case http.StatusNotFound:
		return &NotFoundError{p}
	case http.StatusRequestTimeout:
		return &RequestTimeoutError{p.SDKError}
	case http.StatusRequestEntityTooLarge:
		return &ContextLengthError{p}
	}

	p.Retryable = true
	switch statusCode {
	case http.StatusTooManyRequests:
		return &RateLimitError{p}
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &ServerError{p}
	}
	return &p
}

// retryable is implemented by every error type whose retry policy is
// fixed. ProviderError answers from its Retryable field.
type retryable interface {
	retryable() bool
}

func (e *ProviderError) retryable() bool        { return e.Retryable }
func (e *RateLimitError) retryable() bool       { return true }
func (e *ServerError) retryable() bool          { return true }
func (e *NetworkError) retryable() bool         { return true }
func (e *RequestTimeoutError) retryable() bool  { return true }
func (e *AbortError) retryable() bool           { return false }
func (e *ConfigurationError) retryable() bool   { return false }
func (e *InvalidResponseError) retryable() bool { return false }

// IsRetryable reports whether err is safe to retry. The outermost typed
// error in the chain decides; cancellation never retries and anything
// unrecognised does.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.retryable()
	}
	return true
}

// retryAfter returns the provider-suggested delay carried by a rate limit
// error, if any.
func retryAfter(err error) (float64, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter != nil {
		return *rl.RetryAfter, true
	}
	return 0, false
}

// messageRule recognises a failure by substrings of its lowercased
// message.
type messageRule struct {
	needles []string
	build   func(base ProviderError) error
}

var messageRules = []messageRule{
	{[]string{"401", "unauthorized", "invalid key", "invalid api key"}, func(p ProviderError) error {
		p.StatusCode = 401
		return &AuthenticationError{ProviderError: p}
	}},
	{[]string{"403", "forbidden"}, func(p ProviderError) error {
		p.StatusCode = 403
		return &AccessDeniedError{ProviderError: p}
	}},
	{[]string{"404", "not found"}, func(p ProviderError) error {
		p.StatusCode = 404
		return &NotFoundError{ProviderError: p}
	}},
	{[]string{"429", "rate limit"}, func(p ProviderError) error {
		p.StatusCode, p.Retryable = 429, true
		return &RateLimitError{ProviderError: p}
	}},
	{[]string{"context length", "too many tokens"}, func(p ProviderError) error {
		p.StatusCode = 413
		return &ContextLengthError{ProviderError: p}
	}},
	{[]string{"500", "internal server"}, func(p ProviderError) error {
		p.StatusCode, p.Retryable = 500, true
		return &ServerError{ProviderError: p}
	}},
	{[]string{"timeout"}, func(p ProviderError) error {
		return &RequestTimeoutError{SDKError: p.SDKError}
	}},
	{[]string{"connection refused", "no such host"}, func(p ProviderError) error {
		return &NetworkError{SDKError: p.SDKError}
	}},
	{[]string{"content filter", "safety"}, func(p ProviderError) error {
		return &ContentFilterError{ProviderError: p}
	}},
}

// classifyError types an error that carries no HTTP status, going by its
// message. Unmatched errors become a retryable ProviderError.
func classifyError(provider string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return &AbortError{SDKError: SDKError{Message: "request cancelled", Cause: err}}
	case errors.Is(err, context.DeadlineExceeded):
		return &RequestTimeoutError{SDKError: SDKError{Message: "request deadline exceeded", Cause: err}}
	}

	base := ProviderError{SDKError: SDKError{Message: err.Error(), Cause: err}, Provider: provider}
	msg := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		for _, needle := range rule.needles {
			if strings.Contains(msg, needle) {
				return rule.build(base)
			}
		}
	}
	base.Retryable = true
	return &base
}

// fromHTTPStatus builds a typed error from an SDK error that carries an HTTP
// status, honouring a Retry-After header when present.
func fromHTTPStatus(provider string, status int, header http.Header, err error) error {
	var after *float64
	if header != nil {
		if v, perr := strconv.ParseFloat(header.Get("Retry-After"), 64); perr == nil {
			after = &v
		}
	}
	return ErrorFromStatusCode(status, err.Error(), provider, err, after)
}
