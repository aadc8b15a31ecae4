package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nexus-orchestrator/core/internal/agent"
)

// ProviderError represents a structured error from an LLM provider. It
// captures context needed for the retry/key-rotation/failover cascade
// (§4.8 step 7) and for debugging, and classifies itself directly into
// agent.ErrorKind so CycleHandler never has to know about provider-specific
// error shapes or status codes.
type ProviderError struct {
	// Kind is the classification CycleHandler's failure policy dispatches on.
	Kind agent.ErrorKind

	// Provider is the name of the provider (e.g., "anthropic", "openai").
	Provider string

	// Model is the model that was requested.
	Model string

	// Status is the HTTP status code, if applicable.
	Status int

	// Code is the provider-specific error code.
	Code string

	// Message is the human-readable error message.
	Message string

	// RequestID is the provider's request ID for debugging.
	RequestID string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))

	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}

	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}

	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, " ")
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new ProviderError with the given parameters.
func NewProviderError(provider, model string, cause error) *ProviderError {
	err := &ProviderError{
		Provider: provider,
		Model:    model,
		Cause:    cause,
		Kind:     agent.ErrProviderInternal,
	}

	if cause != nil {
		err.Message = cause.Error()
		err.Kind = ClassifyError(cause)
	}

	return err
}

// WithStatus adds HTTP status to the error and reclassifies if needed.
func (e *ProviderError) WithStatus(status int) *ProviderError {
	e.Status = status
	e.Kind = classifyStatusCode(status)
	return e
}

// WithCode adds a provider-specific error code.
func (e *ProviderError) WithCode(code string) *ProviderError {
	e.Code = code
	if kind, ok := classifyErrorCode(code); ok {
		e.Kind = kind
	}
	return e
}

// WithRequestID adds the provider's request ID.
func (e *ProviderError) WithRequestID(id string) *ProviderError {
	e.RequestID = id
	return e
}

// WithMessage sets the error message.
func (e *ProviderError) WithMessage(msg string) *ProviderError {
	e.Message = msg
	return e
}

// ClassifyError inspects a raw SDK error and returns the agent.ErrorKind
// CycleHandler's failure policy dispatches on, pattern-matching the message
// text since most provider SDKs surface errors as plain strings/HTTP bodies
// rather than typed error values.
func ClassifyError(err error) agent.ErrorKind {
	if err == nil {
		return agent.ErrProviderInternal
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "deadline exceeded"),
		strings.Contains(errStr, "context deadline"),
		strings.Contains(errStr, "etimedout"):
		return agent.ErrTransientNetwork

	case strings.Contains(errStr, "rate limit"),
		strings.Contains(errStr, "rate_limit"),
		strings.Contains(errStr, "too many requests"),
		strings.Contains(errStr, "429"):
		return agent.ErrRateLimited

	case strings.Contains(errStr, "unauthorized"),
		strings.Contains(errStr, "invalid api key"),
		strings.Contains(errStr, "invalid_api_key"),
		strings.Contains(errStr, "authentication"),
		strings.Contains(errStr, "401"),
		strings.Contains(errStr, "403"),
		strings.Contains(errStr, "billing"),
		strings.Contains(errStr, "payment"),
		strings.Contains(errStr, "quota"),
		strings.Contains(errStr, "insufficient"),
		strings.Contains(errStr, "402"):
		return agent.ErrAuthFailed

	case strings.Contains(errStr, "model not found"),
		strings.Contains(errStr, "model_not_found"),
		strings.Contains(errStr, "does not exist"),
		strings.Contains(errStr, "unavailable"):
		return agent.ErrModelUnavailable

	case strings.Contains(errStr, "content_filter"),
		strings.Contains(errStr, "content policy"),
		strings.Contains(errStr, "safety"),
		strings.Contains(errStr, "blocked"):
		return agent.ErrInvalidRequest

	case strings.Contains(errStr, "internal server"),
		strings.Contains(errStr, "server error"),
		strings.Contains(errStr, "500"),
		strings.Contains(errStr, "502"),
		strings.Contains(errStr, "503"),
		strings.Contains(errStr, "504"):
		return agent.ErrProviderInternal

	default:
		return agent.ErrProviderInternal
	}
}

// classifyStatusCode returns an agent.ErrorKind based on HTTP status code.
func classifyStatusCode(status int) agent.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusPaymentRequired:
		return agent.ErrAuthFailed
	case status == http.StatusTooManyRequests:
		return agent.ErrRateLimited
	case status == http.StatusBadRequest:
		return agent.ErrInvalidRequest
	case status == http.StatusNotFound:
		return agent.ErrModelUnavailable
	case status >= 500:
		return agent.ErrProviderInternal
	default:
		return agent.ErrProviderInternal
	}
}

// classifyErrorCode returns an agent.ErrorKind based on a provider-specific
// error code, and false when code carries no known classification (so
// WithCode can leave an already-classified Kind, e.g. from WithStatus, alone).
func classifyErrorCode(code string) (agent.ErrorKind, bool) {
	switch strings.ToLower(code) {
	case "rate_limit_error", "rate_limit_exceeded":
		return agent.ErrRateLimited, true
	case "authentication_error", "invalid_api_key", "billing_error", "insufficient_quota":
		return agent.ErrAuthFailed, true
	case "model_not_found", "model_not_available":
		return agent.ErrModelUnavailable, true
	case "content_policy_violation", "content_filter", "invalid_request_error":
		return agent.ErrInvalidRequest, true
	case "server_error", "internal_error":
		return agent.ErrProviderInternal, true
	default:
		return agent.ErrProviderInternal, false
	}
}

// IsProviderError checks if an error is a ProviderError.
func IsProviderError(err error) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr)
}

// GetProviderError extracts a ProviderError from an error chain.
func GetProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}

// IsRetryable checks if an error should be retried against the same
// provider/model.
func IsRetryable(err error) bool {
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr.Kind.IsRetryable()
	}
	return ClassifyError(err).IsRetryable()
}

// ShouldFailover checks if an error warrants trying a different model.
func ShouldFailover(err error) bool {
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr.Kind.ShouldFailover()
	}
	return ClassifyError(err).ShouldFailover()
}

// AsStreamError converts a raw SDK error (or a ProviderError already run
// through ClassifyError/WithStatus/WithCode) into the terminal StreamError
// every LLMProvider adapter's Stream/Ping returns on failure (§4.4).
func AsStreamError(provider string, err error) *agent.StreamError {
	if err == nil {
		return nil
	}
	kind := ClassifyError(err)
	if pe, ok := GetProviderError(err); ok {
		kind = pe.Kind
	}
	return &agent.StreamError{
		Kind:      kind,
		Retryable: kind.IsRetryable(),
		Detail:    err.Error(),
		Err:       err,
	}
}
