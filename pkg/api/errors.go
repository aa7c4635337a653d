package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"kestrel-hq/kestrel/pkg/api/types"
	"kestrel-hq/kestrel/pkg/completion"
	"kestrel-hq/kestrel/pkg/providers"
)

// MaxRequestBodySize bounds every JSON request body (10MB).
const MaxRequestBodySize = 10 * 1024 * 1024

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an OpenAI-compatible error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}

// validator is implemented by request bodies that check themselves.
type validator interface {
	Validate() error
}

// decodeJSON reads a bounded JSON body into dst and validates it when dst
// implements Validate.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > MaxRequestBodySize {
		return &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
			Code:    types.CodeRequestTooLarge,
			Param:   "body",
		}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}

	if v, ok := dst.(validator); ok {
		if err := v.Validate(); err != nil {
			var valErr *types.ValidationError
			if errors.As(err, &valErr) {
				return &RequestError{
					Message: valErr.Message,
					Code:    types.CodeInvalidValue,
					Param:   valErr.Field,
				}
			}
			return err
		}
	}
	return nil
}

// HandleError maps an error to an OpenAI-compatible error response: request
// errors become 400s, binding errors 4xx/5xx by kind, timeouts 504, and
// anything else a generic 500 that leaks no detail.
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	if errors.Is(err, completion.ErrEmptyRequest) {
		return types.NewInvalidRequestError(err.Error(), "segments", types.CodeMissingField)
	}

	var providerErr *providers.ProviderError
	if errors.As(err, &providerErr) {
		return handleProviderError(providerErr)
	}

	var authErr *providers.AuthError
	if errors.As(err, &authErr) {
		return types.NewBadGatewayError(authErr.Error())
	}

	var rateLimitErr *providers.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return types.NewErrorResponse(
			rateLimitErr.Error(),
			types.ErrorTypeRateLimitExceeded,
			"",
			"rate_limit_exceeded",
		)
	}

	var timeoutErr *providers.TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		return types.NewGatewayTimeoutError("Model request timed out")
	}

	var parseErr *providers.ParseError
	if errors.As(err, &parseErr) {
		return types.NewBadGatewayError(
			fmt.Sprintf("Failed to parse model response: %v", parseErr.Error()),
		)
	}

	var modelNotFoundErr *providers.ModelNotFoundError
	if errors.As(err, &modelNotFoundErr) {
		return types.NewBadGatewayError(modelNotFoundErr.Error())
	}

	return types.NewServerError(
		"An internal error occurred. Please try again later.",
	)
}

// handleProviderError maps the backend's HTTP status onto the client
// response. Credentials and model names are server configuration, so
// backend 401/403/404 surface as gateway errors, not client errors.
func handleProviderError(err *providers.ProviderError) *types.ErrorResponse {
	switch {
	case err.StatusCode == http.StatusTooManyRequests:
		return types.NewErrorResponse(
			fmt.Sprintf("Model backend rate limit exceeded (%s)", err.Provider),
			types.ErrorTypeRateLimitExceeded,
			"",
			"rate_limit_exceeded",
		)
	case err.StatusCode == http.StatusBadRequest:
		return types.NewInvalidRequestError(
			fmt.Sprintf("Invalid request to model backend (%s): %v", err.Provider, err.Message),
			"",
			types.CodeInvalidValue,
		)
	case err.StatusCode >= 400:
		return types.NewBadGatewayError(
			fmt.Sprintf("Model backend error (%s): %v", err.Provider, err.Message),
		)
	default:
		return types.NewServerError(
			fmt.Sprintf("Model backend error (%s): %v", err.Provider, err.Message),
		)
	}
}

// WriteJSONResponse writes data as a JSON response with statusCode.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}

// WriteErrorResponse writes an OpenAI-compatible error response with the
// status code of its error type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}
