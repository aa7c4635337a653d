package types

// ErrorResponse represents an OpenAI-compatible error response.
// This is returned for all error conditions to ensure compatibility with
// OpenAI SDKs and tools.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	// See the ErrorType constants.
	Type string `json:"type"`

	// Param is the name of the parameter that caused the error (if applicable).
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error type constants matching OpenAI API specification.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeAuthentication indicates an authentication failure (401).
	ErrorTypeAuthentication = "authentication_error"

	// ErrorTypePermissionDenied indicates an authorization failure (403).
	ErrorTypePermissionDenied = "permission_denied"

	// ErrorTypeNotFound indicates a resource was not found (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeMethodNotAllowed indicates an unsupported method on a known path (405).
	ErrorTypeMethodNotAllowed = "method_not_allowed"

	// ErrorTypeRateLimitExceeded indicates too many requests (429).
	ErrorTypeRateLimitExceeded = "rate_limit_exceeded"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeBadGateway indicates a provider error (502).
	ErrorTypeBadGateway = "bad_gateway"

	// ErrorTypeServiceUnavailable indicates temporary unavailability (503).
	ErrorTypeServiceUnavailable = "service_unavailable"

	// ErrorTypeGatewayTimeout indicates a backend or handler timeout (504).
	ErrorTypeGatewayTimeout = "gateway_timeout"

	// ErrorTypeNotImplemented indicates a capability that did not load (501).
	ErrorTypeNotImplemented = "not_implemented"
)

// Error code constants for common error scenarios.
const (
	// CodeMissingField indicates a required field is missing.
	CodeMissingField = "missing_field"

	// CodeInvalidValue indicates a field has an invalid value.
	CodeInvalidValue = "invalid_value"

	// CodeInvalidJSON indicates the request body is not valid JSON.
	CodeInvalidJSON = "invalid_json"

	// CodeModelNotFound indicates the backend does not know the configured model.
	CodeModelNotFound = "model_not_found"

	// CodeProviderError indicates an error from the model binding.
	CodeProviderError = "provider_error"

	// CodeProviderTimeout indicates the model binding timed out.
	CodeProviderTimeout = "provider_timeout"

	// CodeProviderUnavailable indicates the model binding is unavailable.
	CodeProviderUnavailable = "provider_unavailable"

	// CodeCapabilityUnavailable indicates the route's model role is not configured.
	CodeCapabilityUnavailable = "capability_unavailable"

	// CodeMethodNotAllowed indicates the route does not accept the method.
	CodeMethodNotAllowed = "method_not_allowed"

	// CodeRequestTooLarge indicates the request payload is too large.
	CodeRequestTooLarge = "request_too_large"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewBadGatewayError creates an error response for binding errors (502).
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, "", CodeProviderError)
}

// NewServiceUnavailableError creates an error response for temporary unavailability (503).
func NewServiceUnavailableError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServiceUnavailable, "", CodeProviderUnavailable)
}

// NewGatewayTimeoutError creates an error response for timeouts (504).
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeGatewayTimeout, "", CodeProviderTimeout)
}

// NewNotImplementedError creates an error response for absent capabilities (501).
func NewNotImplementedError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeNotImplemented, "", CodeCapabilityUnavailable)
}

// NewNotFoundError creates an error response for unknown paths (404).
func NewNotFoundError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeNotFound, "", "")
}

// NewMethodNotAllowedError creates an error response for unsupported methods (405).
func NewMethodNotAllowedError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeMethodNotAllowed, "", CodeMethodNotAllowed)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return 400
	case ErrorTypeAuthentication:
		return 401
	case ErrorTypePermissionDenied:
		return 403
	case ErrorTypeNotFound:
		return 404
	case ErrorTypeMethodNotAllowed:
		return 405
	case ErrorTypeRateLimitExceeded:
		return 429
	case ErrorTypeServerError:
		return 500
	case ErrorTypeNotImplemented:
		return 501
	case ErrorTypeBadGateway:
		return 502
	case ErrorTypeServiceUnavailable:
		return 503
	case ErrorTypeGatewayTimeout:
		return 504
	default:
		return 500
	}
}
