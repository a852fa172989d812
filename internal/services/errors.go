// Package services provides the business logic layer between the HTTP
// handlers and the detection pipeline: orchestration of fetches, rule
// evaluation, ML scoring, fusion and alert publishing.
package services

// Stable error codes the HTTP layer maps into the JSON error envelope.
const (
	// CodeInvalidConfig marks a severity map or tunable that failed
	// validation at service construction.
	CodeInvalidConfig = "INVALID_CONFIG"

	// CodeFetchFailed marks a failed time-series window fetch; the
	// analysis run aborts, nothing partial is returned.
	CodeFetchFailed = "FETCH_FAILED"
)

// ServiceError carries a stable machine-readable code alongside the
// human-readable message, plus optional structured details.
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Code + ": " + e.Message
}

// serviceError builds a ServiceError wrapping an underlying cause.
func serviceError(code, message string, cause error) *ServiceError {
	e := &ServiceError{Code: code, Message: message}
	if cause != nil {
		e.Details = map[string]interface{}{"error": cause.Error()}
	}
	return e
}
