package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrConditionNotFound = &AppError{Code: "COND_001", Message: "condition not found"}

	ErrTreatmentNotFound = &AppError{Code: "TREAT_001", Message: "treatment not found"}
	ErrInvalidFrequency  = &AppError{Code: "TREAT_002", Message: "invalid treatment frequency"}
	ErrInvalidRating     = &AppError{Code: "TREAT_003", Message: "effectiveness rating must be between 1 and 10"}

	ErrCompletionNotFound = &AppError{Code: "COMP_001", Message: "completion not found"}
	ErrInvalidDate        = &AppError{Code: "COMP_002", Message: "date must be in YYYY-MM-DD format"}

	ErrProviderNotConfigured = &AppError{Code: "LLM_001", Message: "no LLM provider configured"}
	ErrProviderUnavailable   = &AppError{Code: "LLM_002", Message: "LLM provider unavailable"}
	ErrRateLimited           = &AppError{Code: "LLM_003", Message: "rate limit exceeded"}

	ErrSuggestionParse = &AppError{Code: "SUGG_001", Message: "failed to parse suggestion response"}

	ErrCorpusDisabled = &AppError{Code: "VEC_001", Message: "corpus search is disabled"}

	ErrUnauthorized = &AppError{Code: "AUTH_001", Message: "unauthorized"}
	ErrForbidden    = &AppError{Code: "AUTH_002", Message: "forbidden"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
