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

	ErrInvalidSchedule = &AppError{Code: "SCHED_001", Message: "invalid schedule rule"}
	ErrNotScheduled    = &AppError{Code: "SCHED_002", Message: "medication not scheduled today"}

	ErrInvalidLogStatus   = &AppError{Code: "LOG_001", Message: "invalid log status"}
	ErrLogNotFound        = &AppError{Code: "LOG_002", Message: "log entry not found"}
	ErrMedicationNotFound = &AppError{Code: "MED_001", Message: "medication not found"}
	ErrInvalidMedication  = &AppError{Code: "MED_002", Message: "invalid medication"}

	ErrStoreUnavailable = &AppError{Code: "STORE_001", Message: "store temporarily unavailable"}

	ErrChannelNotConfigured = &AppError{Code: "CHAN_001", Message: "channel not configured"}
	ErrChannelUnavailable   = &AppError{Code: "CHAN_002", Message: "channel unavailable"}

	ErrUnauthorized   = &AppError{Code: "AUTH_001", Message: "unauthorized"}
	ErrForbidden      = &AppError{Code: "AUTH_002", Message: "forbidden"}
	ErrPremiumGated   = &AppError{Code: "AUTH_003", Message: "premium subscription required"}

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
