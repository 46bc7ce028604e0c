package errors

type ErrorCode string

const (
	CodeConfig     ErrorCode = "config_error"
	CodeInput      ErrorCode = "input_error"
	CodeValidation ErrorCode = "validation_error"
	CodeOutput     ErrorCode = "output_error"
	CodeLock       ErrorCode = "lock_error"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func New(code ErrorCode, message string, err error) ServiceError {
	return ServiceError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (se ServiceError) Error() string {
	if se.Err == nil {
		return se.Message
	}

	return se.Message + ": " + se.Err.Error()
}

func (se ServiceError) Unwrap() error {
	return se.Err
}
