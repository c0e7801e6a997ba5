package errors

// ErrorCode identifies an error kind. The loop controller classifies fatal
// failures by code: ErrAcquisition, ErrPersistence and ErrInvalidConfig.
type ErrorCode string

// Error is a coded error carrying optional message, cause and data
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory creates coded errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
