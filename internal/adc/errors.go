package adc

import "codeberg.org/mutker/powermon/internal/errors"

const (
	// Acquisition Errors
	ErrReadFailed   = errors.ErrAcquisition
	ErrSampleRange  = errors.ErrSampleRange
	ErrDeviceClosed = errors.ErrorCode("adc_device_closed")

	// Lifecycle Errors
	ErrOpenFailed  = errors.ErrorCode("adc_open_failed")
	ErrCloseFailed = errors.ErrorCode("adc_close_failed")
	ErrUnsupported = errors.ErrorCode("adc_unsupported_platform")
	ErrBadChannel  = errors.ErrorCode("adc_invalid_channel")
)
