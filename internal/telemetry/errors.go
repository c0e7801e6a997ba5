package telemetry

import "codeberg.org/mutker/powermon/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidPath   = errors.ErrorCode("telemetry_invalid_path")

	// Storage Errors
	ErrPersistence  = errors.ErrPersistence
	ErrStorageInit  = errors.ErrorCode("telemetry_storage_init_failed")
	ErrStorageWrite = errors.ErrorCode("telemetry_storage_write_failed")
	ErrStorageSync  = errors.ErrorCode("telemetry_storage_sync_failed")
	ErrStorageClose = errors.ErrorCode("telemetry_storage_close_failed")
	ErrClosed       = errors.ErrorCode("telemetry_writer_closed")
)
