package telemetry

import "codeberg.org/mutker/powermon/internal/errors"

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)

// Config describes where readings are persisted and how often the
// buffer is flushed (in records).
type Config struct {
	Path          string
	FlushInterval int
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Path == "" {
		return errFactory.New(ErrInvalidPath)
	}
	if c.FlushInterval < 1 {
		return errFactory.WithData(ErrInvalidConfig, c.FlushInterval)
	}

	return nil
}
