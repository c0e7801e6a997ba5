package telemetry

import (
	"codeberg.org/mutker/powermon/internal/errors"
	"codeberg.org/mutker/powermon/internal/logger"
)

// Writer buffers encoded readings and hands them to the repository every
// FlushInterval records and on Close. Rows buffered since the last flush are
// lost if the process dies abruptly.
type Writer struct {
	repo     Repository
	cfg      Config
	buffer   [][]string
	recorded int
	written  int
	closed   bool
}

// NewService opens the CSV repository described by cfg and wraps it in a
// buffering Writer.
func NewService(cfg Config) (*Writer, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err
	}

	return NewWriter(repo, cfg)
}

func NewWriter(repo Repository, cfg Config) (*Writer, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	return &Writer{
		repo:   repo,
		cfg:    cfg,
		buffer: make([][]string, 0, cfg.FlushInterval),
	}, nil
}

func (w *Writer) Record(reading Reading) error {
	if w.closed {
		return errors.New().New(ErrClosed)
	}

	w.buffer = append(w.buffer, reading.Row())

	if len(w.buffer) >= w.cfg.FlushInterval {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	w.recorded++

	return nil
}

// Flush persists all buffered rows. On failure the rows stay buffered.
func (w *Writer) Flush() error {
	if len(w.buffer) == 0 {
		return nil
	}

	if err := w.repo.Append(w.buffer); err != nil {
		logger.Error().Err(err).Int("rows", len(w.buffer)).Msg("Failed to flush readings")
		if errors.HasCode(err, ErrPersistence) {
			return err
		}
		return errors.New().Wrap(ErrPersistence, err)
	}

	w.written += len(w.buffer)
	logger.Debug().
		Int("rows", len(w.buffer)).
		Int("written", w.written).
		Msg("Flushed readings")
	w.buffer = w.buffer[:0]

	return nil
}

// Close flushes whatever is buffered and releases the repository. The
// repository is closed even when the final flush fails.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	flushErr := w.Flush()
	closeErr := w.repo.Close()

	return errors.Join(flushErr, closeErr)
}

// Buffered returns the number of rows awaiting a flush
func (w *Writer) Buffered() int {
	return len(w.buffer)
}

// Written returns the number of rows persisted so far
func (w *Writer) Written() int {
	return w.written
}

// Recorded returns the number of Record calls that succeeded. A reading whose
// flush failed stays buffered but is not counted.
func (w *Writer) Recorded() int {
	return w.recorded
}
