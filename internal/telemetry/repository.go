package telemetry

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"

	"codeberg.org/mutker/powermon/internal/errors"
	"codeberg.org/mutker/powermon/internal/logger"
)

type csvRepository struct {
	path string
	file *os.File
}

// NewRepository opens (or creates) the append-only CSV log at cfg.Path.
// A header row is written when the file is new or empty.
func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.Path == "" {
		return nil, errFactory.New(ErrInvalidPath)
	}

	logger.Debug().Str("path", cfg.Path).Msg("Opening readings log")

	if err := os.MkdirAll(filepath.Dir(cfg.Path), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrPersistence, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.Path,
			Error: err.Error(),
		}))
	}

	file, err := os.OpenFile(cfg.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, defaultFilePerm)
	if err != nil {
		return nil, errFactory.Wrap(ErrPersistence, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "open_file",
			Path:  cfg.Path,
			Error: err.Error(),
		}))
	}

	repo := &csvRepository{
		path: cfg.Path,
		file: file,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errFactory.Wrap(ErrPersistence, errFactory.Wrap(ErrStorageInit, err))
	}

	if info.Size() == 0 {
		if err := repo.Append([][]string{Header}); err != nil {
			file.Close()
			return nil, err
		}
		logger.Debug().Str("path", cfg.Path).Msg("Wrote readings log header")
	}

	return repo, nil
}

// Append writes rows and syncs them to disk before returning. Rows are
// encoded in full before the file is touched, so a failed call leaves no
// error state behind and can be retried.
func (r *csvRepository) Append(rows [][]string) error {
	errFactory := errors.New()

	var buf bytes.Buffer
	enc := csv.NewWriter(&buf)
	if err := enc.WriteAll(rows); err != nil {
		return errFactory.Wrap(ErrPersistence, errFactory.Wrap(ErrStorageWrite, err))
	}

	if _, err := r.file.Write(buf.Bytes()); err != nil {
		return errFactory.Wrap(ErrPersistence, errFactory.WithData(ErrStorageWrite, struct {
			Path  string
			Rows  int
			Error string
		}{
			Path:  r.path,
			Rows:  len(rows),
			Error: err.Error(),
		}))
	}

	if err := r.file.Sync(); err != nil {
		return errFactory.Wrap(ErrPersistence, errFactory.Wrap(ErrStorageSync, err))
	}

	return nil
}

func (r *csvRepository) Close() error {
	if err := r.file.Close(); err != nil {
		return errors.New().Wrap(ErrPersistence, errors.New().Wrap(ErrStorageClose, err))
	}

	return nil
}
