package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// fileRepository implements domain.DirectoryRepository on a single text file
type fileRepository struct {
	path   string
	logger zerolog.Logger
	now    func() time.Time
}

// NewFileRepository creates a repository persisting to path
func NewFileRepository(path string, logger zerolog.Logger) domain.DirectoryRepository {
	return &fileRepository{
		path:   path,
		logger: logger.With().Str("snapshot", path).Logger(),
		now:    time.Now,
	}
}

// Load reads the snapshot file. A missing file yields an empty directory.
func (r *fileRepository) Load(ctx context.Context, registry domain.StockRegistry) (*domain.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Info().Msg("no existing snapshot found")
			return domain.NewDirectory(), nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrPersistenceIO, r.path, err)
	}
	defer f.Close()

	dir, skipped, err := Decode(f, registry, r.now())
	if err != nil {
		return nil, err
	}
	LogSkipped(r.logger, skipped)

	r.logger.Info().Int("users", dir.Len()).Msg("snapshot loaded")
	return dir, nil
}

// Save rewrites the whole snapshot file. The write is not atomic: a crash mid-write
// leaves a truncated file, which Load recovers from record by record.
func (r *fileRepository) Save(ctx context.Context, dir *domain.Directory) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrPersistenceIO, r.path, err)
	}

	if err := Encode(f, dir); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", domain.ErrPersistenceIO, r.path, err)
	}

	r.logger.Debug().Int("users", dir.Len()).Msg("snapshot saved")
	return nil
}

// LogSkipped reports every record Decode had to skip
func LogSkipped(logger zerolog.Logger, skipped []error) {
	for _, err := range skipped {
		var recordErr *RecordError
		if errors.As(err, &recordErr) {
			logger.Warn().
				Str("user", recordErr.Username).
				Int("line", recordErr.Line).
				Str("reason", recordErr.Reason).
				Msg("skipped malformed user record")
			continue
		}
		logger.Warn().Err(err).Msg("skipped malformed user record")
	}
}
