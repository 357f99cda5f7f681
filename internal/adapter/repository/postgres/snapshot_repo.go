package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/simaogato/papertrade-backend/internal/adapter/repository/snapshot"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// snapshotRepository implements domain.DirectoryRepository.
// Each save stores the full text snapshot as one row and drops the older rows.
type snapshotRepository struct {
	db     *DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *DB, logger zerolog.Logger) domain.DirectoryRepository {
	return &snapshotRepository{
		db:     db,
		logger: logger.With().Str("snapshot", "postgres").Logger(),
		now:    time.Now,
	}
}

// Load decodes the most recent snapshot. No stored snapshot yields an empty directory.
func (r *snapshotRepository) Load(ctx context.Context, registry domain.StockRegistry) (*domain.Directory, error) {
	query := `
		SELECT body
		FROM portfolio_snapshots
		ORDER BY saved_at DESC
		LIMIT 1
	`

	var body string
	err := r.db.QueryRowContext(ctx, query).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Info().Msg("no existing snapshot found")
			return domain.NewDirectory(), nil
		}
		return nil, fmt.Errorf("%w: failed to get latest snapshot: %v", domain.ErrPersistenceIO, err)
	}

	dir, skipped, err := snapshot.Decode(strings.NewReader(body), registry, r.now())
	if err != nil {
		return nil, err
	}
	snapshot.LogSkipped(r.logger, skipped)

	r.logger.Info().Int("users", dir.Len()).Msg("snapshot loaded")
	return dir, nil
}

// Save stores the encoded directory and removes every older snapshot in one database transaction
func (r *snapshotRepository) Save(ctx context.Context, dir *domain.Directory) error {
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, dir); err != nil {
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrPersistenceIO, err)
	}
	defer dbTx.Rollback()

	id := uuid.New()
	insertQuery := `
		INSERT INTO portfolio_snapshots (id, saved_at, body)
		VALUES ($1, $2, $3)
	`
	if _, err := dbTx.ExecContext(ctx, insertQuery, id, r.now(), buf.String()); err != nil {
		return fmt.Errorf("%w: failed to insert snapshot: %v", domain.ErrPersistenceIO, err)
	}

	pruneQuery := `
		DELETE FROM portfolio_snapshots
		WHERE id <> $1
	`
	if _, err := dbTx.ExecContext(ctx, pruneQuery, id); err != nil {
		return fmt.Errorf("%w: failed to prune snapshots: %v", domain.ErrPersistenceIO, err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit snapshot: %v", domain.ErrPersistenceIO, err)
	}

	r.logger.Debug().Str("id", id.String()).Int("users", dir.Len()).Msg("snapshot saved")
	return nil
}
