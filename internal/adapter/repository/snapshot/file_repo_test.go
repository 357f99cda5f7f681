package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

func TestFileRepository_MissingFileIsEmpty(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "portfolio_data.txt"), zerolog.Nop())

	dir, err := repo.Load(context.Background(), listed)

	require.NoError(t, err)
	assert.Equal(t, 0, dir.Len())
}

func TestFileRepository_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portfolio_data.txt")
	repo := NewFileRepository(path, zerolog.Nop())
	original := newTestDirectory(t)

	require.NoError(t, repo.Save(ctx, original))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, encodeString(t, original), string(raw))

	restored, err := repo.Load(ctx, listed)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, restored.Usernames())
	alice, _ := restored.Get("alice")
	assert.True(t, decimal.NewFromInt(7900).Equal(alice.Portfolio.CashBalance))
	assert.Equal(t, domain.Holdings{"AAPL": 10, "MSFT": 2}, alice.Portfolio.Holdings)
	assert.Equal(t, 2, alice.Log.Len())
}

func TestFileRepository_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portfolio_data.txt")
	repo := NewFileRepository(path, zerolog.Nop())

	require.NoError(t, repo.Save(ctx, newTestDirectory(t)))
	require.NoError(t, repo.Save(ctx, domain.NewDirectory()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestFileRepository_TruncatedFileKeepsCompleteRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio_data.txt")
	content := "USER:alice\nCASH:100\nHOLDINGS:\nTRANSACTIONS:\nEND_USER\nUSER:bob\nCASH:5\nHOLD"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	dir, err := NewFileRepository(path, zerolog.Nop()).Load(context.Background(), listed)

	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, dir.Usernames())
}

func TestFileRepository_UnwritablePath(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing", "portfolio_data.txt"), zerolog.Nop())

	err := repo.Save(context.Background(), newTestDirectory(t))

	assert.ErrorIs(t, err, domain.ErrPersistenceIO)
}

func TestFileRepository_UnreadablePath(t *testing.T) {
	// A directory cannot be decoded as a snapshot
	repo := NewFileRepository(t.TempDir(), zerolog.Nop())

	_, err := repo.Load(context.Background(), listed)

	assert.ErrorIs(t, err, domain.ErrPersistenceIO)
}

func TestFileRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "portfolio_data.txt"), zerolog.Nop())

	assert.ErrorIs(t, repo.Save(ctx, domain.NewDirectory()), context.Canceled)
	_, err := repo.Load(ctx, listed)
	assert.ErrorIs(t, err, context.Canceled)
}
