package domain

import "context"

// DirectoryRepository defines the interface for snapshot persistence of the user directory
type DirectoryRepository interface {
	// Load restores the directory from the latest snapshot
	// A missing snapshot yields an empty directory, not an error
	// Holdings of symbols absent from registry are restored against zero-price placeholders
	Load(ctx context.Context, registry StockRegistry) (*Directory, error)

	// Save replaces the snapshot with the full contents of dir
	Save(ctx context.Context, dir *Directory) error
}
