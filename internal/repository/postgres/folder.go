package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mydrawer/mydrawer-server/internal/repository"
)

// FolderRepository implements repository.FolderRepository using PostgreSQL
type FolderRepository struct {
	db *sqlx.DB
}

// NewFolderRepository creates a new PostgreSQL folder repository
func NewFolderRepository(db *sqlx.DB) repository.FolderRepository {
	return &FolderRepository{db: db}
}

// Create creates a new folder
func (r *FolderRepository) Create(ctx context.Context, name string) (string, error) {
	id := uuid.New().String()
	query := "INSERT INTO folders (id, name, created_at) VALUES ($1, $2, $3)"
	_, err := r.db.ExecContext(ctx, query, id, name, time.Now())
	if err != nil {
		return "", err
	}
	return id, nil
}

// List returns all folders in sidebar order
func (r *FolderRepository) List(ctx context.Context) ([]repository.Folder, error) {
	var folders []repository.Folder
	query := "SELECT id, name, order_index, created_at FROM folders ORDER BY order_index ASC"
	err := r.db.SelectContext(ctx, &folders, query)
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// Rename renames a folder
func (r *FolderRepository) Rename(ctx context.Context, id string, name string) error {
	query := "UPDATE folders SET name = $1 WHERE id = $2"
	_, err := r.db.ExecContext(ctx, query, name, id)
	return err
}

// Delete removes a folder; conversations inside it drop back to the root
func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	query := "DELETE FROM folders WHERE id = $1"
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
