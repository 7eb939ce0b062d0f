package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/dbx"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
)

// PostgresRepository implements the file catalog over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new catalog record.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, user_id, display_name, storage_key, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.UserID, file.DisplayName, file.StorageKey, file.ContentType, file.Size, file.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the record with the given id, or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := ` SELECT id, user_id, display_name, storage_key, content_type, size_bytes, created_at from files
		WHERE id=$1
		`
	result := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&result.ID, &result.UserID, &result.DisplayName, &result.StorageKey, &result.ContentType, &result.Size, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return result, nil
}

// ListByOwner returns all records owned by userID, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, userID string) ([]*models.File, error) {
	query := ` SELECT id, user_id, display_name, storage_key, content_type, size_bytes, created_at from files
		WHERE user_id=$1 ORDER BY created_at DESC
		`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var item models.File
		err := rows.Scan(&item.ID, &item.UserID, &item.DisplayName, &item.StorageKey, &item.ContentType, &item.Size, &item.CreatedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindByStorageKey returns the record addressing storageKey, or
// common.ErrorNotFound.
func (r *PostgresRepository) FindByStorageKey(ctx context.Context, storageKey string) (*models.File, error) {
	query := ` SELECT id, user_id, display_name, storage_key, content_type, size_bytes, created_at from files
		WHERE storage_key=$1
		`
	result := &models.File{}
	err := r.db.QueryRowContext(ctx, query, storageKey).Scan(
		&result.ID, &result.UserID, &result.DisplayName, &result.StorageKey, &result.ContentType, &result.Size, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return result, nil
}

// Delete removes the record with the given id. Exactly one row must be
// affected; zero rows maps to common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `delete from files where id=$1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	switch rowsAffected {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", rowsAffected)
	}
}
