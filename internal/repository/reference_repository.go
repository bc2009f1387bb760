package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/katalog-materi-api/internal/models"
)

// ReferenceRepository provides CRUD over the four reference tables (brand,
// cluster, fitur, jenis). The table name comes from the ReferenceKind
// whitelist, never from user input.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository constructs a ReferenceRepository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// List returns reference entities ordered by name, optionally filtered by a
// case-insensitive substring match.
func (r *ReferenceRepository) List(ctx context.Context, kind models.ReferenceKind, filter models.ReferenceFilter) ([]models.ReferenceEntity, error) {
	query := fmt.Sprintf("SELECT id, name, created_at, updated_at FROM %s", kind.Table())
	args := []interface{}{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		query += " WHERE name ILIKE $1"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY name ASC"

	entities := []models.ReferenceEntity{}
	if err := r.db.SelectContext(ctx, &entities, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return entities, nil
}

// FindByID returns a single reference entity.
func (r *ReferenceRepository) FindByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceEntity, error) {
	query := fmt.Sprintf("SELECT id, name, created_at, updated_at FROM %s WHERE id = $1", kind.Table())

	var entity models.ReferenceEntity
	if err := r.db.GetContext(ctx, &entity, query, id); err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindByName looks up a reference entity by exact name. Used to resolve the
// human-readable names a materi payload carries into foreign keys.
func (r *ReferenceRepository) FindByName(ctx context.Context, kind models.ReferenceKind, name string) (*models.ReferenceEntity, error) {
	query := fmt.Sprintf("SELECT id, name, created_at, updated_at FROM %s WHERE name = $1", kind.Table())

	var entity models.ReferenceEntity
	if err := r.db.GetContext(ctx, &entity, query, name); err != nil {
		return nil, err
	}
	return &entity, nil
}

// Create inserts a new reference entity. Uniqueness on name is enforced by
// the database; callers map the pq unique violation to a conflict error.
func (r *ReferenceRepository) Create(ctx context.Context, kind models.ReferenceKind, name string) (*models.ReferenceEntity, error) {
	now := time.Now().UTC()
	entity := models.ReferenceEntity{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := fmt.Sprintf("INSERT INTO %s (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)", kind.Table())
	if _, err := r.db.ExecContext(ctx, query, entity.ID, entity.Name, entity.CreatedAt, entity.UpdatedAt); err != nil {
		return nil, err
	}
	return &entity, nil
}

// Update renames a reference entity.
func (r *ReferenceRepository) Update(ctx context.Context, kind models.ReferenceKind, id, name string) (*models.ReferenceEntity, error) {
	query := fmt.Sprintf("UPDATE %s SET name = $1, updated_at = $2 WHERE id = $3", kind.Table())

	result, err := r.db.ExecContext(ctx, query, name, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, sql.ErrNoRows
	}
	return r.FindByID(ctx, kind, id)
}

// Delete removes a reference entity. Foreign key constraints block deleting
// an entity still referenced by materi; callers map that violation to a
// conflict error.
func (r *ReferenceRepository) Delete(ctx context.Context, kind models.ReferenceKind, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", kind.Table())

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
