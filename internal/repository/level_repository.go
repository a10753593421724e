package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roboclub-my/console-api/internal/models"
)

// LevelRepository manages the student level catalogue.
type LevelRepository struct {
	db *sqlx.DB
}

// NewLevelRepository constructs a LevelRepository.
func NewLevelRepository(db *sqlx.DB) *LevelRepository {
	return &LevelRepository{db: db}
}

// ListAll returns every level ordered by name.
func (r *LevelRepository) ListAll(ctx context.Context) ([]models.Level, error) {
	var levels []models.Level
	if err := r.db.SelectContext(ctx, &levels, `SELECT id, name, created_at FROM levels ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	return levels, nil
}

// ExistsByName checks for a duplicate level name.
func (r *LevelRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM levels WHERE LOWER(name) = LOWER($1)`, name); err != nil {
		return false, fmt.Errorf("check level name: %w", err)
	}
	return count > 0, nil
}

// Create inserts a level.
func (r *LevelRepository) Create(ctx context.Context, level *models.Level) error {
	if level.ID == "" {
		level.ID = uuid.NewString()
	}
	level.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO levels (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, level); err != nil {
		return fmt.Errorf("create level: %w", err)
	}
	return nil
}

// Delete removes a level.
func (r *LevelRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM levels WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete level: %w", err)
	}
	return nil
}
