package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roboclub-my/console-api/internal/models"
)

var centerColumns = map[string]string{
	"centerName":     "name",
	"centerLocation": "location",
	"email":          "email",
}

// CenterRepository manages persistence for learning centres.
type CenterRepository struct {
	db *sqlx.DB
}

// NewCenterRepository constructs a CenterRepository.
func NewCenterRepository(db *sqlx.DB) *CenterRepository {
	return &CenterRepository{db: db}
}

// ListAll returns every centre. The set is small and the console filters it
// client-side, so no pagination happens here.
func (r *CenterRepository) ListAll(ctx context.Context) ([]models.Center, error) {
	const query = `SELECT id, name, location, email, status, created_at, updated_at, reviewed_at, reviewed_by
        FROM centers ORDER BY created_at DESC`
	var centers []models.Center
	if err := r.db.SelectContext(ctx, &centers, query); err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	return centers, nil
}

// FindByID fetches a centre by ID.
func (r *CenterRepository) FindByID(ctx context.Context, id string) (*models.Center, error) {
	const query = `SELECT id, name, location, email, status, created_at, updated_at, reviewed_at, reviewed_by
        FROM centers WHERE id = $1`
	var center models.Center
	if err := r.db.GetContext(ctx, &center, query, id); err != nil {
		return nil, err
	}
	return &center, nil
}

// Create inserts a new centre registration.
func (r *CenterRepository) Create(ctx context.Context, center *models.Center) error {
	if center.ID == "" {
		center.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	center.CreatedAt = now
	center.UpdatedAt = now
	const query = `INSERT INTO centers (id, name, location, email, status, created_at, updated_at)
        VALUES (:id, :name, :location, :email, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, center); err != nil {
		return fmt.Errorf("create center: %w", err)
	}
	return nil
}

// ApplyPatch writes only the given fields; unknown names are skipped.
func (r *CenterRepository) ApplyPatch(ctx context.Context, id string, patch map[string]interface{}) error {
	fields := make([]string, 0, len(patch))
	for field := range patch {
		if _, ok := centerColumns[field]; ok {
			fields = append(fields, field)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)

	sets := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for _, field := range fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", centerColumns[field], len(args)+1))
		args = append(args, patch[field])
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE centers SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("patch center: %w", err)
	}
	return nil
}

// UpdateStatus moves the centre to a new lifecycle status.
func (r *CenterRepository) UpdateStatus(ctx context.Context, id, status, reviewerID string) error {
	const query = `UPDATE centers SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update center status: %w", err)
	}
	return nil
}
