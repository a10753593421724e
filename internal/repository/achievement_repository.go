package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/roboclub-my/console-api/internal/models"
)

// AchievementRepository manages the achievement catalogue and its student
// assignments.
type AchievementRepository struct {
	db *sqlx.DB
}

// NewAchievementRepository constructs an AchievementRepository.
func NewAchievementRepository(db *sqlx.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// ListAll returns the full achievement catalogue.
func (r *AchievementRepository) ListAll(ctx context.Context) ([]models.Achievement, error) {
	const query = `SELECT id, title, description, created_at, updated_at FROM achievements ORDER BY created_at DESC`
	var achievements []models.Achievement
	if err := r.db.SelectContext(ctx, &achievements, query); err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return achievements, nil
}

// Create inserts a catalogue entry.
func (r *AchievementRepository) Create(ctx context.Context, achievement *models.Achievement) error {
	if achievement.ID == "" {
		achievement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	achievement.CreatedAt = now
	achievement.UpdatedAt = now
	const query = `INSERT INTO achievements (id, title, description, created_at, updated_at)
        VALUES (:id, :title, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, achievement); err != nil {
		return fmt.Errorf("create achievement: %w", err)
	}
	return nil
}

// Update rewrites title and description.
func (r *AchievementRepository) Update(ctx context.Context, achievement *models.Achievement) error {
	achievement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE achievements SET title = :title, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, achievement); err != nil {
		return fmt.Errorf("update achievement: %w", err)
	}
	return nil
}

// Delete removes a catalogue entry and its assignments.
func (r *AchievementRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM student_achievements WHERE achievement_id = $1`, id); err != nil {
		return fmt.Errorf("delete achievement assignments: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM achievements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete achievement: %w", err)
	}
	return nil
}

// ListAssigned returns the achievement ids currently linked to a student,
// the baseline every assignment session diffs against.
func (r *AchievementRepository) ListAssigned(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT achievement_id FROM student_achievements WHERE student_id = $1 ORDER BY achievement_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list assigned achievements: %w", err)
	}
	return ids, nil
}

// ApplyAssignmentDiff inserts the added links and removes the dropped ones
// in one transaction, so the stored set always matches a committed session.
func (r *AchievementRepository) ApplyAssignmentDiff(ctx context.Context, studentID string, toAdd, toRemove []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, id := range toAdd {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO student_achievements (student_id, achievement_id, assigned_at) VALUES ($1, $2, $3)
             ON CONFLICT DO NOTHING`, studentID, id, now); err != nil {
			return fmt.Errorf("assign achievement %s: %w", id, err)
		}
	}
	if len(toRemove) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM student_achievements WHERE student_id = $1 AND achievement_id = ANY($2)`,
			studentID, pq.Array(toRemove)); err != nil {
			return fmt.Errorf("unassign achievements: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment tx: %w", err)
	}
	return nil
}
