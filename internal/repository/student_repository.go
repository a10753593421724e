package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/roboclub-my/console-api/internal/models"
)

// studentColumns maps editable form field names onto table columns. Identity
// and computed fields (id, center, status) are deliberately absent so a
// malformed patch can never touch them.
var studentColumns = map[string]string{
	"email":         "email",
	"fullName":      "full_name",
	"dob":           "dob",
	"gender":        "gender",
	"nationality":   "nationality",
	"nric":          "nric",
	"passport":      "passport",
	"contact":       "contact",
	"race":          "race",
	"moeEmail":      "moe_email",
	"personalEmail": "personal_email",
	"school":        "school",
	"parentName":    "parent_name",
	"relationship":  "relationship",
	"parentEmail":   "parent_email",
	"parentContact": "parent_contact",
	"size":          "shirt_size",
	"level":         "level",
	"roboticId":     "robotic_id",
	"joinedDate":    "joined_date",
}

// StudentRepository manages persistence for student registrations.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns the listing projection matching the provided filters together
// with the unpaginated total.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRow, int, error) {
	base := "FROM students s JOIN centers c ON c.id = s.center_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.CenterID != "" {
		conditions = append(conditions, fmt.Sprintf("s.center_id = $%d", len(args)+1))
		args = append(args, filter.CenterID)
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("s.status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.Statuses))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(s.email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"name":       "s.full_name",
		"email":      "s.email",
		"centerName": "c.name",
		"status":     "s.status",
		"created_at": "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.full_name, s.email, c.name AS center_name, s.status
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var rows []models.StudentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(s.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return rows, total, nil
}

// FindByID fetches the full student record.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT s.id, s.email, s.status, s.center_id, c.name AS center_name, s.full_name, s.dob,
        s.gender, s.nationality, s.nric, s.passport, s.contact, s.race, s.moe_email, s.personal_email,
        s.school, s.parent_name, s.relationship, s.parent_email, s.parent_contact, s.shirt_size,
        s.level, s.robotic_id, s.joined_date, s.created_at, s.updated_at, s.reviewed_at, s.reviewed_by
        FROM students s JOIN centers c ON c.id = s.center_id WHERE s.id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student registration.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, email, status, center_id, full_name, dob, gender, nationality,
        nric, passport, contact, race, moe_email, personal_email, school, parent_name, relationship,
        parent_email, parent_contact, shirt_size, level, robotic_id, joined_date, created_at, updated_at)
        VALUES (:id, :email, :status, :center_id, :full_name, :dob, :gender, :nationality,
        :nric, :passport, :contact, :race, :moe_email, :personal_email, :school, :parent_name, :relationship,
        :parent_email, :parent_contact, :shirt_size, :level, :robotic_id, :joined_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// ApplyPatch writes only the given fields. Unknown field names are skipped,
// keeping identity columns out of reach. A nil result for rowsAffected==0 is
// reported as sql.ErrNoRows by the caller's Get that follows.
func (r *StudentRepository) ApplyPatch(ctx context.Context, id string, patch map[string]interface{}) error {
	sets := make([]string, 0, len(patch)+1)
	args := make([]interface{}, 0, len(patch)+2)

	fields := make([]string, 0, len(patch))
	for field := range patch {
		if _, ok := studentColumns[field]; ok {
			fields = append(fields, field)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)

	for _, field := range fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", studentColumns[field], len(args)+1))
		args = append(args, patch[field])
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE students SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("patch student: %w", err)
	}
	return nil
}

// UpdateStatus moves the record to a new lifecycle status and stamps the
// reviewer.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id, status, reviewerID string) error {
	const query = `UPDATE students SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return nil
}

// Delete removes a student registration entirely.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
