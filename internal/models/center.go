package models

import "time"

// Center represents a learning centre registration.
type Center struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"centerName"`
	Location   string     `db:"location" json:"centerLocation"`
	Email      string     `db:"email" json:"email"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewedBy *string    `db:"reviewed_by" json:"reviewedBy,omitempty"`
}
