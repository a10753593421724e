package models

import "time"

// Achievement is an awardable badge assignable to students.
type Achievement struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// AssignedAchievement links a student to an achievement.
type AssignedAchievement struct {
	StudentID     string    `db:"student_id" json:"studentId"`
	AchievementID string    `db:"achievement_id" json:"achievementId"`
	AssignedAt    time.Time `db:"assigned_at" json:"assignedAt"`
}

// Level is a coarse student proficiency tier managed by admins.
type Level struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
