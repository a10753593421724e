package models

import "time"

// Student represents a learner registration flowing through the review lifecycle.
type Student struct {
	ID            string     `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	Status        string     `db:"status" json:"status"`
	CenterID      string     `db:"center_id" json:"centerId"`
	CenterName    string     `db:"center_name" json:"centerName"`
	FullName      string     `db:"full_name" json:"fullName"`
	DOB           string     `db:"dob" json:"dob"`
	Gender        string     `db:"gender" json:"gender"`
	Nationality   string     `db:"nationality" json:"nationality"`
	NRIC          string     `db:"nric" json:"nric"`
	Passport      string     `db:"passport" json:"passport"`
	Contact       string     `db:"contact" json:"contact"`
	Race          string     `db:"race" json:"race"`
	MOEEmail      string     `db:"moe_email" json:"moeEmail"`
	PersonalEmail string     `db:"personal_email" json:"personalEmail"`
	School        string     `db:"school" json:"school"`
	ParentName    string     `db:"parent_name" json:"parentName"`
	Relationship  string     `db:"relationship" json:"relationship"`
	ParentEmail   string     `db:"parent_email" json:"parentEmail"`
	ParentContact string     `db:"parent_contact" json:"parentContact"`
	ShirtSize     string     `db:"shirt_size" json:"size"`
	Level         string     `db:"level" json:"level"`
	RoboticID     string     `db:"robotic_id" json:"roboticId"`
	JoinedDate    string     `db:"joined_date" json:"joinedDate"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
	ReviewedAt    *time.Time `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewedBy    *string    `db:"reviewed_by" json:"reviewedBy,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	CenterID  string
	Statuses  []string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentRow is the listing projection shown in the console table.
type StudentRow struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"full_name" json:"name"`
	Email      string `db:"email" json:"email"`
	CenterName string `db:"center_name" json:"centerName"`
	Status     string `db:"status" json:"status"`
}
