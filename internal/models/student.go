package models

import "time"

// Student is a member of a final-project group.
type Student struct {
	ID             string    `db:"id" json:"id"`
	StudentNumber  string    `db:"student_number" json:"student_number"`
	FullName       string    `db:"full_name" json:"full_name"`
	MajorID        string    `db:"major_id" json:"major_id"`
	ProjectGroupID *string   `db:"project_group_id" json:"project_group_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
