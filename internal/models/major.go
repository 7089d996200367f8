package models

// Major is a study programme; it is the matching key between projects, advisors and rooms.
type Major struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
