package models

import (
	"time"

	"github.com/lib/pq"
)

// Advisor is a lecturer who supervises project groups and sits on defense committees.
type Advisor struct {
	ID                   string         `db:"id" json:"id"`
	FullName             string         `db:"full_name" json:"full_name"`
	Email                string         `db:"email" json:"email"`
	Quota                int            `db:"quota" json:"quota"`
	MainCommitteeQuota   int            `db:"main_committee_quota" json:"main_committee_quota"`
	SecondCommitteeQuota int            `db:"second_committee_quota" json:"second_committee_quota"`
	ThirdCommitteeQuota  int            `db:"third_committee_quota" json:"third_committee_quota"`
	Specializations      pq.StringArray `db:"specializations" json:"specializations"`
	Active               bool           `db:"active" json:"active"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// SpecializedIn reports whether the advisor may evaluate projects of the given major.
func (a Advisor) SpecializedIn(majorID string) bool {
	for _, id := range a.Specializations {
		if id == majorID {
			return true
		}
	}
	return false
}

// AdvisorFilter captures filtering options for listing advisors.
type AdvisorFilter struct {
	Search    string
	MajorID   string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
