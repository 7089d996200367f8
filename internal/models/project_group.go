package models

import "time"

// ProjectStatus captures the review state of a project group.
type ProjectStatus string

const (
	ProjectStatusPending   ProjectStatus = "PENDING"
	ProjectStatusApproved  ProjectStatus = "APPROVED"
	ProjectStatusRejected  ProjectStatus = "REJECTED"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
)

// DefenseDateLayout is the calendar-date format used for defense dates.
const DefenseDateLayout = "2006-01-02"

// ProjectGroup is a final project owned by an advisor and worked on by students.
type ProjectGroup struct {
	ID                string        `db:"id" json:"id"`
	Title             string        `db:"title" json:"title"`
	AdvisorID         string        `db:"advisor_id" json:"advisor_id"`
	Status            ProjectStatus `db:"status" json:"status"`
	MainCommitteeID   *string       `db:"main_committee_id" json:"main_committee_id,omitempty"`
	SecondCommitteeID *string       `db:"second_committee_id" json:"second_committee_id,omitempty"`
	ThirdCommitteeID  *string       `db:"third_committee_id" json:"third_committee_id,omitempty"`
	DefenseDate       *time.Time    `db:"defense_date" json:"defense_date,omitempty"`
	DefenseTime       *string       `db:"defense_time" json:"defense_time,omitempty"`
	DefenseRoomID     *string       `db:"defense_room_id" json:"defense_room_id,omitempty"`
	Version           int           `db:"version" json:"version"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`

	Students []Student `db:"-" json:"students,omitempty"`
}

// RefSet reports whether an optional reference column holds an ID. An empty
// string counts as unset, the same as NULL.
func RefSet(ref *string) bool {
	return ref != nil && *ref != ""
}

// HasFullCommittee reports whether all three committee roles are filled.
func (p ProjectGroup) HasFullCommittee() bool {
	return RefSet(p.MainCommitteeID) && RefSet(p.SecondCommitteeID) && RefSet(p.ThirdCommitteeID)
}

// IsScheduled reports whether date, time and room are all set.
func (p ProjectGroup) IsScheduled() bool {
	return p.DefenseDate != nil && p.DefenseTime != nil && p.DefenseRoomID != nil
}

// HasAnyScheduleField reports whether any of the defense slot fields is set.
func (p ProjectGroup) HasAnyScheduleField() bool {
	return p.DefenseDate != nil || p.DefenseTime != nil || p.DefenseRoomID != nil
}

// Clone returns a deep copy safe for independent mutation.
func (p ProjectGroup) Clone() ProjectGroup {
	out := p
	out.MainCommitteeID = cloneString(p.MainCommitteeID)
	out.SecondCommitteeID = cloneString(p.SecondCommitteeID)
	out.ThirdCommitteeID = cloneString(p.ThirdCommitteeID)
	out.DefenseTime = cloneString(p.DefenseTime)
	out.DefenseRoomID = cloneString(p.DefenseRoomID)
	if p.DefenseDate != nil {
		d := *p.DefenseDate
		out.DefenseDate = &d
	}
	if p.Students != nil {
		out.Students = append([]Student(nil), p.Students...)
	}
	return out
}

// ProjectGroupFilter captures filtering options for listing project groups.
type ProjectGroupFilter struct {
	Status      *ProjectStatus
	AdvisorID   string
	Unscheduled bool
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
