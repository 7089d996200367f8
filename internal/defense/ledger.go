package defense

import (
	"github.com/noah-isme/fyp-portal-api/internal/models"
)

// Conflict dimensions reported by the ledger.
const (
	DimensionRoom   = "ROOM"
	DimensionPerson = "PERSON"
)

// Conflict describes an existing commitment that collides with a proposed slot.
type Conflict struct {
	ProjectID string `json:"projectId"`
	Dimension string `json:"dimension"`
	PersonID  string `json:"personId,omitempty"`
	RoomID    string `json:"roomId,omitempty"`
	Date      string `json:"date"`
	TimeSlot  string `json:"timeSlot"`
}

type commitment struct {
	projectID string
	slot      TimeSlot
	roomID    string
	people    []string
}

// Ledger tracks which rooms and people are committed at each date and time.
type Ledger struct {
	byDate map[string][]*commitment
}

// NewLedger seeds a ledger from every project that already holds a complete defense slot.
func NewLedger(projects []models.ProjectGroup) *Ledger {
	l := &Ledger{byDate: make(map[string][]*commitment)}
	for i := range projects {
		p := &projects[i]
		if !p.IsScheduled() {
			continue
		}
		l.Reserve(p.ID, p.DefenseDate.Format(models.DefenseDateLayout), labelSlot(*p.DefenseTime), *p.DefenseRoomID, Participants(*p))
	}
	return l
}

// Participants returns the owner and committee members of a project.
func Participants(p models.ProjectGroup) []string {
	people := make([]string, 0, 4)
	add := func(id string) {
		if id == "" {
			return
		}
		for _, existing := range people {
			if existing == id {
				return
			}
		}
		people = append(people, id)
	}
	add(p.AdvisorID)
	for _, ref := range []*string{p.MainCommitteeID, p.SecondCommitteeID, p.ThirdCommitteeID} {
		if models.RefSet(ref) {
			add(*ref)
		}
	}
	return people
}

// Reserve records a commitment.
func (l *Ledger) Reserve(projectID, date string, slot TimeSlot, roomID string, people []string) {
	l.byDate[date] = append(l.byDate[date], &commitment{
		projectID: projectID,
		slot:      slot,
		roomID:    roomID,
		people:    append([]string(nil), people...),
	})
}

// AddPerson attaches one more participant to a project's existing commitment.
func (l *Ledger) AddPerson(projectID, date, personID string) {
	for _, c := range l.byDate[date] {
		if c.projectID == projectID {
			c.people = append(c.people, personID)
			return
		}
	}
}

// Busy reports whether a person is committed to another project at an overlapping slot.
func (l *Ledger) Busy(personID, date string, slot TimeSlot, excludeProjectID string) bool {
	for _, c := range l.byDate[date] {
		if c.projectID == excludeProjectID || !c.slot.Overlaps(slot) {
			continue
		}
		for _, p := range c.people {
			if p == personID {
				return true
			}
		}
	}
	return false
}

// Conflicts lists every commitment that collides with the proposed room, slot and people.
func (l *Ledger) Conflicts(date string, slot TimeSlot, roomID string, people []string, excludeProjectID string) []Conflict {
	var conflicts []Conflict
	for _, c := range l.byDate[date] {
		if c.projectID == excludeProjectID || !c.slot.Overlaps(slot) {
			continue
		}
		if roomID != "" && c.roomID == roomID {
			conflicts = append(conflicts, Conflict{
				ProjectID: c.projectID,
				Dimension: DimensionRoom,
				RoomID:    roomID,
				Date:      date,
				TimeSlot:  c.slot.Label,
			})
		}
		for _, person := range people {
			for _, committed := range c.people {
				if person != committed {
					continue
				}
				conflicts = append(conflicts, Conflict{
					ProjectID: c.projectID,
					Dimension: DimensionPerson,
					PersonID:  person,
					Date:      date,
					TimeSlot:  c.slot.Label,
				})
			}
		}
	}
	return conflicts
}

// free is the allocator's fast path: it stops at the first collision.
func (l *Ledger) free(date string, slot TimeSlot, roomID string, people []string) bool {
	for _, c := range l.byDate[date] {
		if !c.slot.Overlaps(slot) {
			continue
		}
		if c.roomID == roomID {
			return false
		}
		for _, person := range people {
			for _, committed := range c.people {
				if person == committed {
					return false
				}
			}
		}
	}
	return true
}
