package defense

import (
	"time"

	"github.com/noah-isme/fyp-portal-api/internal/models"
)

// candidate is one (date, time slot, room) triple offered to the allocator.
type candidate struct {
	day  time.Time
	slot TimeSlot
	room models.Room
}

// candidateStream walks days, then slots in listed order, then rooms in ID order. It stops after
// horizonDays days.
type candidateStream struct {
	plan        *Plan
	horizonDays int
	day         int
	slot        int
	room        int
}

func newCandidateStream(plan *Plan, horizonDays int) *candidateStream {
	return &candidateStream{plan: plan, horizonDays: horizonDays}
}

// Next returns the next candidate, or false once the horizon is exhausted.
func (s *candidateStream) Next() (candidate, bool) {
	if s.day >= s.horizonDays {
		return candidate{}, false
	}
	c := candidate{
		day:  s.plan.Start.AddDate(0, 0, s.day),
		slot: s.plan.Slots[s.slot],
		room: s.plan.Rooms[s.room],
	}
	s.room++
	if s.room == len(s.plan.Rooms) {
		s.room = 0
		s.slot++
		if s.slot == len(s.plan.Slots) {
			s.slot = 0
			s.day++
		}
	}
	return c, true
}

// slotAllocator places fully-committeed projects into the earliest conflict-free candidate.
type slotAllocator struct {
	plan        *Plan
	ledger      *Ledger
	horizonDays int
}

func (a *slotAllocator) allocate(project *models.ProjectGroup, majorID string) (*SlotAssignment, bool) {
	people := Participants(*project)
	stream := newCandidateStream(a.plan, a.horizonDays)
	for c, ok := stream.Next(); ok; c, ok = stream.Next() {
		if !c.room.Allows(majorID) {
			continue
		}
		if pinned, isPinned := a.plan.Settings.PinnedAdvisor(c.room.ID); isPinned && !contains(people, pinned) {
			continue
		}
		date := c.day.Format(models.DefenseDateLayout)
		if !a.ledger.free(date, c.slot, c.room.ID, people) {
			continue
		}

		day := c.day
		label := c.slot.Label
		roomID := c.room.ID
		project.DefenseDate = &day
		project.DefenseTime = &label
		project.DefenseRoomID = &roomID
		a.ledger.Reserve(project.ID, date, c.slot, roomID, people)
		return &SlotAssignment{Date: date, TimeSlot: label, RoomID: roomID}, true
	}
	return nil, false
}
