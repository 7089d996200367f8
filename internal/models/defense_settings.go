package models

import "time"

// StationaryAny marks a room without a pinned advisor.
const StationaryAny = "any"

// Room is a defense venue, optionally restricted to a subset of majors.
type Room struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	AllowedMajorIDs []string `json:"allowed_major_ids"`
}

// Allows reports whether projects of the given major may defend in the room.
func (r Room) Allows(majorID string) bool {
	if len(r.AllowedMajorIDs) == 0 {
		return true
	}
	for _, id := range r.AllowedMajorIDs {
		if id == majorID {
			return true
		}
	}
	return false
}

// DefenseSettings drives the defense scheduler.
type DefenseSettings struct {
	StartDefenseDate   string            `json:"start_defense_date"`
	TimeSlots          string            `json:"time_slots"`
	Rooms              []Room            `json:"rooms"`
	StationaryAdvisors map[string]string `json:"stationary_advisors"`
	Timezone           string            `json:"timezone"`
	UpdatedBy          *string           `json:"updated_by,omitempty"`
	UpdatedAt          *time.Time        `json:"updated_at,omitempty"`
}

// PinnedAdvisor returns the advisor pinned to the room, if any.
func (s DefenseSettings) PinnedAdvisor(roomID string) (string, bool) {
	advisorID, ok := s.StationaryAdvisors[roomID]
	if !ok || advisorID == "" || advisorID == StationaryAny {
		return "", false
	}
	return advisorID, true
}
