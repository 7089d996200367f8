// Package defense assigns defense committees and defense slots to approved project groups.
//
// The engine is a pure, single-threaded batch computation over a snapshot. It never performs
// I/O; callers persist the settings before a run and the returned mutations after it.
package defense

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/fyp-portal-api/internal/models"
	appErrors "github.com/noah-isme/fyp-portal-api/pkg/errors"
)

const clockLayout = "15:04"

// TimeSlot is one daily defense window, e.g. "09:00-10:00".
type TimeSlot struct {
	Label string
	Start int
	End   int
}

// Overlaps reports whether two windows share any minute of the day. Windows that could not be
// parsed only collide with an identical label.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	if t.Start < 0 || other.Start < 0 {
		return t.Label == other.Label
	}
	return t.Start < other.End && other.Start < t.End
}

// ParseTimeSlot parses a single "HH:mm-HH:mm" token.
func ParseTimeSlot(raw string) (TimeSlot, error) {
	label := strings.TrimSpace(raw)
	parts := strings.Split(label, "-")
	if len(parts) != 2 {
		return TimeSlot{}, fmt.Errorf("time slot %q must look like HH:mm-HH:mm", label)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return TimeSlot{}, fmt.Errorf("time slot %q: %w", label, err)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return TimeSlot{}, fmt.Errorf("time slot %q: %w", label, err)
	}
	if end <= start {
		return TimeSlot{}, fmt.Errorf("time slot %q ends before it starts", label)
	}
	return TimeSlot{Label: label, Start: start, End: end}, nil
}

// ParseTimeSlots parses a comma-separated slot list. Slots must be chronological and must not
// overlap.
func ParseTimeSlots(raw string) ([]TimeSlot, error) {
	tokens := strings.Split(raw, ",")
	slots := make([]TimeSlot, 0, len(tokens))
	for _, token := range tokens {
		if strings.TrimSpace(token) == "" {
			continue
		}
		slot, err := ParseTimeSlot(token)
		if err != nil {
			return nil, err
		}
		if n := len(slots); n > 0 && slot.Start < slots[n-1].End {
			return nil, fmt.Errorf("time slot %q overlaps or precedes %q", slot.Label, slots[n-1].Label)
		}
		slots = append(slots, slot)
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("at least one time slot is required")
	}
	return slots, nil
}

// labelSlot resolves a stored slot label, keeping unparseable labels comparable by name.
func labelSlot(label string) TimeSlot {
	slot, err := ParseTimeSlot(label)
	if err != nil {
		return TimeSlot{Label: strings.TrimSpace(label), Start: -1, End: -1}
	}
	return slot
}

func parseClock(raw string) (int, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", strings.TrimSpace(raw))
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Plan is a validated, normalised view of DefenseSettings.
type Plan struct {
	Start    time.Time
	Slots    []TimeSlot
	Rooms    []models.Room
	Settings models.DefenseSettings
}

// Compile validates settings and fixes the iteration order used by the allocator.
func Compile(settings models.DefenseSettings) (*Plan, error) {
	start, err := time.Parse(models.DefenseDateLayout, strings.TrimSpace(settings.StartDefenseDate))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			fmt.Sprintf("start defense date %q must use YYYY-MM-DD", settings.StartDefenseDate))
	}
	slots, err := ParseTimeSlots(settings.TimeSlots)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if len(settings.Rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one defense room is required")
	}

	rooms := make([]models.Room, 0, len(settings.Rooms))
	seen := make(map[string]bool, len(settings.Rooms))
	for _, room := range settings.Rooms {
		id := strings.TrimSpace(room.ID)
		if id == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "room id is required")
		}
		if seen[id] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s is listed twice", id))
		}
		seen[id] = true
		room.ID = id
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })

	return &Plan{
		Start:    start,
		Slots:    slots,
		Rooms:    rooms,
		Settings: settings,
	}, nil
}
