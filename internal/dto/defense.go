package dto

import (
	"time"

	"github.com/noah-isme/fyp-portal-api/internal/defense"
	"github.com/noah-isme/fyp-portal-api/internal/models"
)

// RoomRequest describes a defense room in a settings payload.
type RoomRequest struct {
	ID              string   `json:"id" validate:"required"`
	Name            string   `json:"name" validate:"required"`
	AllowedMajorIDs []string `json:"allowed_major_ids"`
}

// DefenseSettingsRequest is the payload for PUT /defense/settings and for run/preview overrides.
type DefenseSettingsRequest struct {
	StartDefenseDate   string            `json:"start_defense_date" validate:"required,datetime=2006-01-02"`
	TimeSlots          string            `json:"time_slots" validate:"required"`
	Rooms              []RoomRequest     `json:"rooms" validate:"required,min=1,dive"`
	StationaryAdvisors map[string]string `json:"stationary_advisors"`
	Timezone           string            `json:"timezone"`
}

// ToModel converts the request into persisted settings.
func (r DefenseSettingsRequest) ToModel() models.DefenseSettings {
	rooms := make([]models.Room, 0, len(r.Rooms))
	for _, room := range r.Rooms {
		rooms = append(rooms, models.Room{ID: room.ID, Name: room.Name, AllowedMajorIDs: room.AllowedMajorIDs})
	}
	return models.DefenseSettings{
		StartDefenseDate:   r.StartDefenseDate,
		TimeSlots:          r.TimeSlots,
		Rooms:              rooms,
		StationaryAdvisors: r.StationaryAdvisors,
		Timezone:           r.Timezone,
	}
}

// RunScheduleRequest triggers a run. Settings, when present, are saved before the run.
type RunScheduleRequest struct {
	Settings *DefenseSettingsRequest `json:"settings,omitempty" validate:"omitempty"`
}

// DefenseRunSummary is the counters part of a run, also cached as the last run.
type DefenseRunSummary struct {
	RunID              string                 `json:"runId"`
	DryRun             bool                   `json:"dryRun"`
	CommitteesAssigned int                    `json:"committeesAssigned"`
	DefensesScheduled  int                    `json:"defensesScheduled"`
	RolesFilled        int                    `json:"rolesFilled"`
	Message            defense.OutcomeMessage `json:"message"`
	TriggeredBy        string                 `json:"triggeredBy,omitempty"`
	StartedAt          time.Time              `json:"startedAt"`
	DurationMS         int64                  `json:"durationMs"`
}

// DefenseRunResponse is returned by run and preview.
type DefenseRunResponse struct {
	DefenseRunSummary
	Projects []models.ProjectGroup    `json:"projects"`
	Outcomes []defense.ProjectOutcome `json:"outcomes"`
}

// RoleWorkload is the load of one committee or supervision role.
type RoleWorkload struct {
	Role      defense.Role `json:"role"`
	Count     int          `json:"count"`
	Quota     int          `json:"quota"`
	Remaining int          `json:"remaining"`
}

// AdvisorWorkloadResponse summarises an advisor's load against their quotas.
type AdvisorWorkloadResponse struct {
	AdvisorID string         `json:"advisorId"`
	FullName  string         `json:"fullName"`
	Roles     []RoleWorkload `json:"roles"`
}

// OverrideDefenseRequest patches committee and slot fields of a project. Nil leaves a field as is;
// an empty string clears it.
type OverrideDefenseRequest struct {
	Version           int     `json:"version" validate:"required,min=1"`
	MainCommitteeID   *string `json:"main_committee_id"`
	SecondCommitteeID *string `json:"second_committee_id"`
	ThirdCommitteeID  *string `json:"third_committee_id"`
	DefenseDate       *string `json:"defense_date"`
	DefenseTime       *string `json:"defense_time"`
	DefenseRoomID     *string `json:"defense_room_id"`
}
