package defense

// Reason explains why a project was left partially assigned or unscheduled.
type Reason string

const (
	ReasonUnresolvedMajor     Reason = "UNRESOLVED_MAJOR"
	ReasonNoEligibleAdvisor   Reason = "NO_ELIGIBLE_ADVISOR"
	ReasonIncompleteCommittee Reason = "INCOMPLETE_COMMITTEE"
	ReasonPartialSchedule     Reason = "PARTIAL_SCHEDULE"
	ReasonHorizonExhausted    Reason = "HORIZON_EXHAUSTED"
)

// SlotAssignment is the (date, time slot, room) triple given to a project.
type SlotAssignment struct {
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
	RoomID   string `json:"roomId"`
}

// ProjectOutcome records what a run did for one project and why anything was left undone.
type ProjectOutcome struct {
	ProjectID     string          `json:"projectId"`
	MajorID       string          `json:"majorId,omitempty"`
	FilledRoles   []Role          `json:"filledRoles,omitempty"`
	UnfilledRoles []Role          `json:"unfilledRoles,omitempty"`
	Scheduled     bool            `json:"scheduled"`
	Slot          *SlotAssignment `json:"slot,omitempty"`
	Reasons       []Reason        `json:"reasons,omitempty"`
}

// OutcomeMessage is the admin-facing summary derived from the two run counters.
type OutcomeMessage string

const (
	OutcomeBoth           OutcomeMessage = "BOTH"
	OutcomeCommitteesOnly OutcomeMessage = "COMMITTEES_ONLY"
	OutcomeSlotsOnly      OutcomeMessage = "SLOTS_ONLY"
	OutcomeNone           OutcomeMessage = "NONE"
)

// MessageFor maps the counters onto one of the four outcome messages.
func MessageFor(committeesAssigned, defensesScheduled int) OutcomeMessage {
	switch {
	case committeesAssigned > 0 && defensesScheduled > 0:
		return OutcomeBoth
	case committeesAssigned > 0:
		return OutcomeCommitteesOnly
	case defensesScheduled > 0:
		return OutcomeSlotsOnly
	default:
		return OutcomeNone
	}
}

func (o *ProjectOutcome) addReason(reason Reason) {
	for _, existing := range o.Reasons {
		if existing == reason {
			return
		}
	}
	o.Reasons = append(o.Reasons, reason)
}
