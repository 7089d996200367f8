package defense

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/fyp-portal-api/internal/models"
)

func TestLedgerConflicts(t *testing.T) {
	scheduled := withSlot(withCommittee(project("p1", "adv-01", "M"), "adv-02", "adv-03", "adv-04"),
		"2026-06-01", "09:00-10:00", "room-1")
	ledger := NewLedger([]models.ProjectGroup{scheduled, project("p2", "adv-05", "M")})
	slot, _ := ParseTimeSlot("09:30-10:30")

	conflicts := ledger.Conflicts("2026-06-01", slot, "room-1", []string{"adv-03", "adv-09"}, "")
	assert.Equal(t, []Conflict{
		{ProjectID: "p1", Dimension: DimensionRoom, RoomID: "room-1", Date: "2026-06-01", TimeSlot: "09:00-10:00"},
		{ProjectID: "p1", Dimension: DimensionPerson, PersonID: "adv-03", Date: "2026-06-01", TimeSlot: "09:00-10:00"},
	}, conflicts)

	assert.Empty(t, ledger.Conflicts("2026-06-01", slot, "room-1", []string{"adv-03"}, "p1"))
	assert.Empty(t, ledger.Conflicts("2026-06-02", slot, "room-1", []string{"adv-03"}, ""))
	assert.True(t, ledger.Busy("adv-01", "2026-06-01", slot, ""))
	assert.False(t, ledger.Busy("adv-09", "2026-06-01", slot, ""))

	ledger.AddPerson("p1", "2026-06-01", "adv-09")
	assert.True(t, ledger.Busy("adv-09", "2026-06-01", slot, ""))
}

func TestLoadTrackerCountsApprovedOnly(t *testing.T) {
	approved := withCommittee(project("p1", "adv-01", "M"), "adv-02", "adv-03", "adv-04")
	rejected := withCommittee(project("p2", "adv-01", "M"), "adv-02", "adv-03", "adv-04")
	rejected.Status = models.ProjectStatusRejected

	tracker := NewLoadTracker([]models.ProjectGroup{approved, rejected})

	assert.Equal(t, Load{Supervisor: 1}, tracker.Load("adv-01"))
	assert.Equal(t, Load{Main: 1}, tracker.Load("adv-02"))
	assert.Equal(t, 1, tracker.Count("adv-04", RoleThird))

	a := advisor("adv-02", [4]int{1, 2, 0, 0}, "M")
	assert.True(t, tracker.HasCapacity(a, RoleMain))
	assert.Equal(t, 1, tracker.Remaining(a, RoleMain))
	tracker.Increment("adv-02", RoleMain)
	assert.False(t, tracker.HasCapacity(a, RoleMain))
	assert.Equal(t, 0, tracker.Remaining(a, RoleSecond))
}

func TestRoleText(t *testing.T) {
	text, err := RoleSecond.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "second", string(text))

	var r Role
	assert.NoError(t, r.UnmarshalText([]byte("third")))
	assert.Equal(t, RoleThird, r)
	assert.Error(t, r.UnmarshalText([]byte("chair")))
}
