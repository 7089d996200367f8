package defense

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/fyp-portal-api/internal/models"
)

func runEngine(t *testing.T, in Input) *Result {
	t.Helper()
	result, err := NewEngine(Config{HorizonDays: 10}, zap.NewNop()).Run(in)
	require.NoError(t, err)
	return result
}

// apply folds the mutated projects of a run back into the snapshot.
func apply(snapshot []models.ProjectGroup, result *Result) []models.ProjectGroup {
	byID := make(map[string]models.ProjectGroup, len(result.Projects))
	for _, p := range result.Projects {
		byID[p.ID] = p
	}
	out := make([]models.ProjectGroup, len(snapshot))
	for i, p := range snapshot {
		if updated, ok := byID[p.ID]; ok {
			p = updated
		}
		out[i] = p
	}
	return out
}

func outcomeOf(result *Result, projectID string) ProjectOutcome {
	for _, o := range result.Outcomes {
		if o.ProjectID == projectID {
			return o
		}
	}
	return ProjectOutcome{}
}

func mutatedProject(t *testing.T, result *Result, projectID string) models.ProjectGroup {
	t.Helper()
	for _, p := range result.Projects {
		if p.ID == projectID {
			return p
		}
	}
	t.Fatalf("project %s was not mutated", projectID)
	return models.ProjectGroup{}
}

func TestEngineTwoMainQuotasOfOne(t *testing.T) {
	advisors := []models.Advisor{
		advisor("adv-a", [4]int{5, 1, 0, 0}, "M"),
		advisor("adv-b", [4]int{5, 1, 0, 0}, "M"),
	}
	projects := []models.ProjectGroup{
		project("p1", "owner-1", "M"),
		project("p2", "owner-2", "M"),
		project("p3", "owner-3", "M"),
	}

	result := runEngine(t, Input{
		Settings: baseSettings(),
		Advisors: advisors,
		Majors:   []models.Major{{ID: "M"}},
		Projects: projects,
	})

	assert.Equal(t, 2, result.CommitteesAssigned)
	assert.Equal(t, 0, result.DefensesScheduled)
	assert.Equal(t, OutcomeCommitteesOnly, result.Message())

	p1 := mutatedProject(t, result, "p1")
	p2 := mutatedProject(t, result, "p2")
	require.NotNil(t, p1.MainCommitteeID)
	require.NotNil(t, p2.MainCommitteeID)
	assert.Equal(t, "adv-a", *p1.MainCommitteeID)
	assert.Equal(t, "adv-b", *p2.MainCommitteeID)

	p3 := outcomeOf(result, "p3")
	assert.Empty(t, p3.FilledRoles)
	assert.Equal(t, []Role{RoleMain, RoleSecond, RoleThird}, p3.UnfilledRoles)
	assert.Contains(t, p3.Reasons, ReasonNoEligibleAdvisor)
	for _, p := range result.Projects {
		assert.NotEqual(t, "p3", p.ID)
	}
}

func TestEngineRestrictedPinnedRoom(t *testing.T) {
	settings := baseSettings(models.Room{ID: "lab-x", AllowedMajorIDs: []string{"X"}})
	settings.StationaryAdvisors = map[string]string{"lab-x": "adv-p"}

	projects := []models.ProjectGroup{
		withCommittee(project("p-x", "adv-o", "X"), "adv-p", "adv-2", "adv-3"),
		withCommittee(project("p-y", "adv-o", "Y"), "adv-4", "adv-5", "adv-6"),
	}

	result := runEngine(t, Input{Settings: settings, Projects: projects})

	assert.Equal(t, 0, result.CommitteesAssigned)
	assert.Equal(t, 1, result.DefensesScheduled)
	assert.Equal(t, OutcomeSlotsOnly, result.Message())

	px := mutatedProject(t, result, "p-x")
	assert.Equal(t, "lab-x", *px.DefenseRoomID)
	assert.Equal(t, "2026-06-01", px.DefenseDate.Format(models.DefenseDateLayout))
	assert.Equal(t, "09:00-10:00", *px.DefenseTime)

	py := outcomeOf(result, "p-y")
	assert.False(t, py.Scheduled)
	assert.Equal(t, []Reason{ReasonHorizonExhausted}, py.Reasons)
	require.Len(t, result.Projects, 1)
}

func TestEngineAssignsAndSchedulesInOneRun(t *testing.T) {
	result := runEngine(t, Input{
		Settings: baseSettings(),
		Advisors: busyCatalog(4, "M"),
		Majors:   []models.Major{{ID: "M"}},
		Projects: []models.ProjectGroup{project("p1", "adv-01", "M")},
	})

	assert.Equal(t, 1, result.CommitteesAssigned)
	assert.Equal(t, 1, result.DefensesScheduled)
	assert.Equal(t, 3, result.RolesFilled)
	assert.Equal(t, OutcomeBoth, result.Message())

	p := mutatedProject(t, result, "p1")
	assert.Equal(t, "adv-02", *p.MainCommitteeID)
	assert.Equal(t, "adv-03", *p.SecondCommitteeID)
	assert.Equal(t, "adv-04", *p.ThirdCommitteeID)
	assert.True(t, p.IsScheduled())

	o := outcomeOf(result, "p1")
	assert.True(t, o.Scheduled)
	assert.Equal(t, &SlotAssignment{Date: "2026-06-01", TimeSlot: "09:00-10:00", RoomID: "room-1"}, o.Slot)
	assert.Equal(t, "M", o.MajorID)
}

func TestEngineIsIdempotent(t *testing.T) {
	snapshot := make([]models.ProjectGroup, 0, 6)
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		snapshot = append(snapshot, project(id, "adv-01", "M"))
	}
	in := Input{
		Settings: baseSettings(),
		Advisors: busyCatalog(5, "M"),
		Majors:   []models.Major{{ID: "M"}},
		Projects: snapshot,
	}

	first := runEngine(t, in)
	require.Equal(t, 6, first.CommitteesAssigned)
	require.Equal(t, 6, first.DefensesScheduled)

	in.Projects = apply(snapshot, first)
	second := runEngine(t, in)
	assert.Equal(t, 0, second.CommitteesAssigned)
	assert.Equal(t, 0, second.DefensesScheduled)
	assert.Empty(t, second.Projects)
	assert.Equal(t, OutcomeNone, second.Message())
}

func TestEngineRespectsQuotas(t *testing.T) {
	advisors := make([]models.Advisor, 0, 6)
	for _, id := range []string{"adv-1", "adv-2", "adv-3", "adv-4", "adv-5", "adv-6"} {
		advisors = append(advisors, advisor(id, [4]int{5, 1, 1, 1}, "M"))
	}
	existing := withCommittee(project("p0", "adv-6", "M"), "adv-1", "adv-2", "adv-3")
	existing.Status = models.ProjectStatusCompleted
	projects := []models.ProjectGroup{existing}
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"} {
		projects = append(projects, project(id, "adv-6", "M"))
	}

	result := runEngine(t, Input{Settings: baseSettings(), Advisors: advisors, Projects: projects})
	final := apply(projects, result)

	tracker := NewLoadTracker(final)
	for _, a := range advisors {
		for _, role := range CommitteeRoles {
			assert.LessOrEqual(t, tracker.Count(a.ID, role), QuotaFor(a, role), "%s %s", a.ID, role)
		}
	}
	// Greedy filling strands the last main seats, so the fifteen roles spread over seven projects.
	assert.Equal(t, 7, result.CommitteesAssigned)
	assert.Equal(t, 15, result.RolesFilled)
	assert.Contains(t, outcomeOf(result, "p8").Reasons, ReasonNoEligibleAdvisor)
}

func TestEngineKeepsCommitteeDistinct(t *testing.T) {
	p := project("p1", "adv-01", "M")
	p.SecondCommitteeID = strPtr("adv-02")

	result := runEngine(t, Input{
		Settings: baseSettings(),
		Advisors: busyCatalog(4, "M"),
		Projects: []models.ProjectGroup{p},
	})

	got := mutatedProject(t, result, "p1")
	people := []string{got.AdvisorID, *got.MainCommitteeID, *got.SecondCommitteeID, *got.ThirdCommitteeID}
	seen := map[string]bool{}
	for _, id := range people {
		assert.False(t, seen[id], "advisor %s holds two roles", id)
		seen[id] = true
	}
	assert.Equal(t, "adv-02", *got.SecondCommitteeID)
	assert.Equal(t, []Role{RoleMain, RoleThird}, outcomeOf(result, "p1").FilledRoles)
}

func TestEnginePrefersLowestLoadRatio(t *testing.T) {
	advisors := []models.Advisor{
		advisor("adv-a", [4]int{5, 2, 0, 0}, "M"),
		advisor("adv-b", [4]int{5, 4, 0, 0}, "M"),
	}
	projects := []models.ProjectGroup{
		withCommittee(project("p0", "owner", "M"), "adv-a", "x", "y"),
		withCommittee(project("p1", "owner", "M"), "adv-b", "x", "y"),
		project("p2", "owner", "M"),
	}
	projects[0].DefenseDate = datePtr("2026-01-01")
	projects[0].DefenseTime = strPtr("08:00-09:00")
	projects[0].DefenseRoomID = strPtr("room-1")
	projects[1] = withSlot(projects[1], "2026-01-02", "08:00-09:00", "room-1")

	result := runEngine(t, Input{Settings: baseSettings(), Advisors: advisors, Projects: projects})

	p2 := mutatedProject(t, result, "p2")
	assert.Equal(t, "adv-b", *p2.MainCommitteeID)
}

func TestEngineAvoidsDoubleBooking(t *testing.T) {
	projects := make([]models.ProjectGroup, 0, 5)
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		projects = append(projects, withCommittee(project(id, "adv-01", "M"), "adv-02", "adv-03", "adv-04"))
	}
	settings := baseSettings(models.Room{ID: "room-1"}, models.Room{ID: "room-2"})

	result := runEngine(t, Input{Settings: settings, Projects: projects})
	require.Equal(t, 5, result.DefensesScheduled)

	expected := map[string]SlotAssignment{
		"p1": {Date: "2026-06-01", TimeSlot: "09:00-10:00", RoomID: "room-1"},
		"p2": {Date: "2026-06-01", TimeSlot: "10:15-11:15", RoomID: "room-1"},
		"p3": {Date: "2026-06-02", TimeSlot: "09:00-10:00", RoomID: "room-1"},
	}
	for id, slot := range expected {
		got := outcomeOf(result, id).Slot
		require.NotNil(t, got)
		assert.Equal(t, slot, *got, id)
	}
	assertNoDoubleBooking(t, apply(projects, result))
}

func TestEngineRespectsExistingSchedule(t *testing.T) {
	busy := withSlot(withCommittee(project("p0", "adv-09", "M"), "adv-02", "adv-07", "adv-08"),
		"2026-06-01", "09:00-10:00", "room-2")
	roomTaken := withSlot(withCommittee(project("p9", "adv-10", "M"), "adv-11", "adv-12", "adv-13"),
		"2026-06-01", "10:15-11:15", "room-1")
	fresh := withCommittee(project("p1", "adv-01", "M"), "adv-02", "adv-03", "adv-04")
	settings := baseSettings(models.Room{ID: "room-1"}, models.Room{ID: "room-2"})

	result := runEngine(t, Input{Settings: settings, Projects: []models.ProjectGroup{busy, roomTaken, fresh}})

	require.Equal(t, 1, result.DefensesScheduled)
	got := outcomeOf(result, "p1").Slot
	require.NotNil(t, got)
	assert.Equal(t, SlotAssignment{Date: "2026-06-01", TimeSlot: "10:15-11:15", RoomID: "room-2"}, *got)
}

func TestEngineHonoursRoomMajors(t *testing.T) {
	settings := baseSettings(
		models.Room{ID: "room-a", AllowedMajorIDs: []string{"X"}},
		models.Room{ID: "room-b", AllowedMajorIDs: []string{"Y"}},
	)
	projects := []models.ProjectGroup{
		withCommittee(project("p1", "adv-01", "Y"), "adv-02", "adv-03", "adv-04"),
		withCommittee(project("p2", "adv-05", "X"), "adv-06", "adv-07", "adv-08"),
	}

	result := runEngine(t, Input{Settings: settings, Projects: projects})
	require.Equal(t, 2, result.DefensesScheduled)

	rooms := map[string]models.Room{"room-a": settings.Rooms[0], "room-b": settings.Rooms[1]}
	for _, p := range result.Projects {
		major, _ := resolveMajor(&p, nil)
		assert.True(t, rooms[*p.DefenseRoomID].Allows(major), p.ID)
	}
}

func TestEngineStationaryAdvisorCompliance(t *testing.T) {
	settings := baseSettings(models.Room{ID: "room-1"}, models.Room{ID: "room-2"})
	settings.StationaryAdvisors = map[string]string{"room-1": "adv-09", "room-2": models.StationaryAny}
	projects := []models.ProjectGroup{
		withCommittee(project("p1", "adv-01", "M"), "adv-02", "adv-03", "adv-04"),
		withCommittee(project("p2", "adv-05", "M"), "adv-06", "adv-09", "adv-08"),
	}

	result := runEngine(t, Input{Settings: settings, Projects: projects})
	require.Equal(t, 2, result.DefensesScheduled)

	p1 := mutatedProject(t, result, "p1")
	p2 := mutatedProject(t, result, "p2")
	assert.Equal(t, "room-2", *p1.DefenseRoomID)
	assert.Equal(t, "room-1", *p2.DefenseRoomID)
	for _, p := range result.Projects {
		if pinned, ok := settings.PinnedAdvisor(*p.DefenseRoomID); ok {
			assert.Contains(t, Participants(p), pinned)
		}
	}
}

func TestEngineIsDeterministic(t *testing.T) {
	advisors := busyCatalog(6, "M")
	projects := make([]models.ProjectGroup, 0, 6)
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		projects = append(projects, project(id, "adv-01", "M"))
	}
	settings := baseSettings(models.Room{ID: "room-1"}, models.Room{ID: "room-2"})

	forward := runEngine(t, Input{Settings: settings, Advisors: advisors, Projects: projects})

	reversedProjects := make([]models.ProjectGroup, len(projects))
	for i := range projects {
		reversedProjects[len(projects)-1-i] = projects[i]
	}
	reversedAdvisors := make([]models.Advisor, len(advisors))
	for i := range advisors {
		reversedAdvisors[len(advisors)-1-i] = advisors[i]
	}
	reversedSettings := baseSettings(models.Room{ID: "room-2"}, models.Room{ID: "room-1"})
	backward := runEngine(t, Input{Settings: reversedSettings, Advisors: reversedAdvisors, Projects: reversedProjects})

	assert.Equal(t, forward.CommitteesAssigned, backward.CommitteesAssigned)
	assert.Equal(t, forward.DefensesScheduled, backward.DefensesScheduled)
	assert.Equal(t, forward.Projects, backward.Projects)
	assert.Equal(t, forward.Outcomes, backward.Outcomes)
}

func TestEngineSkipsUnresolvedMajor(t *testing.T) {
	mixed := project("p1", "adv-01", "M")
	mixed.Students[1].MajorID = "N"
	unknown := project("p2", "adv-01", "Q")
	empty := project("p3", "adv-01", "M")
	empty.Students = nil

	result := runEngine(t, Input{
		Settings: baseSettings(),
		Advisors: busyCatalog(4, "M"),
		Majors:   []models.Major{{ID: "M"}, {ID: "N"}},
		Projects: []models.ProjectGroup{mixed, unknown, empty},
	})

	assert.Equal(t, 0, result.CommitteesAssigned)
	assert.Empty(t, result.Projects)
	for _, id := range []string{"p1", "p2", "p3"} {
		o := outcomeOf(result, id)
		assert.Contains(t, o.Reasons, ReasonUnresolvedMajor, id)
		assert.Contains(t, o.Reasons, ReasonIncompleteCommittee, id)
	}
}

func TestEngineDoesNotScheduleUnresolvedMajorWithFullCommittee(t *testing.T) {
	mixed := withCommittee(project("p1", "adv-01", "M"), "adv-02", "adv-03", "adv-04")
	mixed.Students[1].MajorID = "N"

	result := runEngine(t, Input{
		Settings: baseSettings(),
		Advisors: busyCatalog(4, "M"),
		Majors:   []models.Major{{ID: "M"}, {ID: "N"}},
		Projects: []models.ProjectGroup{mixed},
	})

	assert.Equal(t, 0, result.DefensesScheduled)
	assert.Empty(t, result.Projects)
	o := outcomeOf(result, "p1")
	assert.False(t, o.Scheduled)
	assert.Equal(t, []Reason{ReasonUnresolvedMajor}, o.Reasons)
}

func TestEngineTreatsEmptyCommitteeIDAsUnfilled(t *testing.T) {
	p := withCommittee(project("p1", "adv-01", "M"), "adv-02", "adv-03", "")

	result := runEngine(t, Input{
		Settings: baseSettings(),
		Advisors: busyCatalog(4, "M"),
		Majors:   []models.Major{{ID: "M"}},
		Projects: []models.ProjectGroup{p},
	})

	assert.Equal(t, 1, result.CommitteesAssigned)
	updated := mutatedProject(t, result, "p1")
	require.NotNil(t, updated.ThirdCommitteeID)
	assert.Equal(t, "adv-04", *updated.ThirdCommitteeID)
	assert.Equal(t, []Role{RoleThird}, outcomeOf(result, "p1").FilledRoles)
	assert.True(t, outcomeOf(result, "p1").Scheduled)
}

func TestEngineLeavesPartialScheduleAlone(t *testing.T) {
	p := withCommittee(project("p1", "adv-01", "M"), "adv-02", "adv-03", "adv-04")
	p.DefenseDate = datePtr("2026-06-03")

	result := runEngine(t, Input{Settings: baseSettings(), Projects: []models.ProjectGroup{p}})

	assert.Equal(t, 0, result.DefensesScheduled)
	assert.Equal(t, []Reason{ReasonPartialSchedule}, outcomeOf(result, "p1").Reasons)
}

func TestEngineIgnoresNonApprovedProjects(t *testing.T) {
	pending := project("p1", "adv-01", "M")
	pending.Status = models.ProjectStatusPending

	result := runEngine(t, Input{
		Settings: baseSettings(),
		Advisors: busyCatalog(4, "M"),
		Projects: []models.ProjectGroup{pending},
	})

	assert.Equal(t, 0, result.CommitteesAssigned)
	assert.Empty(t, result.Outcomes)
}

func TestEngineExcludesBusyAdvisorsForScheduledProjects(t *testing.T) {
	other := withSlot(withCommittee(project("p0", "adv-01", "M"), "adv-05", "adv-06", "adv-07"),
		"2026-06-01", "09:00-10:00", "room-2")
	manual := withSlot(project("p1", "adv-08", "M"), "2026-06-01", "09:30-10:30", "room-1")

	result := runEngine(t, Input{
		Settings: baseSettings(),
		Advisors: busyCatalog(10, "M"),
		Projects: []models.ProjectGroup{other, manual},
	})

	got := mutatedProject(t, result, "p1")
	assert.Equal(t, "adv-02", *got.MainCommitteeID)
	assert.Equal(t, "adv-03", *got.SecondCommitteeID)
	assert.Equal(t, "adv-04", *got.ThirdCommitteeID)
	assertNoDoubleBooking(t, apply([]models.ProjectGroup{other, manual}, result))
}

func TestEngineRejectsInvalidSettings(t *testing.T) {
	settings := baseSettings()
	settings.TimeSlots = "late"
	projects := []models.ProjectGroup{project("p1", "adv-01", "M")}

	result, err := NewEngine(Config{}, nil).Run(Input{Settings: settings, Advisors: busyCatalog(4, "M"), Projects: projects})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Nil(t, projects[0].MainCommitteeID)
}

func TestEngineDoesNotMutateInput(t *testing.T) {
	projects := []models.ProjectGroup{project("p1", "adv-01", "M")}

	result, err := RunAutoSchedule(baseSettings(), busyCatalog(4, "M"), nil, projects)
	require.NoError(t, err)
	require.Equal(t, 1, result.CommitteesAssigned)

	assert.Nil(t, projects[0].MainCommitteeID)
	assert.Nil(t, projects[0].DefenseDate)
}

func assertNoDoubleBooking(t *testing.T, projects []models.ProjectGroup) {
	t.Helper()
	for i := range projects {
		a := projects[i]
		if !a.IsScheduled() {
			continue
		}
		for j := i + 1; j < len(projects); j++ {
			b := projects[j]
			if !b.IsScheduled() || !a.DefenseDate.Equal(*b.DefenseDate) {
				continue
			}
			if !labelSlot(*a.DefenseTime).Overlaps(labelSlot(*b.DefenseTime)) {
				continue
			}
			assert.NotEqual(t, *a.DefenseRoomID, *b.DefenseRoomID, "%s and %s share a room", a.ID, b.ID)
			for _, person := range Participants(a) {
				assert.NotContains(t, Participants(b), person, "%s and %s share %s", a.ID, b.ID, person)
			}
		}
	}
}
