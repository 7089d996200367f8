package defense

import (
	"fmt"
	"time"

	"github.com/noah-isme/fyp-portal-api/internal/models"
)

func strPtr(v string) *string { return &v }

func datePtr(v string) *time.Time {
	d, err := time.Parse(models.DefenseDateLayout, v)
	if err != nil {
		panic(err)
	}
	return &d
}

func advisor(id string, quotas [4]int, majors ...string) models.Advisor {
	return models.Advisor{
		ID:                   id,
		FullName:             "Advisor " + id,
		Quota:                quotas[0],
		MainCommitteeQuota:   quotas[1],
		SecondCommitteeQuota: quotas[2],
		ThirdCommitteeQuota:  quotas[3],
		Specializations:      majors,
		Active:               true,
	}
}

func project(id, owner, major string) models.ProjectGroup {
	return models.ProjectGroup{
		ID:        id,
		Title:     "Project " + id,
		AdvisorID: owner,
		Status:    models.ProjectStatusApproved,
		Students: []models.Student{
			{ID: id + "-s1", FullName: "Student 1", MajorID: major},
			{ID: id + "-s2", FullName: "Student 2", MajorID: major},
		},
	}
}

func withCommittee(p models.ProjectGroup, main, second, third string) models.ProjectGroup {
	p.MainCommitteeID = strPtr(main)
	p.SecondCommitteeID = strPtr(second)
	p.ThirdCommitteeID = strPtr(third)
	return p
}

func withSlot(p models.ProjectGroup, date, slot, room string) models.ProjectGroup {
	p.DefenseDate = datePtr(date)
	p.DefenseTime = strPtr(slot)
	p.DefenseRoomID = strPtr(room)
	return p
}

func baseSettings(rooms ...models.Room) models.DefenseSettings {
	if len(rooms) == 0 {
		rooms = []models.Room{{ID: "room-1", Name: "Room 1"}}
	}
	return models.DefenseSettings{
		StartDefenseDate:   "2026-06-01",
		TimeSlots:          "09:00-10:00,10:15-11:15",
		Rooms:              rooms,
		StationaryAdvisors: map[string]string{},
		Timezone:           "Asia/Jakarta",
	}
}

// busyCatalog builds n advisors in one major with generous quotas.
func busyCatalog(n int, major string) []models.Advisor {
	advisors := make([]models.Advisor, 0, n)
	for i := 1; i <= n; i++ {
		advisors = append(advisors, advisor(fmt.Sprintf("adv-%02d", i), [4]int{10, 10, 10, 10}, major))
	}
	return advisors
}
