package defense

import (
	"fmt"

	"github.com/noah-isme/fyp-portal-api/internal/models"
)

// Role identifies one of the four advisor capacities.
type Role int

const (
	RoleSupervisor Role = iota
	RoleMain
	RoleSecond
	RoleThird
)

// CommitteeRoles lists committee roles in assignment order.
var CommitteeRoles = []Role{RoleMain, RoleSecond, RoleThird}

var roleNames = [...]string{"supervisor", "main", "second", "third"}

func (r Role) String() string {
	if r < RoleSupervisor || r > RoleThird {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// MarshalText renders the role name in JSON payloads.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a role name.
func (r *Role) UnmarshalText(text []byte) error {
	for i, name := range roleNames {
		if name == string(text) {
			*r = Role(i)
			return nil
		}
	}
	return fmt.Errorf("unknown role %q", string(text))
}

// QuotaFor returns the advisor's ceiling for a role.
func QuotaFor(advisor models.Advisor, role Role) int {
	switch role {
	case RoleSupervisor:
		return advisor.Quota
	case RoleMain:
		return advisor.MainCommitteeQuota
	case RoleSecond:
		return advisor.SecondCommitteeQuota
	case RoleThird:
		return advisor.ThirdCommitteeQuota
	}
	return 0
}

// committeeField returns the project field backing a committee role.
func committeeField(project *models.ProjectGroup, role Role) **string {
	switch role {
	case RoleMain:
		return &project.MainCommitteeID
	case RoleSecond:
		return &project.SecondCommitteeID
	case RoleThird:
		return &project.ThirdCommitteeID
	}
	return nil
}

// Load is an advisor's current count per role.
type Load struct {
	Supervisor int `json:"supervisor"`
	Main       int `json:"main"`
	Second     int `json:"second"`
	Third      int `json:"third"`
}

// LoadTracker counts existing role assignments per advisor. Build one per run; the committee
// assigner increments it as it commits so later quota checks see earlier picks.
type LoadTracker struct {
	counts map[string]*[4]int
}

// NewLoadTracker counts supervision and committee roles over approved projects.
func NewLoadTracker(projects []models.ProjectGroup) *LoadTracker {
	t := &LoadTracker{counts: make(map[string]*[4]int)}
	for i := range projects {
		p := &projects[i]
		if p.Status != models.ProjectStatusApproved {
			continue
		}
		if p.AdvisorID != "" {
			t.Increment(p.AdvisorID, RoleSupervisor)
		}
		for _, role := range CommitteeRoles {
			if id := *committeeField(p, role); models.RefSet(id) {
				t.Increment(*id, role)
			}
		}
	}
	return t
}

// Count returns how many projects the advisor holds in a role.
func (t *LoadTracker) Count(advisorID string, role Role) int {
	c, ok := t.counts[advisorID]
	if !ok {
		return 0
	}
	return c[role]
}

// Increment records one more assignment.
func (t *LoadTracker) Increment(advisorID string, role Role) {
	c, ok := t.counts[advisorID]
	if !ok {
		c = &[4]int{}
		t.counts[advisorID] = c
	}
	c[role]++
}

// HasCapacity reports whether the advisor is still under quota for a role.
func (t *LoadTracker) HasCapacity(advisor models.Advisor, role Role) bool {
	return t.Count(advisor.ID, role) < QuotaFor(advisor, role)
}

// Load returns the advisor's counts for all roles.
func (t *LoadTracker) Load(advisorID string) Load {
	return Load{
		Supervisor: t.Count(advisorID, RoleSupervisor),
		Main:       t.Count(advisorID, RoleMain),
		Second:     t.Count(advisorID, RoleSecond),
		Third:      t.Count(advisorID, RoleThird),
	}
}

// Remaining returns how many more projects the advisor may take in a role.
func (t *LoadTracker) Remaining(advisor models.Advisor, role Role) int {
	left := QuotaFor(advisor, role) - t.Count(advisor.ID, role)
	if left < 0 {
		return 0
	}
	return left
}
