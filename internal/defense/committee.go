package defense

import (
	"github.com/noah-isme/fyp-portal-api/internal/models"
)

// resolveMajor returns the single major shared by all students of a project.
func resolveMajor(project *models.ProjectGroup, catalog map[string]models.Major) (string, bool) {
	major := ""
	for _, student := range project.Students {
		if student.MajorID == "" {
			return "", false
		}
		if major == "" {
			major = student.MajorID
			continue
		}
		if student.MajorID != major {
			return "", false
		}
	}
	if major == "" {
		return "", false
	}
	if len(catalog) > 0 {
		if _, ok := catalog[major]; !ok {
			return "", false
		}
	}
	return major, true
}

func missingRoles(project *models.ProjectGroup) []Role {
	var missing []Role
	for _, role := range CommitteeRoles {
		if !models.RefSet(*committeeField(project, role)) {
			missing = append(missing, role)
		}
	}
	return missing
}

// committeeAssigner fills empty committee roles greedily, one project at a time.
type committeeAssigner struct {
	advisors []models.Advisor
	tracker  *LoadTracker
	ledger   *Ledger
}

// assign fills the project's missing roles and reports whether any role was newly filled.
func (a *committeeAssigner) assign(project *models.ProjectGroup, majorID string, outcome *ProjectOutcome) bool {
	date, slot, scheduled := "", TimeSlot{}, project.IsScheduled()
	if scheduled {
		date = project.DefenseDate.Format(models.DefenseDateLayout)
		slot = labelSlot(*project.DefenseTime)
	}

	members := Participants(*project)
	pool := make([]models.Advisor, 0, len(a.advisors))
	for _, advisor := range a.advisors {
		if !advisor.SpecializedIn(majorID) || contains(members, advisor.ID) {
			continue
		}
		if scheduled && a.ledger.Busy(advisor.ID, date, slot, project.ID) {
			continue
		}
		pool = append(pool, advisor)
	}

	filled := false
	for _, role := range missingRoles(project) {
		idx := a.pick(pool, role)
		if idx < 0 {
			outcome.UnfilledRoles = append(outcome.UnfilledRoles, role)
			outcome.addReason(ReasonNoEligibleAdvisor)
			continue
		}
		chosen := pool[idx]
		id := chosen.ID
		*committeeField(project, role) = &id
		a.tracker.Increment(id, role)
		if scheduled {
			a.ledger.AddPerson(project.ID, date, id)
		}
		pool = append(pool[:idx], pool[idx+1:]...)
		outcome.FilledRoles = append(outcome.FilledRoles, role)
		filled = true
	}
	return filled
}

// pick returns the index of the least-loaded advisor under quota for the role, or -1. The pool
// is sorted by advisor ID, so keeping the first of equals yields the ID tie-break.
func (a *committeeAssigner) pick(pool []models.Advisor, role Role) int {
	best := -1
	for i, advisor := range pool {
		if !a.tracker.HasCapacity(advisor, role) {
			continue
		}
		if best < 0 || a.lessLoaded(advisor, pool[best], role) {
			best = i
		}
	}
	return best
}

// lessLoaded orders by count/quota ratio, then by absolute count.
func (a *committeeAssigner) lessLoaded(x, y models.Advisor, role Role) bool {
	xc, xq := a.tracker.Count(x.ID, role), QuotaFor(x, role)
	yc, yq := a.tracker.Count(y.ID, role), QuotaFor(y, role)
	lhs, rhs := xc*yq, yc*xq
	if lhs != rhs {
		return lhs < rhs
	}
	return xc < yc
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
