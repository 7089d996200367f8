package defense

import (
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/fyp-portal-api/internal/models"
)

// DefaultHorizonDays bounds how far past the start date the allocator searches.
const DefaultHorizonDays = 120

// Config tunes the engine.
type Config struct {
	HorizonDays int
}

// Input is the snapshot a run operates on. The engine never modifies it.
type Input struct {
	Settings models.DefenseSettings
	Advisors []models.Advisor
	Majors   []models.Major
	Projects []models.ProjectGroup
}

// Result reports what a run changed.
type Result struct {
	CommitteesAssigned int                   `json:"committeesAssigned"`
	DefensesScheduled  int                   `json:"defensesScheduled"`
	RolesFilled        int                   `json:"rolesFilled"`
	Projects           []models.ProjectGroup `json:"projects"`
	Outcomes           []ProjectOutcome      `json:"outcomes"`
}

// Message summarises the run for the admin.
func (r *Result) Message() OutcomeMessage {
	return MessageFor(r.CommitteesAssigned, r.DefensesScheduled)
}

// Engine assigns committees and defense slots.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = DefaultHorizonDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// RunAutoSchedule runs the engine with default configuration.
func RunAutoSchedule(settings models.DefenseSettings, advisors []models.Advisor, majors []models.Major, projects []models.ProjectGroup) (*Result, error) {
	return NewEngine(Config{}, nil).Run(Input{
		Settings: settings,
		Advisors: advisors,
		Majors:   majors,
		Projects: projects,
	})
}

// Run validates the settings, fills missing committee roles, then places fully-committeed
// projects into defense slots. A configuration error rejects the run before anything changes.
func (e *Engine) Run(in Input) (*Result, error) {
	plan, err := Compile(in.Settings)
	if err != nil {
		return nil, err
	}

	projects := make([]models.ProjectGroup, len(in.Projects))
	for i := range in.Projects {
		projects[i] = in.Projects[i].Clone()
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })

	advisors := append([]models.Advisor(nil), in.Advisors...)
	sort.Slice(advisors, func(i, j int) bool { return advisors[i].ID < advisors[j].ID })

	catalog := make(map[string]models.Major, len(in.Majors))
	for _, major := range in.Majors {
		catalog[major.ID] = major
	}

	tracker := NewLoadTracker(projects)
	ledger := NewLedger(projects)
	assigner := &committeeAssigner{advisors: advisors, tracker: tracker, ledger: ledger}
	allocator := &slotAllocator{plan: plan, ledger: ledger, horizonDays: e.cfg.HorizonDays}

	result := &Result{}
	outcomes := make(map[string]*ProjectOutcome)
	mutated := make(map[string]bool)
	majors := make(map[string]string)
	outcomeFor := func(p *models.ProjectGroup) *ProjectOutcome {
		o, ok := outcomes[p.ID]
		if !ok {
			o = &ProjectOutcome{ProjectID: p.ID, MajorID: majors[p.ID]}
			outcomes[p.ID] = o
		}
		return o
	}

	for i := range projects {
		p := &projects[i]
		if p.Status != models.ProjectStatusApproved {
			continue
		}
		major, ok := resolveMajor(p, catalog)
		if ok {
			majors[p.ID] = major
		}
		if p.HasFullCommittee() {
			continue
		}
		outcome := outcomeFor(p)
		if !ok {
			outcome.UnfilledRoles = missingRoles(p)
			outcome.addReason(ReasonUnresolvedMajor)
			continue
		}
		if assigner.assign(p, major, outcome) {
			result.CommitteesAssigned++
			result.RolesFilled += len(outcome.FilledRoles)
			mutated[p.ID] = true
		}
	}

	for i := range projects {
		p := &projects[i]
		if p.Status != models.ProjectStatusApproved || p.IsScheduled() {
			continue
		}
		outcome := outcomeFor(p)
		switch {
		case p.HasAnyScheduleField():
			outcome.addReason(ReasonPartialSchedule)
			continue
		case !p.HasFullCommittee():
			outcome.addReason(ReasonIncompleteCommittee)
			continue
		}
		major, ok := majors[p.ID]
		if !ok {
			// Room restrictions are checked by major, so there is nothing safe to place.
			outcome.addReason(ReasonUnresolvedMajor)
			continue
		}
		slot, ok := allocator.allocate(p, major)
		if !ok {
			outcome.addReason(ReasonHorizonExhausted)
			e.logger.Debug("no defense slot within horizon",
				zap.String("project_id", p.ID),
				zap.Int("horizon_days", e.cfg.HorizonDays),
			)
			continue
		}
		outcome.Scheduled = true
		outcome.Slot = slot
		result.DefensesScheduled++
		mutated[p.ID] = true
	}

	for i := range projects {
		if mutated[projects[i].ID] {
			result.Projects = append(result.Projects, projects[i])
		}
		if o, ok := outcomes[projects[i].ID]; ok {
			result.Outcomes = append(result.Outcomes, *o)
		}
	}

	e.logger.Debug("defense schedule computed",
		zap.Int("committees_assigned", result.CommitteesAssigned),
		zap.Int("defenses_scheduled", result.DefensesScheduled),
		zap.Int("roles_filled", result.RolesFilled),
	)
	return result, nil
}
