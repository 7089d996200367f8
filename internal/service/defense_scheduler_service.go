package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fyp-portal-api/internal/defense"
	"github.com/noah-isme/fyp-portal-api/internal/dto"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	"github.com/noah-isme/fyp-portal-api/internal/repository"
	appErrors "github.com/noah-isme/fyp-portal-api/pkg/errors"
)

const lastRunCacheKey = "defense:schedule:last-run"

type defenseSettingsStore interface {
	Get(ctx context.Context) (*models.DefenseSettings, error)
	Save(ctx context.Context, settings models.DefenseSettings, actor *models.JWTClaims) (*models.DefenseSettings, error)
}

type activeAdvisorReader interface {
	ListActive(ctx context.Context) ([]models.Advisor, error)
}

type majorReader interface {
	List(ctx context.Context) ([]models.Major, error)
}

type projectSnapshotStore interface {
	ListAll(ctx context.Context) ([]models.ProjectGroup, error)
	ApplyDefenseChanges(ctx context.Context, projects []models.ProjectGroup, guard repository.SnapshotGuard) error
}

type studentReader interface {
	ListByProjectIDs(ctx context.Context, projectIDs []string) (map[string][]models.Student, error)
}

type runSummaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DefenseSchedulerConfig tunes scheduler runs.
type DefenseSchedulerConfig struct {
	Enabled     bool
	HorizonDays int
	LastRunTTL  time.Duration
}

// DefenseSchedulerService loads a snapshot, runs the engine and persists what it changed.
type DefenseSchedulerService struct {
	settings  defenseSettingsStore
	advisors  activeAdvisorReader
	majors    majorReader
	projects  projectSnapshotStore
	students  studentReader
	cache     runSummaryCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DefenseSchedulerConfig
	engine    *defense.Engine
	now       func() time.Time

	runMu sync.Mutex
}

// NewDefenseSchedulerService constructs the scheduler service.
func NewDefenseSchedulerService(
	settings defenseSettingsStore,
	advisors activeAdvisorReader,
	majors majorReader,
	projects projectSnapshotStore,
	students studentReader,
	cache runSummaryCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg DefenseSchedulerConfig,
) *DefenseSchedulerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LastRunTTL <= 0 {
		cfg.LastRunTTL = 24 * time.Hour
	}
	return &DefenseSchedulerService{
		settings:  settings,
		advisors:  advisors,
		majors:    majors,
		projects:  projects,
		students:  students,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		engine:    defense.NewEngine(defense.Config{HorizonDays: cfg.HorizonDays}, logger),
		now:       time.Now,
	}
}

// Run saves the settings, assigns committees and slots, and commits every change in one
// transaction. Only one run executes at a time.
func (s *DefenseSchedulerService) Run(ctx context.Context, req dto.RunScheduleRequest, actor *models.JWTClaims) (*dto.DefenseRunResponse, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.ErrFeatureDisabled
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid run payload")
	}
	if !s.runMu.TryLock() {
		return nil, appErrors.ErrRunInProgress
	}
	defer s.runMu.Unlock()

	started := s.now()
	settings, err := s.resolveSettings(ctx, req.Settings, actor, true)
	if err != nil {
		s.metrics.ObserveSchedulerRun("rejected", 0, 0, s.now().Sub(started))
		return nil, err
	}

	result, guard, err := s.solve(ctx, *settings)
	if err != nil {
		s.metrics.ObserveSchedulerRun(outcomeForError(err), 0, 0, s.now().Sub(started))
		return nil, err
	}

	commitStart := s.now()
	err = s.projects.ApplyDefenseChanges(ctx, result.Projects, guard)
	s.metrics.ObserveDBQuery("defense_commit", s.now().Sub(commitStart))
	if err != nil {
		s.metrics.ObserveSchedulerRun(outcomeForError(err), 0, 0, s.now().Sub(started))
		if errors.Is(err, repository.ErrStaleVersion) {
			s.logger.Sugar().Warnw("defense run rolled back", "error", err)
			return nil, appErrors.Clone(appErrors.ErrConflict, "project groups changed during the run; nothing was saved, please retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save scheduler results")
	}

	duration := s.now().Sub(started)
	resp := s.response(result, false, actor, started, duration)
	s.metrics.ObserveSchedulerRun("success", result.CommitteesAssigned, result.DefensesScheduled, duration)
	if s.cache != nil {
		if err := s.cache.Set(ctx, lastRunCacheKey, &resp.DefenseRunSummary, s.cfg.LastRunTTL); err != nil {
			s.logger.Sugar().Warnw("failed to cache last defense run", "error", err)
		}
	}
	s.logger.Sugar().Infow("defense scheduler run finished",
		"runId", resp.RunID,
		"committeesAssigned", result.CommitteesAssigned,
		"defensesScheduled", result.DefensesScheduled,
		"rolesFilled", result.RolesFilled,
		"updatedProjects", len(result.Projects),
		"duration", duration,
	)
	return resp, nil
}

// Preview runs the engine on the current snapshot without saving anything.
func (s *DefenseSchedulerService) Preview(ctx context.Context, req dto.RunScheduleRequest, actor *models.JWTClaims) (*dto.DefenseRunResponse, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.ErrFeatureDisabled
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preview payload")
	}
	started := s.now()
	settings, err := s.resolveSettings(ctx, req.Settings, actor, false)
	if err != nil {
		return nil, err
	}
	result, _, err := s.solve(ctx, *settings)
	if err != nil {
		return nil, err
	}
	return s.response(result, true, actor, started, s.now().Sub(started)), nil
}

// LastRun returns the summary of the most recent committed run.
func (s *DefenseSchedulerService) LastRun(ctx context.Context) (*dto.DefenseRunSummary, error) {
	if s.cache == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no scheduler run recorded")
	}
	var summary dto.DefenseRunSummary
	hit, err := s.cache.Get(ctx, lastRunCacheKey, &summary)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read last run")
	}
	if !hit {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no scheduler run recorded")
	}
	return &summary, nil
}

func (s *DefenseSchedulerService) resolveSettings(ctx context.Context, override *dto.DefenseSettingsRequest, actor *models.JWTClaims, persist bool) (*models.DefenseSettings, error) {
	if override == nil {
		settings, err := s.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := defense.Compile(*settings); err != nil {
			return nil, err
		}
		return settings, nil
	}
	settings := override.ToModel()
	if !persist {
		if _, err := defense.Compile(settings); err != nil {
			return nil, err
		}
		return &settings, nil
	}
	return s.settings.Save(ctx, settings, actor)
}

// solve runs the engine on a fresh snapshot. The commit must pass the returned guard, so any
// approved project saved after the snapshot was read aborts the run.
func (s *DefenseSchedulerService) solve(ctx context.Context, settings models.DefenseSettings) (*defense.Result, repository.SnapshotGuard, error) {
	loadStart := s.now()
	advisors, err := s.advisors.ListActive(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisors")
	}
	majors, err := s.majors.List(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load majors")
	}
	projects, err := s.projects.ListAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project groups")
	}

	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		if p.Status == models.ProjectStatusApproved && (!p.HasFullCommittee() || !p.HasAnyScheduleField()) {
			ids = append(ids, p.ID)
		}
	}
	students, err := s.students.ListByProjectIDs(ctx, ids)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	for i := range projects {
		projects[i].Students = students[projects[i].ID]
	}
	s.metrics.ObserveDBQuery("defense_snapshot", s.now().Sub(loadStart))
	guard := repository.NewSnapshotGuard(projects)

	result, err := s.engine.Run(defense.Input{
		Settings: settings,
		Advisors: advisors,
		Majors:   majors,
		Projects: projects,
	})
	if err != nil {
		return nil, nil, err
	}
	return result, guard, nil
}

func (s *DefenseSchedulerService) response(result *defense.Result, dryRun bool, actor *models.JWTClaims, started time.Time, duration time.Duration) *dto.DefenseRunResponse {
	summary := dto.DefenseRunSummary{
		RunID:              uuid.NewString(),
		DryRun:             dryRun,
		CommitteesAssigned: result.CommitteesAssigned,
		DefensesScheduled:  result.DefensesScheduled,
		RolesFilled:        result.RolesFilled,
		Message:            result.Message(),
		TriggeredBy:        valueOrEmpty(userIDPtr(actor)),
		StartedAt:          started.UTC(),
		DurationMS:         duration.Milliseconds(),
	}
	projects := result.Projects
	if projects == nil {
		projects = []models.ProjectGroup{}
	}
	outcomes := result.Outcomes
	if outcomes == nil {
		outcomes = []defense.ProjectOutcome{}
	}
	return &dto.DefenseRunResponse{DefenseRunSummary: summary, Projects: projects, Outcomes: outcomes}
}

func outcomeForError(err error) string {
	if errors.Is(err, repository.ErrStaleVersion) {
		return "conflict"
	}
	if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrValidation.Code {
		return "rejected"
	}
	return "error"
}
