package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/fyp-portal-api/internal/defense"
	"github.com/noah-isme/fyp-portal-api/internal/dto"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	"github.com/noah-isme/fyp-portal-api/internal/repository"
	appErrors "github.com/noah-isme/fyp-portal-api/pkg/errors"
)

type projectRepository interface {
	List(ctx context.Context, filter models.ProjectGroupFilter) ([]models.ProjectGroup, int, error)
	ListAll(ctx context.Context) ([]models.ProjectGroup, error)
	FindByID(ctx context.Context, id string) (*models.ProjectGroup, error)
	ApplyDefenseChanges(ctx context.Context, projects []models.ProjectGroup, guard repository.SnapshotGuard) error
}

type advisorFinder interface {
	FindByID(ctx context.Context, id string) (*models.Advisor, error)
}

type defenseSettingsReader interface {
	Get(ctx context.Context) (*models.DefenseSettings, error)
}

// ProjectService exposes project groups and manual defense overrides.
type ProjectService struct {
	repo      projectRepository
	students  studentReader
	advisors  advisorFinder
	settings  defenseSettingsReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProjectService constructs a ProjectService.
func NewProjectService(repo projectRepository, students studentReader, advisors advisorFinder, settings defenseSettingsReader, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{repo: repo, students: students, advisors: advisors, settings: settings, validator: validate, logger: logger}
}

// List returns paginated project groups.
func (s *ProjectService) List(ctx context.Context, filter models.ProjectGroupFilter) ([]models.ProjectGroup, *models.Pagination, error) {
	projects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list project groups")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return projects, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a project group with its students.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.ProjectGroup, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project group")
	}
	students, err := s.students.ListByProjectIDs(ctx, []string{project.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	project.Students = students[project.ID]
	if project.Students == nil {
		project.Students = []models.Student{}
	}
	return project, nil
}

// OverrideDefense applies an administrator's manual committee or slot choice. The result must keep
// committee members distinct, respect quotas for newly assigned members, only carry a slot with a
// full committee, and not collide with any other scheduled defense.
func (s *ProjectService) OverrideDefense(ctx context.Context, id string, req dto.OverrideDefenseRequest, actor *models.JWTClaims) (*models.ProjectGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != req.Version {
		return nil, appErrors.Clone(appErrors.ErrConflict, "project group was modified; reload and retry")
	}

	updated := current.Clone()
	patchString(&updated.MainCommitteeID, req.MainCommitteeID)
	patchString(&updated.SecondCommitteeID, req.SecondCommitteeID)
	patchString(&updated.ThirdCommitteeID, req.ThirdCommitteeID)
	patchString(&updated.DefenseTime, req.DefenseTime)
	patchString(&updated.DefenseRoomID, req.DefenseRoomID)
	if req.DefenseDate != nil {
		if value := strings.TrimSpace(*req.DefenseDate); value == "" {
			updated.DefenseDate = nil
		} else {
			date, err := time.Parse(models.DefenseDateLayout, value)
			if err != nil {
				return nil, appErrors.Clone(appErrors.ErrValidation, "defense_date must use YYYY-MM-DD")
			}
			updated.DefenseDate = &date
		}
	}

	snapshot, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project groups")
	}
	if err := s.checkCommittee(ctx, *current, updated, snapshot); err != nil {
		return nil, err
	}
	if err := s.checkSlot(ctx, updated, snapshot); err != nil {
		return nil, err
	}

	batch := []models.ProjectGroup{updated}
	if err := s.repo.ApplyDefenseChanges(ctx, batch, repository.NewSnapshotGuard(snapshot)); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "project group was modified; reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save defense override")
	}
	s.logger.Sugar().Infow("defense override saved", "projectId", id, "updatedBy", valueOrEmpty(userIDPtr(actor)), "version", batch[0].Version)
	return &batch[0], nil
}

func (s *ProjectService) checkCommittee(ctx context.Context, before, after models.ProjectGroup, snapshot []models.ProjectGroup) error {
	seen := map[string]bool{after.AdvisorID: true}
	var changed []defense.Role
	for _, role := range defense.CommitteeRoles {
		id := committeeID(after, role)
		if id == "" {
			continue
		}
		if seen[id] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("advisor %s appears twice among supervisor and committee", id))
		}
		seen[id] = true
		if id != committeeID(before, role) {
			changed = append(changed, role)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	var tracker *defense.LoadTracker
	if after.Status == models.ProjectStatusApproved {
		tracker = defense.NewLoadTracker(snapshot)
	}
	for _, role := range changed {
		id := committeeID(after, role)
		advisor, err := s.advisors.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("advisor %s does not exist", id))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisor")
		}
		if tracker != nil && !tracker.HasCapacity(*advisor, role) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("advisor %s has no remaining %s committee quota", id, role))
		}
	}
	return nil
}

func (s *ProjectService) checkSlot(ctx context.Context, project models.ProjectGroup, snapshot []models.ProjectGroup) error {
	if !project.HasAnyScheduleField() {
		return nil
	}
	if !project.IsScheduled() {
		return appErrors.Clone(appErrors.ErrValidation, "defense date, time and room must be set together")
	}
	if !project.HasFullCommittee() {
		return appErrors.Clone(appErrors.ErrValidation, "a defense slot requires all three committee members")
	}
	slot, err := defense.ParseTimeSlot(*project.DefenseTime)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if len(settings.Rooms) > 0 {
		room, ok := findRoom(settings.Rooms, *project.DefenseRoomID)
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s is not a configured defense room", *project.DefenseRoomID))
		}
		for _, student := range project.Students {
			if !room.Allows(student.MajorID) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s does not accept major %s", room.ID, student.MajorID))
			}
		}
	}
	participants := defense.Participants(project)
	if pinned, ok := settings.PinnedAdvisor(*project.DefenseRoomID); ok && !slices.Contains(participants, pinned) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s is reserved for defenses attended by advisor %s", *project.DefenseRoomID, pinned))
	}

	ledger := defense.NewLedger(snapshot)
	date := project.DefenseDate.Format(models.DefenseDateLayout)
	conflicts := ledger.Conflicts(date, slot, *project.DefenseRoomID, participants, project.ID)
	if len(conflicts) > 0 {
		c := conflicts[0]
		subject := "room " + c.RoomID
		if c.Dimension == defense.DimensionPerson {
			subject = "advisor " + c.PersonID
		}
		return appErrors.Clone(appErrors.ErrScheduleConflict, fmt.Sprintf("%s is already committed to project %s on %s %s", subject, c.ProjectID, c.Date, c.TimeSlot))
	}
	return nil
}

func patchString(field **string, value *string) {
	if value == nil {
		return
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		*field = nil
		return
	}
	*field = &trimmed
}

func committeeID(project models.ProjectGroup, role defense.Role) string {
	var ref *string
	switch role {
	case defense.RoleMain:
		ref = project.MainCommitteeID
	case defense.RoleSecond:
		ref = project.SecondCommitteeID
	case defense.RoleThird:
		ref = project.ThirdCommitteeID
	}
	if ref == nil {
		return ""
	}
	return *ref
}

func findRoom(rooms []models.Room, id string) (models.Room, bool) {
	for _, room := range rooms {
		if room.ID == id {
			return room, true
		}
	}
	return models.Room{}, false
}
