package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/fyp-portal-api/internal/defense"
	"github.com/noah-isme/fyp-portal-api/internal/dto"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	appErrors "github.com/noah-isme/fyp-portal-api/pkg/errors"
)

type advisorRepository interface {
	List(ctx context.Context, filter models.AdvisorFilter) ([]models.Advisor, int, error)
	FindByID(ctx context.Context, id string) (*models.Advisor, error)
}

type projectLister interface {
	ListAll(ctx context.Context) ([]models.ProjectGroup, error)
}

// AdvisorService exposes advisors and their current workload.
type AdvisorService struct {
	repo     advisorRepository
	projects projectLister
	logger   *zap.Logger
}

// NewAdvisorService constructs an AdvisorService.
func NewAdvisorService(repo advisorRepository, projects projectLister, logger *zap.Logger) *AdvisorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisorService{repo: repo, projects: projects, logger: logger}
}

// List returns paginated advisors.
func (s *AdvisorService) List(ctx context.Context, filter models.AdvisorFilter) ([]models.Advisor, *models.Pagination, error) {
	advisors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list advisors")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return advisors, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Workload counts the advisor's supervision and committee roles over approved projects.
func (s *AdvisorService) Workload(ctx context.Context, id string) (*dto.AdvisorWorkloadResponse, error) {
	advisor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "advisor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisor")
	}
	projects, err := s.projects.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project groups")
	}

	tracker := defense.NewLoadTracker(projects)
	roles := []defense.Role{defense.RoleSupervisor, defense.RoleMain, defense.RoleSecond, defense.RoleThird}
	resp := &dto.AdvisorWorkloadResponse{
		AdvisorID: advisor.ID,
		FullName:  advisor.FullName,
		Roles:     make([]dto.RoleWorkload, 0, len(roles)),
	}
	for _, role := range roles {
		resp.Roles = append(resp.Roles, dto.RoleWorkload{
			Role:      role,
			Count:     tracker.Count(advisor.ID, role),
			Quota:     defense.QuotaFor(*advisor, role),
			Remaining: tracker.Remaining(*advisor, role),
		})
	}
	return resp, nil
}
