package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fyp-portal-api/internal/defense"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	appErrors "github.com/noah-isme/fyp-portal-api/pkg/errors"
)

type advisorRepoStub struct {
	advisors map[string]models.Advisor
	listErr  error
}

func (s advisorRepoStub) List(ctx context.Context, filter models.AdvisorFilter) ([]models.Advisor, int, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	out := make([]models.Advisor, 0, len(s.advisors))
	for _, a := range s.advisors {
		if filter.MajorID == "" || a.SpecializedIn(filter.MajorID) {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (s advisorRepoStub) FindByID(ctx context.Context, id string) (*models.Advisor, error) {
	a, ok := s.advisors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

type projectListerStub struct {
	projects []models.ProjectGroup
}

func (s projectListerStub) ListAll(context.Context) ([]models.ProjectGroup, error) {
	return s.projects, nil
}

func ptr(v string) *string { return &v }

func TestAdvisorServiceWorkload(t *testing.T) {
	advisor := committeeAdvisor("a-2", "informatics")
	advisor.MainCommitteeQuota = 1
	svc := NewAdvisorService(
		advisorRepoStub{advisors: map[string]models.Advisor{"a-2": advisor}},
		projectListerStub{projects: []models.ProjectGroup{
			{ID: "p-1", AdvisorID: "a-2", Status: models.ProjectStatusApproved},
			{ID: "p-2", AdvisorID: "a-1", Status: models.ProjectStatusApproved, MainCommitteeID: ptr("a-2"), ThirdCommitteeID: ptr("a-2")},
			{ID: "p-3", AdvisorID: "a-1", Status: models.ProjectStatusPending, MainCommitteeID: ptr("a-2")},
		}},
		nil,
	)

	workload, err := svc.Workload(context.Background(), "a-2")
	require.NoError(t, err)
	require.Len(t, workload.Roles, 4)

	byRole := map[defense.Role]int{}
	for _, r := range workload.Roles {
		byRole[r.Role] = r.Count
	}
	assert.Equal(t, 1, byRole[defense.RoleSupervisor])
	assert.Equal(t, 1, byRole[defense.RoleMain])
	assert.Equal(t, 0, byRole[defense.RoleSecond])
	assert.Equal(t, 1, byRole[defense.RoleThird])
	assert.Equal(t, 0, workload.Roles[1].Remaining)
	assert.Equal(t, 5, workload.Roles[2].Remaining)
}

func TestAdvisorServiceWorkloadNotFound(t *testing.T) {
	svc := NewAdvisorService(advisorRepoStub{}, projectListerStub{}, nil)
	_, err := svc.Workload(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAdvisorServiceListPagination(t *testing.T) {
	svc := NewAdvisorService(advisorRepoStub{advisors: map[string]models.Advisor{
		"a-1": committeeAdvisor("a-1", "informatics"),
		"a-2": committeeAdvisor("a-2", "statistics"),
	}}, projectListerStub{}, nil)

	advisors, pagination, err := svc.List(context.Background(), models.AdvisorFilter{MajorID: "statistics"})
	require.NoError(t, err)
	require.Len(t, advisors, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)

	_, _, err = NewAdvisorService(advisorRepoStub{listErr: errors.New("boom")}, projectListerStub{}, nil).List(context.Background(), models.AdvisorFilter{})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
