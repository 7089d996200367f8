package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fyp-portal-api/internal/models"
)

var projectGroupRowColumns = []string{"id", "title", "advisor_id", "status", "main_committee_id", "second_committee_id", "third_committee_id", "defense_date", "defense_time", "defense_room_id", "version", "created_at", "updated_at"}

func TestProjectGroupRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProjectGroupRepository(db)

	status := models.ProjectStatusApproved
	rows := sqlmock.NewRows(projectGroupRowColumns).
		AddRow("p1", "Thesis", "adv-1", "APPROVED", "adv-2", nil, nil, nil, nil, nil, 3, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM project_groups WHERE 1=1 AND status = $1 AND (advisor_id = $2 OR main_committee_id = $2 OR second_committee_id = $2 OR third_committee_id = $2) AND defense_date IS NULL ORDER BY id ASC LIMIT 20 OFFSET 0")).
		WithArgs(status, "adv-2").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM project_groups WHERE 1=1 AND status = $1")).
		WithArgs(status, "adv-2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ProjectGroupFilter{Status: &status, AdvisorID: "adv-2", Unscheduled: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "adv-2", *list[0].MainCommitteeID)
	assert.Nil(t, list[0].DefenseDate)
	assert.Equal(t, 3, list[0].Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectGroupRepositoryApplyDefenseChanges(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProjectGroupRepository(db)

	date := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	main, second, third, slot, room := "adv-2", "adv-3", "adv-4", "09:00-10:00", "room-1"
	projects := []models.ProjectGroup{
		{ID: "p1", Version: 1, MainCommitteeID: &main, SecondCommitteeID: &second, ThirdCommitteeID: &third},
		{ID: "p2", Version: 4, MainCommitteeID: &main, SecondCommitteeID: &second, ThirdCommitteeID: &third, DefenseDate: &date, DefenseTime: &slot, DefenseRoomID: &room},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE project_groups SET main_committee_id = $1")).
		WithArgs(&main, &second, &third, nil, nil, nil, sqlmock.AnyArg(), "p1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE project_groups SET main_committee_id = $1")).
		WithArgs(&main, &second, &third, &date, &slot, &room, sqlmock.AnyArg(), "p2", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ApplyDefenseChanges(context.Background(), projects, nil))
	assert.Equal(t, 2, projects[0].Version)
	assert.Equal(t, 5, projects[1].Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectGroupRepositoryApplyDefenseChangesStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProjectGroupRepository(db)

	main := "adv-2"
	projects := []models.ProjectGroup{
		{ID: "p1", Version: 1, MainCommitteeID: &main},
		{ID: "p2", Version: 1, MainCommitteeID: &main},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE project_groups")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE project_groups")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApplyDefenseChanges(context.Background(), projects, nil)
	require.ErrorIs(t, err, ErrStaleVersion)
	assert.Equal(t, 1, projects[0].Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectGroupRepositoryApplyDefenseChangesLocksAndVerifiesSnapshot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProjectGroupRepository(db)

	main := "adv-2"
	snapshot := []models.ProjectGroup{
		{ID: "p1", Status: models.ProjectStatusApproved, Version: 1},
		{ID: "p2", Status: models.ProjectStatusApproved, Version: 3},
		{ID: "p3", Status: models.ProjectStatusPending, Version: 9},
	}
	guard := NewSnapshotGuard(snapshot)
	assert.Equal(t, SnapshotGuard{"p1": 1, "p2": 3}, guard)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(defenseCommitLock).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(approvedVersionsQuery)).
		WithArgs("APPROVED").
		WillReturnRows(sqlmock.NewRows([]string{"id", "version"}).AddRow("p1", 1).AddRow("p2", 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE project_groups")).
		WithArgs(&main, nil, nil, nil, nil, nil, sqlmock.AnyArg(), "p1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	projects := []models.ProjectGroup{{ID: "p1", Version: 1, MainCommitteeID: &main}}
	require.NoError(t, repo.ApplyDefenseChanges(context.Background(), projects, guard))
	assert.Equal(t, 2, projects[0].Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectGroupRepositoryApplyDefenseChangesRejectsConcurrentSlotChange(t *testing.T) {
	cases := map[string]*sqlmock.Rows{
		// p2 was given a slot by another commit after the snapshot was read.
		"version bumped": sqlmock.NewRows([]string{"id", "version"}).AddRow("p1", 1).AddRow("p2", 4),
		"newly approved": sqlmock.NewRows([]string{"id", "version"}).AddRow("p1", 1).AddRow("p2", 3).AddRow("p4", 1),
	}
	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			db, mock, cleanup := newRepoMock(t)
			defer cleanup()
			repo := NewProjectGroupRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(regexp.QuoteMeta(approvedVersionsQuery)).
				WillReturnRows(rows)
			mock.ExpectRollback()

			main := "adv-2"
			projects := []models.ProjectGroup{{ID: "p1", Version: 1, MainCommitteeID: &main}}
			err := repo.ApplyDefenseChanges(context.Background(), projects, SnapshotGuard{"p1": 1, "p2": 3})
			require.ErrorIs(t, err, ErrStaleVersion)
			assert.Equal(t, 1, projects[0].Version)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProjectGroupRepositoryListScheduledBetween(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProjectGroupRepository(db)

	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(projectGroupRowColumns).
		AddRow("p1", "Thesis", "adv-1", "APPROVED", "adv-2", "adv-3", "adv-4", from, "09:00-10:00", "room-1", 2, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE defense_date IS NOT NULL AND defense_time IS NOT NULL AND defense_room_id IS NOT NULL AND defense_date >= $1 AND defense_room_id = $2 ORDER BY defense_date ASC")).
		WithArgs(from, "room-1").
		WillReturnRows(rows)

	list, err := repo.ListScheduledBetween(context.Background(), &from, nil, "room-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsScheduled())
	require.NoError(t, mock.ExpectationsWereMet())
}
