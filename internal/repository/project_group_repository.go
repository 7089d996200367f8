package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fyp-portal-api/internal/models"
)

// ErrStaleVersion is returned when a project changed since it was read.
var ErrStaleVersion = errors.New("project group version is stale")

const projectGroupColumns = `id, title, advisor_id, status, main_committee_id, second_committee_id, third_committee_id, defense_date, defense_time, defense_room_id, version, created_at, updated_at`

const updateDefenseQuery = `UPDATE project_groups
SET main_committee_id = $1, second_committee_id = $2, third_committee_id = $3,
    defense_date = $4, defense_time = $5, defense_room_id = $6,
    version = version + 1, updated_at = $7
WHERE id = $8 AND version = $9`

// defenseCommitLock serializes every committee/slot commit across API instances.
const defenseCommitLock int64 = 0x46595044

const approvedVersionsQuery = `SELECT id, version FROM project_groups WHERE status = $1`

// SnapshotGuard maps approved project IDs to the versions a defense decision
// was computed from. Rooms, advisor time and quotas are shared across all
// approved projects, so a change to any of them invalidates the decision.
type SnapshotGuard map[string]int

// NewSnapshotGuard records the approved project versions of a snapshot.
func NewSnapshotGuard(projects []models.ProjectGroup) SnapshotGuard {
	guard := make(SnapshotGuard, len(projects))
	for _, p := range projects {
		if p.Status == models.ProjectStatusApproved {
			guard[p.ID] = p.Version
		}
	}
	return guard
}

// ProjectGroupRepository persists project groups and their defense assignments.
type ProjectGroupRepository struct {
	db *sqlx.DB
}

// NewProjectGroupRepository constructs a ProjectGroupRepository.
func NewProjectGroupRepository(db *sqlx.DB) *ProjectGroupRepository {
	return &ProjectGroupRepository{db: db}
}

// List returns project groups matching filters along with total count.
func (r *ProjectGroupRepository) List(ctx context.Context, filter models.ProjectGroupFilter) ([]models.ProjectGroup, int, error) {
	base := "FROM project_groups WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.AdvisorID != "" {
		pos := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(advisor_id = $%d OR main_committee_id = $%d OR second_committee_id = $%d OR third_committee_id = $%d)", pos, pos, pos, pos))
		args = append(args, filter.AdvisorID)
	}
	if filter.Unscheduled {
		conditions = append(conditions, "defense_date IS NULL")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"id":           "id",
		"title":        "title",
		"defense_date": "defense_date",
		"created_at":   "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "id"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", projectGroupColumns, base, column, order, size, offset)
	var projects []models.ProjectGroup
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list project groups: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count project groups: %w", err)
	}

	return projects, total, nil
}

// ListAll returns every project group ordered by ID. The scheduler snapshot needs all statuses
// so that existing defense slots block the rooms and people they hold.
func (r *ProjectGroupRepository) ListAll(ctx context.Context) ([]models.ProjectGroup, error) {
	query := fmt.Sprintf("SELECT %s FROM project_groups ORDER BY id ASC", projectGroupColumns)
	var projects []models.ProjectGroup
	if err := r.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, fmt.Errorf("list all project groups: %w", err)
	}
	return projects, nil
}

// ListScheduledBetween returns projects with a defense date inside [from, to], optionally in one room.
func (r *ProjectGroupRepository) ListScheduledBetween(ctx context.Context, from, to *time.Time, roomID string) ([]models.ProjectGroup, error) {
	conditions := []string{"defense_date IS NOT NULL", "defense_time IS NOT NULL", "defense_room_id IS NOT NULL"}
	var args []interface{}
	if from != nil {
		conditions = append(conditions, fmt.Sprintf("defense_date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("defense_date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	if roomID != "" {
		conditions = append(conditions, fmt.Sprintf("defense_room_id = $%d", len(args)+1))
		args = append(args, roomID)
	}
	query := fmt.Sprintf("SELECT %s FROM project_groups WHERE %s ORDER BY defense_date ASC, defense_time ASC, defense_room_id ASC",
		projectGroupColumns, strings.Join(conditions, " AND "))
	var projects []models.ProjectGroup
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("list scheduled project groups: %w", err)
	}
	return projects, nil
}

// FindByID fetches a project group by ID.
func (r *ProjectGroupRepository) FindByID(ctx context.Context, id string) (*models.ProjectGroup, error) {
	query := fmt.Sprintf("SELECT %s FROM project_groups WHERE id = $1", projectGroupColumns)
	var project models.ProjectGroup
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// ApplyDefenseChanges writes committee and defense fields for every project in one transaction.
// Each row is guarded by its version; if any row changed since it was read the whole batch is
// rolled back and ErrStaleVersion is returned. A non-nil guard additionally takes the defense
// commit lock and rejects the batch when any approved project differs from the snapshot.
func (r *ProjectGroupRepository) ApplyDefenseChanges(ctx context.Context, projects []models.ProjectGroup, guard SnapshotGuard) error {
	if len(projects) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin defense changes tx: %w", err)
	}
	if guard != nil {
		if err := verifySnapshot(ctx, tx, guard); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	now := time.Now().UTC()
	for i := range projects {
		p := &projects[i]
		res, err := tx.ExecContext(ctx, updateDefenseQuery,
			p.MainCommitteeID, p.SecondCommitteeID, p.ThirdCommitteeID,
			p.DefenseDate, p.DefenseTime, p.DefenseRoomID,
			now, p.ID, p.Version,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update project group %s: %w", p.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("rows affected for project group %s: %w", p.ID, err)
		}
		if affected == 0 {
			_ = tx.Rollback()
			return fmt.Errorf("project group %s: %w", p.ID, ErrStaleVersion)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit defense changes tx: %w", err)
	}
	for i := range projects {
		projects[i].Version++
		projects[i].UpdatedAt = now
	}
	return nil
}

func verifySnapshot(ctx context.Context, tx *sqlx.Tx, guard SnapshotGuard) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", defenseCommitLock); err != nil {
		return fmt.Errorf("acquire defense commit lock: %w", err)
	}
	var rows []struct {
		ID      string `db:"id"`
		Version int    `db:"version"`
	}
	if err := tx.SelectContext(ctx, &rows, approvedVersionsQuery, string(models.ProjectStatusApproved)); err != nil {
		return fmt.Errorf("load approved project versions: %w", err)
	}
	for _, row := range rows {
		if version, ok := guard[row.ID]; !ok || version != row.Version {
			return fmt.Errorf("project group %s: %w", row.ID, ErrStaleVersion)
		}
	}
	return nil
}
