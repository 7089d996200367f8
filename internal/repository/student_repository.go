package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fyp-portal-api/internal/models"
)

const studentColumns = `id, student_number, full_name, COALESCE(major_id, '') AS major_id, project_group_id, created_at, updated_at`

// StudentRepository reads students attached to project groups.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByProjectIDs returns students grouped by project group ID.
func (r *StudentRepository) ListByProjectIDs(ctx context.Context, projectIDs []string) (map[string][]models.Student, error) {
	grouped := make(map[string][]models.Student, len(projectIDs))
	if len(projectIDs) == 0 {
		return grouped, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM students WHERE project_group_id IN (?) ORDER BY project_group_id ASC, id ASC", studentColumns), projectIDs)
	if err != nil {
		return nil, fmt.Errorf("build students query: %w", err)
	}
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list students by project: %w", err)
	}
	for _, s := range students {
		if s.ProjectGroupID == nil {
			continue
		}
		grouped[*s.ProjectGroupID] = append(grouped[*s.ProjectGroupID], s)
	}
	return grouped, nil
}
