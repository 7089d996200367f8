package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fyp-portal-api/internal/models"
)

const advisorColumns = `id, full_name, email, quota, main_committee_quota, second_committee_quota, third_committee_quota, specializations, active, created_at, updated_at`

// AdvisorRepository reads advisors and their quotas.
type AdvisorRepository struct {
	db *sqlx.DB
}

// NewAdvisorRepository constructs an AdvisorRepository.
func NewAdvisorRepository(db *sqlx.DB) *AdvisorRepository {
	return &AdvisorRepository{db: db}
}

// List returns advisors matching filters along with total count.
func (r *AdvisorRepository) List(ctx context.Context, filter models.AdvisorFilter) ([]models.Advisor, int, error) {
	base := "FROM advisors WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.MajorID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(specializations)", len(args)+1))
		args = append(args, filter.MajorID)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"id":         "id",
		"full_name":  "full_name",
		"email":      "email",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "full_name"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", advisorColumns, base, column, order, size, offset)
	var advisors []models.Advisor
	if err := r.db.SelectContext(ctx, &advisors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list advisors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count advisors: %w", err)
	}

	return advisors, total, nil
}

// ListActive returns every active advisor ordered by ID, the catalog the scheduler draws from.
func (r *AdvisorRepository) ListActive(ctx context.Context) ([]models.Advisor, error) {
	query := fmt.Sprintf("SELECT %s FROM advisors WHERE active = TRUE ORDER BY id ASC", advisorColumns)
	var advisors []models.Advisor
	if err := r.db.SelectContext(ctx, &advisors, query); err != nil {
		return nil, fmt.Errorf("list active advisors: %w", err)
	}
	return advisors, nil
}

// FindByID fetches an advisor by ID.
func (r *AdvisorRepository) FindByID(ctx context.Context, id string) (*models.Advisor, error) {
	query := fmt.Sprintf("SELECT %s FROM advisors WHERE id = $1", advisorColumns)
	var advisor models.Advisor
	if err := r.db.GetContext(ctx, &advisor, query, id); err != nil {
		return nil, err
	}
	return &advisor, nil
}
