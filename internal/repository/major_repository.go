package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fyp-portal-api/internal/models"
)

// MajorRepository reads the major catalog.
type MajorRepository struct {
	db *sqlx.DB
}

// NewMajorRepository constructs a MajorRepository.
func NewMajorRepository(db *sqlx.DB) *MajorRepository {
	return &MajorRepository{db: db}
}

// List returns all majors ordered by ID.
func (r *MajorRepository) List(ctx context.Context) ([]models.Major, error) {
	var majors []models.Major
	if err := r.db.SelectContext(ctx, &majors, `SELECT id, name FROM majors ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list majors: %w", err)
	}
	return majors, nil
}
