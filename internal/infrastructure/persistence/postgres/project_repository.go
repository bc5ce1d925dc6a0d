package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectRepository answers donation-target existence checks against the
// content schema. Only active projects accept donations.
type ProjectRepository struct {
	db *pgxpool.Pool
}

func NewProjectRepository(db *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) ProjectExists(ctx context.Context, projectID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND is_active)
	`, projectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("project existence check: %w", err)
	}
	return exists, nil
}
