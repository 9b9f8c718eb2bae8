package postgres

import (
	"context"
	"fmt"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/database"
)

type adminRepo struct {
	db database.DB
}

func NewAdminRepository(db database.DB) domain.AdminRepository {
	return &adminRepo{db: db}
}

// ListWorkflows returns every user's workflows, newest first.
func (r *adminRepo) ListWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, source_platform, destination_platform,
		       COALESCE(enabled, TRUE), created_at
		FROM workflows
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	workflows := []domain.Workflow{}
	for rows.Next() {
		var w domain.Workflow
		if err := rows.Scan(&w.ID, &w.UserID, &w.SourcePlatform, &w.DestinationPlatform,
			&w.Enabled, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}
	return workflows, nil
}
