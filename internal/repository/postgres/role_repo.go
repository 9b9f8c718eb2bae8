package postgres

import (
	"context"
	"fmt"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/database"
)

type roleRepo struct {
	db database.DB
}

func NewRoleRepository(db database.DB) domain.RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) HasRole(ctx context.Context, userID string, role domain.AppRole) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2::app_role
		)
	`, userID, string(role)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return exists, nil
}
