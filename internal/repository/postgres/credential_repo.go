package postgres

import (
	"context"
	"fmt"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/database"
)

type credentialRepo struct {
	db database.DB
}

func NewCredentialRepository(db database.DB) domain.CredentialRepository {
	return &credentialRepo{db: db}
}

// Upsert keeps one credential per (user, platform); a resubmission replaces it.
func (r *credentialRepo) Upsert(ctx context.Context, cred *domain.StoredCredential) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO platform_credentials (
			user_id, platform, username, password_ciphertext,
			two_factor_backup_ciphertext, notes, submitted_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id, platform) DO UPDATE SET
			username = EXCLUDED.username,
			password_ciphertext = EXCLUDED.password_ciphertext,
			two_factor_backup_ciphertext = EXCLUDED.two_factor_backup_ciphertext,
			notes = EXCLUDED.notes,
			submitted_at = NOW(),
			updated_at = NOW()
		RETURNING id, submitted_at, updated_at
	`, cred.UserID, cred.Platform, cred.Username, cred.PasswordCiphertext,
		cred.TwoFactorCiphertext, cred.Notes,
	).Scan(&cred.ID, &cred.SubmittedAt, &cred.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

func (r *credentialRepo) ListAll(ctx context.Context) ([]domain.StoredCredential, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, platform, username, password_ciphertext,
		       two_factor_backup_ciphertext, notes, submitted_at, updated_at
		FROM platform_credentials
		ORDER BY submitted_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	creds := []domain.StoredCredential{}
	for rows.Next() {
		var c domain.StoredCredential
		if err := rows.Scan(&c.ID, &c.UserID, &c.Platform, &c.Username, &c.PasswordCiphertext,
			&c.TwoFactorCiphertext, &c.Notes, &c.SubmittedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}
	return creds, nil
}
