package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/database"

	"github.com/jackc/pgx/v5"
)

type intakeRepo struct {
	db database.DB
}

func NewIntakeRepository(db database.DB) domain.IntakeRepository {
	return &intakeRepo{db: db}
}

func (r *intakeRepo) Create(ctx context.Context, sub *domain.IntakeSubmission) error {
	platforms := sub.Platforms
	if platforms == nil {
		platforms = map[string]domain.PlatformAnswer{}
	}
	platformsJSON, err := json.Marshal(platforms)
	if err != nil {
		return fmt.Errorf("failed to encode intake platforms: %w", err)
	}

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO intake_submissions (
				full_name, email, business_name, business_type, posting_frequency,
				pain_point, extra_notes, platforms, intake_token
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at
		`, sub.FullName, sub.Email, sub.BusinessName, sub.BusinessType, sub.PostingFrequency,
			sub.PainPoint, sub.ExtraNotes, string(platformsJSON), sub.IntakeToken,
		).Scan(&sub.ID, &sub.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create intake submission: %w", err)
		}

		if sub.IntakeToken == nil || *sub.IntakeToken == "" {
			return nil
		}
		_, err = tx.Exec(ctx, `
			UPDATE video_requests SET intake_completed = TRUE, updated_at = NOW()
			WHERE intake_token = $1
		`, *sub.IntakeToken)
		if err != nil {
			return fmt.Errorf("failed to mark intake completed: %w", err)
		}
		return nil
	})
}
