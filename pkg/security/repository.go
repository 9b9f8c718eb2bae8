package security

import (
	"context"
	"encoding/json"
	"fmt"

	"autopost-backend/pkg/database"
)

// SecurityEventRepository writes security events to the security_events table.
type SecurityEventRepository struct {
	db database.DB
}

func NewSecurityEventRepository(db database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

// PersistEvent inserts a security event into the database
func (r *SecurityEventRepository) PersistEvent(ctx context.Context, event SecurityEvent) error {
	query := `
		INSERT INTO security_events (
			event_type, service, environment, level,
			subject_type, subject_value, ip_address, user_agent,
			request_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	detailsJSON := []byte("null")
	if len(event.Details) > 0 {
		b, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to encode security event details: %w", err)
		}
		detailsJSON = b
	}

	// inet column rejects empty strings
	var ipAddr interface{}
	if event.IP != "" {
		ipAddr = event.IP
	}

	_, err := r.db.Exec(ctx, query,
		string(event.Event),
		event.Service,
		event.Environment,
		event.Level,
		event.SubjectType,
		event.SubjectValue,
		ipAddr,
		event.UserAgent,
		event.RequestID,
		detailsJSON,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to persist security event: %w", err)
	}

	return nil
}

