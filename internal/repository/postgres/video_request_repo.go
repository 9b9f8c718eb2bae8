package postgres

import (
	"context"
	"errors"
	"fmt"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

type videoRequestRepo struct {
	db database.DB
}

func NewVideoRequestRepository(db database.DB) domain.VideoRequestRepository {
	return &videoRequestRepo{db: db}
}

const videoRequestColumns = `
	id, user_id, name, email, video_link, platforms, frequency, notes, business_type,
	drive_upload_status, drive_file_ids, file_name, archive_key, status, approved_at,
	intake_token, intake_completed, submitted_at, created_at, updated_at`

func scanVideoRequest(row pgx.Row) (*domain.VideoRequest, error) {
	var v domain.VideoRequest
	var driveStatus, status string
	err := row.Scan(
		&v.ID, &v.UserID, &v.Name, &v.Email, &v.VideoLink, &v.Platforms, &v.Frequency,
		&v.Notes, &v.BusinessType, &driveStatus, &v.DriveFileIDs, &v.FileName, &v.ArchiveKey,
		&status, &v.ApprovedAt, &v.IntakeToken, &v.IntakeCompleted,
		&v.SubmittedAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.DriveUploadStatus = domain.DriveUploadStatus(driveStatus)
	v.Status = domain.RequestStatus(status)
	if v.Platforms == nil {
		v.Platforms = []string{}
	}
	return &v, nil
}

func (r *videoRequestRepo) Create(ctx context.Context, req *domain.VideoRequest) error {
	if req.DriveUploadStatus == "" {
		req.DriveUploadStatus = domain.DriveStatusPending
	}
	if req.Status == "" {
		req.Status = domain.RequestPending
	}
	platforms := req.Platforms
	if platforms == nil {
		platforms = []string{}
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO video_requests (
			user_id, name, email, video_link, platforms, frequency, notes,
			business_type, drive_upload_status, status, intake_token
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, submitted_at, created_at, updated_at
	`, req.UserID, req.Name, req.Email, req.VideoLink, pq.Array(platforms), req.Frequency, req.Notes,
		req.BusinessType, string(req.DriveUploadStatus), string(req.Status), req.IntakeToken,
	).Scan(&req.ID, &req.SubmittedAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create video request: %w", err)
	}
	return nil
}

func (r *videoRequestRepo) getOne(ctx context.Context, where string, arg any) (*domain.VideoRequest, error) {
	v, err := scanVideoRequest(r.db.QueryRow(ctx,
		`SELECT `+videoRequestColumns+` FROM video_requests WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get video request: %w", err)
	}
	return v, nil
}

func (r *videoRequestRepo) GetByID(ctx context.Context, id string) (*domain.VideoRequest, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *videoRequestRepo) GetByIntakeToken(ctx context.Context, token string) (*domain.VideoRequest, error) {
	return r.getOne(ctx, "intake_token = $1", token)
}

func (r *videoRequestRepo) MarkUploaded(ctx context.Context, id string, fileIDs []string, fileName string) error {
	return r.exec(ctx, "mark video request uploaded", `
		UPDATE video_requests
		SET drive_upload_status = $2, drive_file_ids = $3, file_name = $4, updated_at = NOW()
		WHERE id = $1
	`, id, string(domain.DriveStatusUploaded), pq.Array(fileIDs), fileName)
}

func (r *videoRequestRepo) MarkFailed(ctx context.Context, id string) error {
	return r.exec(ctx, "mark video request failed", `
		UPDATE video_requests SET drive_upload_status = $2, updated_at = NOW() WHERE id = $1
	`, id, string(domain.DriveStatusFailed))
}

func (r *videoRequestRepo) SetArchiveKey(ctx context.Context, id, key string) error {
	return r.exec(ctx, "set archive key", `
		UPDATE video_requests SET archive_key = $2, updated_at = NOW() WHERE id = $1
	`, id, key)
}

func (r *videoRequestRepo) LinkUser(ctx context.Context, token, userID string) error {
	return r.exec(ctx, "link video request to user", `
		UPDATE video_requests SET user_id = $2, updated_at = NOW() WHERE intake_token = $1
	`, token, userID)
}

// exec runs a single-row update and reports ErrNotFound when nothing matched.
func (r *videoRequestRepo) exec(ctx context.Context, op, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *videoRequestRepo) ListBetaRequests(ctx context.Context, page, pageSize int) ([]domain.VideoRequest, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM video_requests WHERE drive_upload_status = $1`,
		string(domain.DriveStatusBetaRequest),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count beta requests: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := r.db.Query(ctx, `
		SELECT `+videoRequestColumns+`
		FROM video_requests
		WHERE drive_upload_status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, string(domain.DriveStatusBetaRequest), pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list beta requests: %w", err)
	}
	defer rows.Close()

	list, err := collectVideoRequests(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *videoRequestRepo) ListAllBetaRequests(ctx context.Context) ([]domain.VideoRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+videoRequestColumns+`
		FROM video_requests
		WHERE drive_upload_status = $1
		ORDER BY created_at DESC
	`, string(domain.DriveStatusBetaRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to list beta requests: %w", err)
	}
	defer rows.Close()
	return collectVideoRequests(rows)
}

func collectVideoRequests(rows pgx.Rows) ([]domain.VideoRequest, error) {
	list := []domain.VideoRequest{}
	for rows.Next() {
		v, err := scanVideoRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video request: %w", err)
		}
		list = append(list, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating video requests: %w", err)
	}
	return list, nil
}

// UpdateStatus stamps approved_at only on the first approval.
func (r *videoRequestRepo) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) (*domain.VideoRequest, error) {
	v, err := scanVideoRequest(r.db.QueryRow(ctx, `
		UPDATE video_requests
		SET status = $2,
		    approved_at = CASE WHEN $2 = 'approved' THEN COALESCE(approved_at, NOW()) ELSE approved_at END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+videoRequestColumns,
		id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update video request status: %w", err)
	}
	return v, nil
}
