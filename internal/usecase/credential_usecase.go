package usecase

import (
	"context"
	"net/http"
	"strings"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/apperror"
	"autopost-backend/pkg/security"
	"autopost-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type credentialUsecase struct {
	repo     domain.CredentialRepository
	cipher   domain.Cipher
	notifier domain.Notifier
	audit    *security.SecurityLogger
	validate *validator.Validate
}

func NewCredentialUsecase(
	repo domain.CredentialRepository,
	cipher domain.Cipher,
	notifier domain.Notifier,
	audit *security.SecurityLogger,
	validate *validator.Validate,
) domain.CredentialUsecase {
	return &credentialUsecase{
		repo:     repo,
		cipher:   cipher,
		notifier: notifier,
		audit:    audit,
		validate: validate,
	}
}

// Submit seals the password and 2FA codes before they reach the
// repository. Neither value is ever logged or queued.
func (u *credentialUsecase) Submit(ctx context.Context, req domain.CredentialRequest) (*domain.CredentialReceipt, error) {
	userID, ok := ctx.Value(domain.KeyUserID).(string)
	if !ok || userID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}

	req.Platform = strings.ToLower(strings.TrimSpace(req.Platform))
	req.Username = strings.TrimSpace(req.Username)
	if err := u.validate.Struct(req); err != nil {
		return nil, apperror.Validation("Validation failed", validation.FormatValidationErrors(err))
	}
	if u.cipher == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "Credential storage is not configured", nil)
	}

	password, err := u.cipher.Seal([]byte(req.Password))
	if err != nil {
		return nil, apperror.Internal(err)
	}
	var twoFactor []byte
	if req.TwoFactorBackup != "" {
		if twoFactor, err = u.cipher.Seal([]byte(req.TwoFactorBackup)); err != nil {
			return nil, apperror.Internal(err)
		}
	}

	cred := &domain.StoredCredential{
		UserID:              userID,
		Platform:            req.Platform,
		Username:            req.Username,
		PasswordCiphertext:  password,
		TwoFactorCiphertext: twoFactor,
		Notes:               optional(req.Notes),
	}
	if err := u.repo.Upsert(ctx, cred); err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to save credentials", err)
	}

	if u.audit != nil {
		u.audit.LogCredentialsSubmitted(ctx, userID, req.Platform)
	}
	userEmail, _ := ctx.Value(domain.KeyUserEmail).(string)
	notifyQuietly(ctx, u.notifier, domain.Notification{
		Kind: domain.NotifyCredentials,
		Credentials: &domain.CredentialsNotice{
			Platform:  req.Platform,
			Username:  req.Username,
			UserEmail: userEmail,
		},
	})

	return &domain.CredentialReceipt{
		ID:           cred.ID,
		Platform:     cred.Platform,
		PlatformName: domain.PlatformDisplayName(cred.Platform),
		Username:     cred.Username,
		SubmittedAt:  cred.SubmittedAt,
	}, nil
}
