package domain

import (
	"context"
	"time"
)

// StoredCredential is a row of platform_credentials. Secrets are sealed.
type StoredCredential struct {
	ID                  string
	UserID              string
	Platform            string
	Username            string
	PasswordCiphertext  []byte
	TwoFactorCiphertext []byte
	Notes               *string
	SubmittedAt         time.Time
	UpdatedAt           time.Time
}

type CredentialRequest struct {
	Platform        string `json:"platform" validate:"required,max=50"`
	Username        string `json:"username" validate:"required,max=255"`
	Password        string `json:"password" validate:"required,max=500"`
	TwoFactorBackup string `json:"twoFactorBackup" validate:"max=1000"`
	Notes           string `json:"notes" validate:"max=1000"`
}

type CredentialReceipt struct {
	ID           string    `json:"id"`
	Platform     string    `json:"platform"`
	PlatformName string    `json:"platformName"`
	Username     string    `json:"username"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Cipher seals credential secrets at rest.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

type CredentialRepository interface {
	// Upsert inserts or replaces the credential for (user, platform) and
	// fills ID and timestamps.
	Upsert(ctx context.Context, cred *StoredCredential) error
	ListAll(ctx context.Context) ([]StoredCredential, error)
}

type CredentialUsecase interface {
	Submit(ctx context.Context, req CredentialRequest) (*CredentialReceipt, error)
}
