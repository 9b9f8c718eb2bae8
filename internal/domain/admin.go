package domain

import (
	"context"
	"time"
)

type AppRole string

const (
	RoleAdmin AppRole = "admin"
	RoleUser  AppRole = "user"
)

// ============================================================================
// Authorization
// ============================================================================

type Decision string

const (
	DecisionAuthorized Decision = "authorized"
	DecisionDenied     Decision = "denied"
)

type DenyReason string

const (
	ReasonUnauthenticated  DenyReason = "unauthenticated"
	ReasonRoleMissing      DenyReason = "role_missing"
	ReasonRoleLookupFailed DenyReason = "role_lookup_failed"
)

// Authorization is the single outcome of an admin check.
type Authorization struct {
	Decision Decision   `json:"decision"`
	Reason   DenyReason `json:"reason,omitempty"`
}

func Authorized() Authorization {
	return Authorization{Decision: DecisionAuthorized}
}

func Denied(reason DenyReason) Authorization {
	return Authorization{Decision: DecisionDenied, Reason: reason}
}

func (a Authorization) Allowed() bool {
	return a.Decision == DecisionAuthorized
}

type Authorizer interface {
	Authorize(ctx context.Context, userID string) Authorization
}

type RoleRepository interface {
	HasRole(ctx context.Context, userID string, role AppRole) (bool, error)
}

// ============================================================================
// Admin views
// ============================================================================

// PaginatedResult for list responses
type PaginatedResult[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

type Workflow struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	SourcePlatform      string    `json:"sourcePlatform"`
	DestinationPlatform string    `json:"destinationPlatform"`
	Enabled             bool      `json:"enabled"`
	CreatedAt           time.Time `json:"createdAt"`
}

type AdminWorkflow struct {
	Workflow
	SourceName      string `json:"sourceName"`
	DestinationName string `json:"destinationName"`
}

// AdminCredential is a decrypted credential as shown to admins.
type AdminCredential struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Platform        string    `json:"platform"`
	PlatformName    string    `json:"platformName"`
	Username        string    `json:"username"`
	Password        string    `json:"password"`
	TwoFactorBackup *string   `json:"twoFactorBackup,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

// UserOverview groups a user's credentials and workflows.
type UserOverview struct {
	UserID      string            `json:"userId"`
	Credentials []AdminCredential `json:"credentials"`
	Workflows   []AdminWorkflow   `json:"workflows"`
}

type RejectRequest struct {
	Notify bool `json:"notify"`
}

// AdminRepository defines admin-specific data access
type AdminRepository interface {
	ListWorkflows(ctx context.Context) ([]Workflow, error)
}

// AdminUsecase defines admin business logic
type AdminUsecase interface {
	// Beta requests
	ListBetaRequests(ctx context.Context, page, pageSize int) (*PaginatedResult[VideoRequest], error)
	ApproveBetaRequest(ctx context.Context, id string) (*VideoRequest, error)
	RejectBetaRequest(ctx context.Context, id string, notify bool) (*VideoRequest, error)
	ExportBetaRequests(ctx context.Context) ([]byte, string, error)

	// Credentials and workflows
	ListCredentials(ctx context.Context) ([]AdminCredential, error)
	ListUsers(ctx context.Context) ([]UserOverview, error)
	ListWorkflows(ctx context.Context) ([]AdminWorkflow, error)
}
