package domain

type CtxKey string

const (
	KeyUserID    CtxKey = "UserID"
	KeyUserEmail CtxKey = "Email"
	KeyUserRole  CtxKey = "Role"
	KeyRequestID CtxKey = "RequestID"
)

// AnonymousUserID is recorded on relay uploads made without a session.
const AnonymousUserID = "00000000-0000-0000-0000-000000000000"
