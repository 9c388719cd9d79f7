package ports

// Package ports defines interfaces (hexagonal ports) for session behavior.
// Implementations live in internal/adapters; orchestration in internal/httpx.

import (
	"context"

	domainauth "github.com/soundrise/creator-api/internal/domain/auth"
)

// SessionStore persists and retrieves user sessions. Authentication is
// handled by an upstream service; stores here only resolve tokens that
// upstream issued.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}
