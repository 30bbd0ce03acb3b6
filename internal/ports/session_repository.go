package ports

import (
	"context"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

// SessionRepository persists sessions. GetByID returns an error matching
// domain.ErrSessionNotFound for unknown ids.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	List(ctx context.Context) ([]domain.Session, error)
}

// SessionLocker serializes changes to one session across processes sharing
// the same store. The returned func releases the lock.
type SessionLocker interface {
	LockSession(ctx context.Context, id domain.SessionID) (func(), error)
}
