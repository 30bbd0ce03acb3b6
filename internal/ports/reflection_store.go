package ports

import (
	"context"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

// ReflectionStore is append-only: entries are never rewritten once stored.
type ReflectionStore interface {
	CreateCircle(ctx context.Context, circle domain.ReflectionCircle) error
	Circle(ctx context.Context, id domain.CircleID) (domain.ReflectionCircle, error)
	CloseCircle(ctx context.Context, id domain.CircleID, closedAt time.Time) error
	Append(ctx context.Context, id domain.CircleID, entry domain.ReflectionEntry) error
	Get(ctx context.Context, id domain.CircleID) ([]domain.ReflectionEntry, error)
}
