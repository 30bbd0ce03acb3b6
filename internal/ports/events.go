package ports

import (
	"context"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
