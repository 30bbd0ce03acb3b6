package ports

import (
	"context"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

// HapticDeliverer pushes one calibrated payload to one participant's device.
type HapticDeliverer interface {
	Deliver(ctx context.Context, payload domain.Payload) error
}
