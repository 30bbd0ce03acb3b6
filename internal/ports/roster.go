package ports

import (
	"context"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

type Roster interface {
	IsRegistered(ctx context.Context, id domain.ParticipantID) (bool, error)
	Participant(ctx context.Context, id domain.ParticipantID) (domain.Participant, error)
}
