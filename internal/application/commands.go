package application

import (
	"github.com/bnema/mycelium-pulse/internal/domain"
)

type ScheduleCommand struct {
	Initiator domain.ParticipantID
	Config    domain.SessionConfig
}

type SubmitReflectionCommand struct {
	SessionID     domain.SessionID
	ParticipantID domain.ParticipantID
	Entry         domain.ReflectionEntry
}
