package toml

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports"
	"github.com/spf13/viper"
)

const (
	RosterPathKey  = "roster.path"
	rosterFileName = "participants.toml"
	rosterLabel    = "participants"
)

type participantsFileSchema struct {
	Version      int                 `toml:"version"`
	Participants []participantSchema `toml:"participants"`
}

type participantSchema struct {
	ID          string            `toml:"id"`
	DisplayName string            `toml:"display_name,omitempty"`
	Calibration calibrationSchema `toml:"calibration,omitempty"`
}

// Roster is the registered participant list with each wearer's calibration.
type Roster struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.Roster = (*Roster)(nil)

func NewRoster(cfg *viper.Viper) (*Roster, error) {
	path, err := resolvePath(cfg, RosterPathKey, rosterFileName)
	if err != nil {
		return nil, err
	}

	return &Roster{path: path, mu: lockForPath(path)}, nil
}

// Register adds the participant or replaces its display name and calibration.
func (r *Roster) Register(ctx context.Context, participant domain.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := participant.Validate(); err != nil {
		return fmt.Errorf("validate participant: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return withFileLock(ctx, r.path, func() error {
		return r.register(participant)
	})
}

func (r *Roster) register(participant domain.Participant) error {
	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := participantSchema{
		ID:          string(participant.ID),
		DisplayName: participant.DisplayName,
		Calibration: toCalibrationSchema(participant.Calibration),
	}
	updated := false
	for i := range file.Participants {
		if file.Participants[i].ID == encoded.ID {
			file.Participants[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Participants = append(file.Participants, encoded)
	}

	if file.Version == 0 {
		file.Version = currentSchemaVersion
	}
	return writeTOMLFile(r.path, rosterLabel, file)
}

func (r *Roster) IsRegistered(ctx context.Context, id domain.ParticipantID) (bool, error) {
	_, err := r.Participant(ctx, id)
	if errors.Is(err, domain.ErrParticipantNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Roster) Participant(ctx context.Context, id domain.ParticipantID) (domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Participant{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Participant{}, err
	}

	for _, entry := range file.Participants {
		if entry.ID == string(id) {
			return fromParticipantSchema(entry), nil
		}
	}
	return domain.Participant{}, domain.ErrParticipantNotFound
}

// List returns participants ordered by id.
func (r *Roster) List(ctx context.Context) ([]domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	participants := make([]domain.Participant, 0, len(file.Participants))
	for _, entry := range file.Participants {
		participants = append(participants, fromParticipantSchema(entry))
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i].ID < participants[j].ID })
	return participants, nil
}

func (r *Roster) readSchema() (participantsFileSchema, error) {
	var file participantsFileSchema
	if err := readTOMLFile(r.path, rosterLabel, &file); err != nil {
		return participantsFileSchema{}, err
	}
	if err := validateVersion(file.Version, rosterLabel); err != nil {
		return participantsFileSchema{}, err
	}
	return file, nil
}

func fromParticipantSchema(entry participantSchema) domain.Participant {
	return domain.Participant{
		ID:          domain.ParticipantID(entry.ID),
		DisplayName: entry.DisplayName,
		Calibration: fromCalibrationSchema(entry.Calibration),
	}
}
