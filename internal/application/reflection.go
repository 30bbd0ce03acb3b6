package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

// OpenReflection creates the session's reflection circle. It is idempotent
// once the circle exists.
func (c *Coordinator) OpenReflection(ctx context.Context, id domain.SessionID) (domain.CircleID, error) {
	unlock, err := c.lock(ctx, id)
	if err != nil {
		return "", err
	}
	defer unlock()

	session, err := c.load(ctx, id)
	if err != nil {
		return "", err
	}
	return c.openReflectionLocked(ctx, &session)
}

func (c *Coordinator) openReflectionLocked(ctx context.Context, session *domain.Session) (domain.CircleID, error) {
	if session.State == domain.StateReflectionOpen && session.ReflectionCircleID != "" {
		return session.ReflectionCircleID, nil
	}
	if session.State != domain.StateDelivered || session.Delivery == nil {
		return "", &domain.Error{
			Kind:      domain.KindSessionState,
			SessionID: session.ID,
			Err:       fmt.Errorf("cannot open reflection on a %s session", session.State),
		}
	}

	now := c.clock.Now()
	circle := domain.ReflectionCircle{
		ID:        domain.CircleID(c.newID()),
		SessionID: session.ID,
		Eligible:  append([]domain.ParticipantID(nil), session.Delivery.Members...),
		OpenedAt:  now,
	}
	if err := c.reflections.CreateCircle(ctx, circle); err != nil {
		return "", fmt.Errorf("create reflection circle: %w", err)
	}

	if err := session.Transition(domain.StateReflectionOpen, now); err != nil {
		return "", err
	}
	session.ReflectionCircleID = circle.ID
	if err := c.sessions.Save(ctx, *session); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	c.logger.Info("reflection circle opened", "session_id", session.ID, "circle_id", circle.ID, "eligible", len(circle.Eligible))
	c.publish(ctx, *session, domain.EventReflectionOpened, "", string(circle.ID))
	return circle.ID, nil
}

// SubmitReflection appends an entry from a participant who was a member when
// delivery began. Entries are never rewritten.
func (c *Coordinator) SubmitReflection(ctx context.Context, cmd SubmitReflectionCommand) error {
	unlock, err := c.lock(ctx, cmd.SessionID)
	if err != nil {
		return err
	}
	defer unlock()

	session, err := c.load(ctx, cmd.SessionID)
	if err != nil {
		return err
	}

	if session.State != domain.StateReflectionOpen {
		return &domain.Error{
			Kind:        domain.KindSessionState,
			SessionID:   session.ID,
			Participant: cmd.ParticipantID,
			Err:         fmt.Errorf("reflections are not accepted while %s", session.State),
		}
	}
	if session.Delivery == nil || !session.Delivery.WasMember(cmd.ParticipantID) {
		return &domain.Error{
			Kind:        domain.KindSessionState,
			SessionID:   session.ID,
			Participant: cmd.ParticipantID,
			Err:         errors.New("participant was not a member when the pulse was delivered"),
		}
	}

	entry := cmd.Entry.Normalize()
	entry.ParticipantID = cmd.ParticipantID
	entry.SubmittedAt = c.clock.Now()
	if err := entry.Validate(); err != nil {
		return &domain.Error{
			Kind:        domain.KindInvalidConfig,
			SessionID:   session.ID,
			Participant: cmd.ParticipantID,
			Err:         err,
		}
	}

	if err := c.reflections.Append(ctx, session.ReflectionCircleID, entry); err != nil {
		return fmt.Errorf("append reflection: %w", err)
	}

	recordReflection()
	c.publish(ctx, session, domain.EventReflectionSubmitted, cmd.ParticipantID, "")
	return nil
}

func (c *Coordinator) GetReflections(ctx context.Context, id domain.SessionID) (ReflectionView, error) {
	session, err := c.load(ctx, id)
	if err != nil {
		return ReflectionView{}, err
	}
	if session.ReflectionCircleID == "" {
		return ReflectionView{}, &domain.Error{
			Kind:      domain.KindSessionState,
			SessionID: id,
			Err:       errors.New("session has no reflection circle"),
		}
	}

	circle, err := c.reflections.Circle(ctx, session.ReflectionCircleID)
	if err != nil {
		return ReflectionView{}, fmt.Errorf("get reflection circle: %w", err)
	}
	entries, err := c.reflections.Get(ctx, session.ReflectionCircleID)
	if err != nil {
		return ReflectionView{}, fmt.Errorf("get reflections: %w", err)
	}

	return ReflectionView{
		Circle:  circle,
		Entries: entries,
		Summary: domain.Summarize(circle, entries),
	}, nil
}
