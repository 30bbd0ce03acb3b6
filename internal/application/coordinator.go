package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports"
	"github.com/bnema/mycelium-pulse/internal/translate"
	"github.com/google/uuid"
)

type CoordinatorDeps struct {
	Sessions    ports.SessionRepository
	Reflections ports.ReflectionStore
	Readings    ports.ReadingSource
	Roster      ports.Roster
	Haptics     ports.HapticDeliverer
	Registry    *translate.Registry
	// Optional.
	Events ports.EventPublisher
	Clock  ports.Clock
	Logger *slog.Logger
	NewID  func() string
	// Locker defaults to Sessions when it implements ports.SessionLocker.
	Locker ports.SessionLocker
}

// Coordinator owns the session lifecycle. Every state change for one session
// runs under that session's lock; different sessions never contend. With a
// SessionLocker the lock also holds against other processes on the same store.
type Coordinator struct {
	sessions    ports.SessionRepository
	reflections ports.ReflectionStore
	readings    ports.ReadingSource
	roster      ports.Roster
	haptics     ports.HapticDeliverer
	events      ports.EventPublisher
	registry    *translate.Registry
	clock       ports.Clock
	logger      *slog.Logger
	newID       func() string
	locker      ports.SessionLocker
	opts        CoordinatorOptions

	locksMu sync.Mutex
	locks   map[domain.SessionID]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewCoordinator(deps CoordinatorDeps, opts CoordinatorOptions) (*Coordinator, error) {
	switch {
	case deps.Sessions == nil:
		return nil, errors.New("session repository is required")
	case deps.Reflections == nil:
		return nil, errors.New("reflection store is required")
	case deps.Readings == nil:
		return nil, errors.New("reading source is required")
	case deps.Roster == nil:
		return nil, errors.New("roster is required")
	case deps.Haptics == nil:
		return nil, errors.New("haptic deliverer is required")
	case deps.Registry == nil:
		return nil, errors.New("translator registry is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validate coordinator options: %w", err)
	}

	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Locker == nil {
		if locker, ok := deps.Sessions.(ports.SessionLocker); ok {
			deps.Locker = locker
		}
	}

	return &Coordinator{
		sessions:    deps.Sessions,
		reflections: deps.Reflections,
		readings:    deps.Readings,
		roster:      deps.Roster,
		haptics:     deps.Haptics,
		events:      deps.Events,
		registry:    deps.Registry,
		clock:       deps.Clock,
		logger:      deps.Logger.With("component", "coordinator"),
		newID:       deps.NewID,
		locker:      deps.Locker,
		opts:        opts,
		locks:       map[domain.SessionID]*sessionLock{},
	}, nil
}

func (c *Coordinator) Options() CoordinatorOptions {
	return c.opts
}

func (c *Coordinator) ScheduleSession(ctx context.Context, cmd ScheduleCommand) (domain.SessionID, error) {
	now := c.clock.Now()
	cfg := cmd.Config
	if cfg.JoinLead == 0 {
		cfg.JoinLead = c.opts.JoinLead
	}

	if strings.TrimSpace(string(cmd.Initiator)) == "" {
		return "", &domain.Error{Kind: domain.KindInvalidConfig, Err: errors.New("initiator is required")}
	}
	if err := cfg.Validate(now); err != nil {
		return "", &domain.Error{Kind: domain.KindInvalidConfig, Err: err}
	}
	for _, id := range cfg.Domains {
		if _, err := c.registry.Lookup(id); err != nil {
			return "", err
		}
	}

	registered, err := c.roster.IsRegistered(ctx, cmd.Initiator)
	if err != nil {
		return "", fmt.Errorf("check initiator registration: %w", err)
	}
	if !registered {
		return "", &domain.Error{
			Kind:        domain.KindInvalidConfig,
			Participant: cmd.Initiator,
			Err:         fmt.Errorf("initiator is not registered: %w", domain.ErrParticipantNotFound),
		}
	}

	session := domain.NewSession(domain.SessionID(c.newID()), cmd.Initiator, cfg, now)
	if err := c.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	recordScheduled()
	c.logger.Info("session scheduled",
		"session_id", session.ID,
		"domains", session.Domains,
		"focus_area", session.FocusArea,
		"scheduled_at", session.ScheduledAt,
	)
	c.publish(ctx, session, domain.EventScheduled, "", "")

	return session.ID, nil
}

// JoinSession is idempotent. Membership may change from creation until the
// scheduled instant, in both the Scheduled and Open states.
func (c *Coordinator) JoinSession(ctx context.Context, id domain.SessionID, participant domain.ParticipantID) error {
	registered, err := c.roster.IsRegistered(ctx, participant)
	if err != nil {
		return fmt.Errorf("check participant registration: %w", err)
	}
	if !registered {
		return &domain.Error{
			Kind:        domain.KindNotFound,
			SessionID:   id,
			Participant: participant,
			Err:         domain.ErrParticipantNotFound,
		}
	}

	unlock, err := c.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	session, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	now := c.clock.Now()
	opened := c.openIfDue(&session, now)

	if !session.JoinWindowOpen(now) {
		return notJoinable(session, participant, now)
	}
	if session.IsMember(participant) {
		return c.saveIfOpened(ctx, session, opened)
	}
	if session.Full() {
		return &domain.Error{
			Kind:        domain.KindSessionNotJoinable,
			SessionID:   id,
			Participant: participant,
			Err:         fmt.Errorf("session is full (%d participants)", session.Capacity),
		}
	}

	session.AddMember(participant, now)
	if err := c.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if opened {
		c.publish(ctx, session, domain.EventOpened, "", "")
	}
	c.publish(ctx, session, domain.EventJoined, participant, "")
	return nil
}

// LeaveSession removes a member; removing a non-member is a no-op.
func (c *Coordinator) LeaveSession(ctx context.Context, id domain.SessionID, participant domain.ParticipantID) error {
	unlock, err := c.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	session, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	now := c.clock.Now()
	opened := c.openIfDue(&session, now)

	if !session.JoinWindowOpen(now) {
		return notJoinable(session, participant, now)
	}
	if !session.RemoveMember(participant, now) {
		return c.saveIfOpened(ctx, session, opened)
	}

	if err := c.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if opened {
		c.publish(ctx, session, domain.EventOpened, "", "")
	}
	c.publish(ctx, session, domain.EventLeft, participant, "")
	return nil
}

// CancelSession is allowed only before delivery begins.
func (c *Coordinator) CancelSession(ctx context.Context, id domain.SessionID, reason string) error {
	unlock, err := c.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	session, err := c.load(ctx, id)
	if err != nil {
		return err
	}

	if err := c.cancelLocked(ctx, &session, reason); err != nil {
		return err
	}
	recordCancelled("manual")
	return nil
}

func (c *Coordinator) cancelLocked(ctx context.Context, session *domain.Session, reason string) error {
	if session.State.DeliveryStarted() {
		return &domain.Error{
			Kind:      domain.KindSessionState,
			SessionID: session.ID,
			Err:       fmt.Errorf("cannot cancel a %s session, close it instead", session.State),
		}
	}
	if err := session.Transition(domain.StateCancelled, c.clock.Now()); err != nil {
		return err
	}
	session.CancelReason = strings.TrimSpace(reason)

	if err := c.sessions.Save(ctx, *session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	c.logger.Info("session cancelled", "session_id", session.ID, "reason", session.CancelReason)
	c.publish(ctx, *session, domain.EventCancelled, "", session.CancelReason)
	return nil
}

// CloseSession moves a delivered session to Closed and seals its reflection
// circle. Closing twice fails.
func (c *Coordinator) CloseSession(ctx context.Context, id domain.SessionID) error {
	unlock, err := c.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	session, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	return c.closeLocked(ctx, &session)
}

func (c *Coordinator) closeLocked(ctx context.Context, session *domain.Session) error {
	now := c.clock.Now()
	if !session.State.CanTransitionTo(domain.StateClosed) {
		return &domain.Error{
			Kind:      domain.KindSessionState,
			SessionID: session.ID,
			Err:       fmt.Errorf("cannot close a %s session", session.State),
		}
	}

	if session.ReflectionCircleID != "" {
		if err := c.reflections.CloseCircle(ctx, session.ReflectionCircleID, now); err != nil {
			return fmt.Errorf("close reflection circle: %w", err)
		}
	}
	if err := session.Transition(domain.StateClosed, now); err != nil {
		return err
	}
	if err := c.sessions.Save(ctx, *session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	c.logger.Info("session closed", "session_id", session.ID)
	c.publish(ctx, *session, domain.EventClosed, "", "")
	return nil
}

func (c *Coordinator) GetSessionState(ctx context.Context, id domain.SessionID) (SessionSnapshot, error) {
	session, err := c.load(ctx, id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return c.snapshot(session), nil
}

// ListSessions returns snapshots ordered by scheduled time, then id.
func (c *Coordinator) ListSessions(ctx context.Context) ([]SessionSnapshot, error) {
	sessions, err := c.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].ScheduledAt.Equal(sessions[j].ScheduledAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].ScheduledAt.Before(sessions[j].ScheduledAt)
	})

	snapshots := make([]SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		snapshots = append(snapshots, c.snapshot(s))
	}
	return snapshots, nil
}

func (c *Coordinator) snapshot(session domain.Session) SessionSnapshot {
	now := c.clock.Now()
	view := session.Clone()
	c.openIfDue(&view, now)
	return SessionSnapshot{
		Session:        view,
		Members:        view.MemberList(),
		JoinWindowOpen: view.JoinWindowOpen(now),
		AsOf:           now,
	}
}

func (c *Coordinator) load(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	session, err := c.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Session{}, domain.WithSession(err, id)
		}
		return domain.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return session, nil
}

// openIfDue applies the lazy Scheduled -> Open transition.
func (c *Coordinator) openIfDue(session *domain.Session, now time.Time) bool {
	if session.State != domain.StateScheduled || now.Before(session.JoinOpensAt) {
		return false
	}
	return session.Transition(domain.StateOpen, now) == nil
}

func (c *Coordinator) saveIfOpened(ctx context.Context, session domain.Session, opened bool) error {
	if !opened {
		return nil
	}
	if err := c.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	c.publish(ctx, session, domain.EventOpened, "", "")
	return nil
}

// lock takes the in-process lock for id, then the cross-process one when a
// locker is configured. Entries are dropped once nobody holds or waits on them.
func (c *Coordinator) lock(ctx context.Context, id domain.SessionID) (func(), error) {
	c.locksMu.Lock()
	entry, ok := c.locks[id]
	if !ok {
		entry = &sessionLock{}
		c.locks[id] = entry
	}
	entry.refs++
	c.locksMu.Unlock()

	entry.mu.Lock()
	release := func() {
		entry.mu.Unlock()
		c.locksMu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(c.locks, id)
		}
		c.locksMu.Unlock()
	}

	if c.locker == nil {
		return release, nil
	}
	unlockStore, err := c.locker.LockSession(ctx, id)
	if err != nil {
		release()
		return nil, fmt.Errorf("lock session %s: %w", id, err)
	}
	return func() {
		unlockStore()
		release()
	}, nil
}

// publish is best effort: a broken event sink never fails a session operation.
func (c *Coordinator) publish(ctx context.Context, session domain.Session, kind domain.EventType, participant domain.ParticipantID, detail string) {
	if c.events == nil {
		return
	}
	event := domain.Event{
		Type:          kind,
		SessionID:     session.ID,
		ParticipantID: participant,
		State:         session.State,
		Detail:        detail,
		At:            c.clock.Now(),
	}
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn("publish session event", "session_id", session.ID, "event", kind, "error", err)
	}
}

func notJoinable(session domain.Session, participant domain.ParticipantID, now time.Time) error {
	reason := fmt.Sprintf("session is %s", session.State)
	if session.State.Joinable() && !now.Before(session.ScheduledAt) {
		reason = fmt.Sprintf("join window closed at %s", session.ScheduledAt.Format(time.RFC3339))
	}
	return &domain.Error{
		Kind:        domain.KindSessionNotJoinable,
		SessionID:   session.ID,
		Participant: participant,
		Err:         errors.New(reason),
	}
}
