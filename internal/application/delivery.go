package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/translate"
	"golang.org/x/sync/errgroup"
)

var errNoFreshReading = errors.New("no fresh reading")

// DeliverSession translates the freshest reading and fans the pulse out to
// every member. Calling it again after delivery began returns the stored
// result without broadcasting a second time.
//
// The session lock is held for the whole call, so a concurrent join or
// deliver waits and then observes the delivered state.
func (c *Coordinator) DeliverSession(ctx context.Context, id domain.SessionID) (DeliveryResult, error) {
	return c.DeliverSessionWithProgress(ctx, id, nil)
}

// DeliverSessionWithProgress is DeliverSession with report called as the
// delivery moves from waiting on readings to broadcasting, and after each
// participant is attempted. report runs on the delivering goroutines and
// must not block for long.
func (c *Coordinator) DeliverSessionWithProgress(ctx context.Context, id domain.SessionID, report func(DeliveryProgress)) (DeliveryResult, error) {
	if report == nil {
		report = func(DeliveryProgress) {}
	}

	unlock, err := c.lock(ctx, id)
	if err != nil {
		return DeliveryResult{}, err
	}
	defer unlock()

	session, err := c.load(ctx, id)
	if err != nil {
		return DeliveryResult{}, err
	}

	if session.State == domain.StateDelivering {
		return c.finishInterrupted(ctx, session)
	}
	if session.State.DeliveryStarted() && session.Delivery != nil {
		return resultFromSession(session, true), nil
	}

	now := c.clock.Now()
	if !session.State.Joinable() {
		return DeliveryResult{}, &domain.Error{
			Kind:      domain.KindSessionState,
			SessionID: id,
			Err:       fmt.Errorf("cannot deliver a %s session", session.State),
		}
	}
	if !session.Due(now) {
		return DeliveryResult{}, &domain.Error{
			Kind:      domain.KindSessionState,
			SessionID: id,
			Err:       fmt.Errorf("session is not due until %s", session.ScheduledAt.Format(time.RFC3339)),
		}
	}

	translators, err := c.translatorsFor(session)
	if err != nil {
		return DeliveryResult{}, domain.WithSession(err, id)
	}

	report(DeliveryProgress{Phase: PhaseAwaitingReadings, Members: len(session.Members)})
	readings, err := c.awaitReadings(ctx, session)
	if errors.Is(err, errNoFreshReading) {
		return c.cancelForNoData(ctx, session, err)
	}
	if err != nil {
		return DeliveryResult{}, err
	}

	patterns := make([]domain.FeedbackPattern, 0, len(translators))
	readingAt := readings[0].CapturedAt
	for i, t := range translators {
		pattern, err := t.Translate(readings[i])
		if err != nil {
			return DeliveryResult{}, domain.WithSession(err, id)
		}
		patterns = append(patterns, pattern)
		if readings[i].CapturedAt.Before(readingAt) {
			readingAt = readings[i].CapturedAt
		}
	}

	pulse, err := translate.Compose(patterns, session.Composition)
	if err != nil {
		return DeliveryResult{}, &domain.Error{Kind: domain.KindInvalidConfig, SessionID: id, Err: err}
	}

	// The snapshot taken here is the delivered-to set and the reflection
	// eligibility list.
	members := session.MemberList()
	startedAt := c.clock.Now()
	if err := session.Transition(domain.StateDelivering, startedAt); err != nil {
		return DeliveryResult{}, err
	}
	session.Delivery = &domain.Delivery{
		Pulse:     pulse,
		ReadingAt: readingAt,
		Members:   members,
		StartedAt: startedAt,
	}
	if err := c.sessions.Save(ctx, session); err != nil {
		return DeliveryResult{}, fmt.Errorf("save delivering session: %w", err)
	}
	c.publish(ctx, session, domain.EventDelivering, "", fmt.Sprintf("%d participants", len(members)))

	report(DeliveryProgress{Phase: PhaseBroadcasting, Members: len(members)})
	outcomes := c.fanOut(ctx, session, pulse, safeRange(translators), members, report)

	session.Delivery.Outcomes = outcomes
	return c.completeDelivery(ctx, session)
}

// errInterrupted marks members whose outcome was never recorded because the
// delivering process stopped mid fan-out.
const errInterrupted = "interrupted"

// finishInterrupted completes a delivery left in the delivering state. Members
// without an outcome are recorded as failed and nothing is resent, since some
// of them may already have felt the pulse.
func (c *Coordinator) finishInterrupted(ctx context.Context, session domain.Session) (DeliveryResult, error) {
	if session.Delivery == nil {
		session.Delivery = &domain.Delivery{Members: session.MemberList(), StartedAt: session.UpdatedAt}
	}

	recorded := make(map[domain.ParticipantID]bool, len(session.Delivery.Outcomes))
	for _, outcome := range session.Delivery.Outcomes {
		recorded[outcome.ParticipantID] = true
	}
	missing := 0
	for _, member := range session.Delivery.Members {
		if recorded[member] {
			continue
		}
		missing++
		session.Delivery.Outcomes = append(session.Delivery.Outcomes, domain.ParticipantOutcome{
			ParticipantID: member,
			Status:        domain.DeliveryFailed,
			Error:         errInterrupted,
			AttemptedAt:   session.Delivery.StartedAt,
		})
	}

	c.logger.Warn("finishing interrupted delivery",
		"session_id", session.ID,
		"started_at", session.Delivery.StartedAt,
		"unrecorded", missing,
	)
	return c.completeDelivery(ctx, session)
}

// completeDelivery records the outcomes already on session.Delivery and moves
// the session to delivered.
func (c *Coordinator) completeDelivery(ctx context.Context, session domain.Session) (DeliveryResult, error) {
	// The experience has happened; persist it even if the caller gave up.
	persistCtx := context.WithoutCancel(ctx)
	id := session.ID

	completedAt := c.clock.Now()
	session.Delivery.CompletedAt = completedAt
	if err := session.Transition(domain.StateDelivered, completedAt); err != nil {
		return DeliveryResult{}, err
	}
	if err := c.sessions.Save(persistCtx, session); err != nil {
		return DeliveryResult{}, fmt.Errorf("save delivered session: %w", err)
	}

	recordDelivered(completedAt.Sub(session.Delivery.StartedAt).Seconds())
	failures := session.Delivery.Failures()
	pattern := ""
	if len(session.Delivery.Pulse.Patterns) > 0 {
		pattern = string(session.Delivery.Pulse.Patterns[0].Type)
	}
	c.logger.Info("session delivered",
		"session_id", id,
		"pattern", pattern,
		"participants", len(session.Delivery.Members),
		"failed", len(failures),
	)
	for _, failure := range failures {
		c.publish(persistCtx, session, domain.EventParticipantFailed, failure.ParticipantID, failure.Error)
	}
	c.publish(persistCtx, session, domain.EventDelivered, "", "")

	if c.opts.AutoOpenReflection {
		if _, err := c.openReflectionLocked(persistCtx, &session); err != nil {
			c.logger.Error("open reflection circle", "session_id", id, "error", err)
		}
	}

	return resultFromSession(session, false), nil
}

func (c *Coordinator) translatorsFor(session domain.Session) ([]translate.Translator, error) {
	translators := make([]translate.Translator, 0, len(session.Domains))
	for _, d := range session.Domains {
		t, err := c.registry.Lookup(d)
		if err != nil {
			return nil, err
		}
		translators = append(translators, t)
	}
	return translators, nil
}

// awaitReadings polls until every domain has a reading inside the freshness
// window or ReadingTimeout elapses. Source errors are logged and retried.
func (c *Coordinator) awaitReadings(ctx context.Context, session domain.Session) ([]domain.Reading, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.opts.ReadingTimeout)
	defer cancel()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	readings := make([]domain.Reading, len(session.Domains))
	found := make([]bool, len(session.Domains))

	for {
		pending := 0
		for i, d := range session.Domains {
			if found[i] {
				continue
			}
			reading, err := c.readings.LatestReading(waitCtx, d, session.FocusArea, c.opts.FreshnessWindow)
			switch {
			case err == nil && reading.IsFresh(c.clock.Now(), c.opts.FreshnessWindow):
				readings[i], found[i] = reading, true
				continue
			case err == nil, errors.Is(err, domain.ErrReadingNotFound):
			case waitCtx.Err() != nil:
			default:
				c.logger.Warn("reading source failed", "session_id", session.ID, "domain", d, "error", err)
			}
			pending++
		}
		if pending == 0 {
			return readings, nil
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var missing []domain.DomainID
			for i, d := range session.Domains {
				if !found[i] {
					missing = append(missing, d)
				}
			}
			return nil, fmt.Errorf("%w for %v in %q within %s", errNoFreshReading, missing, session.FocusArea, c.opts.FreshnessWindow)
		case <-ticker.C:
		}
	}
}

func (c *Coordinator) cancelForNoData(ctx context.Context, session domain.Session, cause error) (DeliveryResult, error) {
	persistCtx := context.WithoutCancel(ctx)
	if err := c.cancelLocked(persistCtx, &session, cause.Error()); err != nil {
		return DeliveryResult{}, errors.Join(&domain.Error{Kind: domain.KindNoData, SessionID: session.ID, Err: cause}, err)
	}
	recordCancelled("no_data")

	return resultFromSession(session, false), &domain.Error{
		Kind:      domain.KindNoData,
		SessionID: session.ID,
		Err:       cause,
	}
}

// fanOut never fails as a whole: each participant's outcome is recorded and
// the group always runs to completion.
func (c *Coordinator) fanOut(ctx context.Context, session domain.Session, pulse domain.Pulse, bounds domain.IntensityRange, members []domain.ParticipantID, report func(DeliveryProgress)) []domain.ParticipantOutcome {
	outcomes := make([]domain.ParticipantOutcome, len(members))

	var (
		mu       sync.Mutex
		progress = DeliveryProgress{Phase: PhaseBroadcasting, Members: len(members)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrentDeliveries)

	for i, participant := range members {
		i, participant := i, participant
		g.Go(func() error {
			outcomes[i] = c.deliverTo(gctx, session, pulse, bounds, participant)

			mu.Lock()
			progress.Attempted++
			if outcomes[i].Status == domain.DeliveryFailed {
				progress.Failed++
			}
			report(progress)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (c *Coordinator) deliverTo(ctx context.Context, session domain.Session, pulse domain.Pulse, bounds domain.IntensityRange, participant domain.ParticipantID) domain.ParticipantOutcome {
	outcome := domain.ParticipantOutcome{ParticipantID: participant, AttemptedAt: c.clock.Now()}

	fail := func(err error) domain.ParticipantOutcome {
		outcome.Status = domain.DeliveryFailed
		outcome.Error = err.Error()
		recordParticipantDelivery(false)
		c.logger.Warn("participant delivery failed",
			"session_id", session.ID,
			"participant_id", participant,
			"error", err,
		)
		return outcome
	}

	calibration, err := c.calibrationFor(ctx, session, participant)
	if err != nil {
		return fail(err)
	}

	outcome.Segments = calibration.Calibrate(pulse, bounds)
	payload := domain.Payload{
		SessionID:     session.ID,
		ParticipantID: participant,
		DeliverAt:     session.ScheduledAt,
		Segments:      outcome.Segments,
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.DeliveryTimeout)
	defer cancel()

	if err := c.haptics.Deliver(attemptCtx, payload); err != nil {
		return fail(fmt.Errorf("deliver to device: %w", err))
	}

	outcome.Status = domain.DeliveryOK
	recordParticipantDelivery(true)
	return outcome
}

func (c *Coordinator) calibrationFor(ctx context.Context, session domain.Session, participant domain.ParticipantID) (domain.Calibration, error) {
	if cal, ok := session.CalibrationFor(participant); ok {
		return cal, nil
	}
	p, err := c.roster.Participant(ctx, participant)
	if err != nil {
		return domain.Calibration{}, fmt.Errorf("load participant calibration: %w", err)
	}
	if err := p.Calibration.Validate(); err != nil {
		return domain.Calibration{}, fmt.Errorf("invalid calibration: %w", err)
	}
	return p.Calibration, nil
}

// safeRange is the intersection of the translators' declared output ranges.
func safeRange(translators []translate.Translator) domain.IntensityRange {
	bounds := domain.IntensityRange{Min: math.Inf(-1), Max: math.Inf(1)}
	for _, t := range translators {
		r := t.OutputRange()
		bounds.Min = math.Max(bounds.Min, r.Min)
		bounds.Max = math.Min(bounds.Max, r.Max)
	}
	if bounds.Max < bounds.Min {
		bounds.Max = bounds.Min
	}
	return bounds
}
