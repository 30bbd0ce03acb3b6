package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Tick applies every time-based transition that is due: join windows open,
// due sessions deliver when AutoDeliver is set, and reflection circles close
// once ReflectionWindow has passed. A session left delivering by a stopped
// process is finished without resending. Sessions are handled concurrently.
func (c *Coordinator) Tick(ctx context.Context) (TickReport, error) {
	sessions, err := c.sessions.List(ctx)
	if err != nil {
		return TickReport{}, fmt.Errorf("list sessions: %w", err)
	}

	report := TickReport{Errors: map[domain.SessionID]error{}}
	var mu sync.Mutex
	note := func(list *[]domain.SessionID, id domain.SessionID, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Errors[id] = err
			return
		}
		*list = append(*list, id)
	}

	now := c.clock.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrentDeliveries)

	for _, s := range sessions {
		session := s
		switch {
		case session.State == domain.StateDelivering,
			session.State.Joinable() && session.Due(now) && c.opts.AutoDeliver:
			g.Go(func() error {
				result, err := c.DeliverSession(gctx, session.ID)
				switch {
				case errors.Is(err, domain.ErrNoData):
					note(&report.Cancelled, session.ID, nil)
				case err != nil:
					note(nil, session.ID, err)
				case !result.Replayed:
					note(&report.Delivered, session.ID, nil)
				}
				return nil
			})
		case session.State == domain.StateScheduled && !now.Before(session.JoinOpensAt):
			g.Go(func() error {
				opened, err := c.openJoinWindow(gctx, session.ID)
				if err != nil || opened {
					note(&report.Opened, session.ID, err)
				}
				return nil
			})
		case session.State == domain.StateReflectionOpen && c.reflectionExpired(session, now):
			g.Go(func() error {
				closed, err := c.closeExpired(gctx, session.ID)
				if err != nil || closed {
					note(&report.Closed, session.ID, err)
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	return report, nil
}

// Run calls Tick every interval until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("coordinator running", "interval", interval)
	for {
		report, err := c.Tick(ctx)
		if err != nil {
			c.logger.Error("tick failed", "error", err)
		} else {
			for id, tickErr := range report.Errors {
				c.logger.Warn("session tick failed", "session_id", id, "error", tickErr)
			}
		}

		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (c *Coordinator) openJoinWindow(ctx context.Context, id domain.SessionID) (bool, error) {
	unlock, err := c.lock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	session, err := c.load(ctx, id)
	if err != nil {
		return false, err
	}
	opened := c.openIfDue(&session, c.clock.Now())
	if err := c.saveIfOpened(ctx, session, opened); err != nil {
		return false, err
	}
	if opened {
		c.logger.Info("session open for joining", "session_id", id)
	}
	return opened, nil
}

func (c *Coordinator) reflectionExpired(session domain.Session, now time.Time) bool {
	if c.opts.ReflectionWindow <= 0 || session.Delivery == nil {
		return false
	}
	return !now.Before(session.Delivery.CompletedAt.Add(c.opts.ReflectionWindow))
}

func (c *Coordinator) closeExpired(ctx context.Context, id domain.SessionID) (bool, error) {
	unlock, err := c.lock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	session, err := c.load(ctx, id)
	if err != nil {
		return false, err
	}
	if session.State != domain.StateReflectionOpen || !c.reflectionExpired(session, c.clock.Now()) {
		return false, nil
	}
	if err := c.closeLocked(ctx, &session); err != nil {
		return false, err
	}
	return true, nil
}
