package application

import (
	"fmt"
	"time"
)

type CoordinatorOptions struct {
	// JoinLead is how long before the scheduled instant a session opens for
	// joining when the schedule command does not set one.
	JoinLead time.Duration
	// FreshnessWindow is the maximum reading age accepted at delivery.
	FreshnessWindow time.Duration
	PollInterval    time.Duration
	// ReadingTimeout bounds the wait for a fresh reading before the session
	// is cancelled with NoData.
	ReadingTimeout          time.Duration
	MaxConcurrentDeliveries int
	DeliveryTimeout         time.Duration
	AutoOpenReflection      bool
	// AutoDeliver lets Tick deliver due sessions.
	AutoDeliver bool
	// ReflectionWindow closes reflection circles this long after delivery.
	// Zero keeps them open until closed by hand.
	ReflectionWindow time.Duration
}

func DefaultCoordinatorOptions() CoordinatorOptions {
	return CoordinatorOptions{
		JoinLead:                15 * time.Minute,
		FreshnessWindow:         30 * time.Minute,
		PollInterval:            2 * time.Second,
		ReadingTimeout:          30 * time.Second,
		MaxConcurrentDeliveries: 16,
		DeliveryTimeout:         10 * time.Second,
		AutoOpenReflection:      true,
		AutoDeliver:             true,
		ReflectionWindow:        24 * time.Hour,
	}
}

func (o CoordinatorOptions) Validate() error {
	if o.JoinLead < 0 {
		return fmt.Errorf("join lead must not be negative")
	}
	if o.FreshnessWindow <= 0 {
		return fmt.Errorf("freshness window must be positive")
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if o.ReadingTimeout <= 0 {
		return fmt.Errorf("reading timeout must be positive")
	}
	if o.MaxConcurrentDeliveries <= 0 {
		return fmt.Errorf("max concurrent deliveries must be positive")
	}
	if o.DeliveryTimeout <= 0 {
		return fmt.Errorf("delivery timeout must be positive")
	}
	if o.ReflectionWindow < 0 {
		return fmt.Errorf("reflection window must not be negative")
	}
	return nil
}
