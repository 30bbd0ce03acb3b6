package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bnema/mycelium-pulse/internal/adapters/credentials"
	"github.com/bnema/mycelium-pulse/internal/adapters/logsink"
	"github.com/bnema/mycelium-pulse/internal/adapters/natsbus"
	sqlitereflections "github.com/bnema/mycelium-pulse/internal/adapters/reflections/sqlite"
	sessionrender "github.com/bnema/mycelium-pulse/internal/adapters/render/session"
	tomlrepo "github.com/bnema/mycelium-pulse/internal/adapters/repo/toml"
	"github.com/bnema/mycelium-pulse/internal/application"
	"github.com/bnema/mycelium-pulse/internal/config"
	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports"
	"github.com/bnema/mycelium-pulse/internal/translate"
	"github.com/spf13/viper"
)

const configEnvKey = "MYC_CONFIG"

type app struct {
	cfg           config.Config
	coordinator   *application.Coordinator
	registry      *translate.Registry
	roster        *tomlrepo.Roster
	credentials   ports.CredentialStore
	recordReading func(context.Context, domain.Reading) error
	renderOptions func() sessionrender.RenderOptions
	logger        *slog.Logger
	now           func() time.Time
	closers       []func() error
}

func wireApp() (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v, os.Getenv(configEnvKey))
	if err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger, closeLog := config.SetupLogger(os.Stderr, cfg.Log.File, level)

	dir, err := config.Dir()
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		credentials: credentials.NewDefaultChain(dir),
		logger:      logger,
		now:         time.Now,
		closers:     []func() error{closeLog},
	}
	a.renderOptions = func() sessionrender.RenderOptions {
		return sessionrender.RenderOptions{Now: a.now()}
	}

	if err := a.wire(v); err != nil {
		_ = a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(v *viper.Viper) error {
	registry, err := translate.NewDefaultRegistry(translate.DefaultOptions{Ecosystem: a.cfg.Ecosystem})
	if err != nil {
		return fmt.Errorf("wire translators: %w", err)
	}
	a.registry = registry

	sessions, err := tomlrepo.NewSessionRepository(v)
	if err != nil {
		return fmt.Errorf("wire session repository: %w", err)
	}
	roster, err := tomlrepo.NewRoster(v)
	if err != nil {
		return fmt.Errorf("wire roster: %w", err)
	}
	a.roster = roster

	reflections, err := sqlitereflections.NewReflectionStore(a.cfg.Reflections.Path)
	if err != nil {
		return fmt.Errorf("wire reflection store: %w", err)
	}
	a.closers = append(a.closers, reflections.Close)

	var (
		readings ports.ReadingSource
		haptics  ports.HapticDeliverer = logsink.NewHapticSink(a.logger)
		events   ports.EventPublisher  = logsink.NewEventSink(a.logger)
	)

	feed, err := tomlrepo.NewReadingFeed(v)
	if err != nil {
		return fmt.Errorf("wire reading feed: %w", err)
	}
	readings = feed
	a.recordReading = feed.Record

	if a.cfg.NATS.URL != "" {
		var token string
		if ref := a.cfg.NATS.TokenRef; ref != "" {
			if token, err = a.credentials.Get(context.Background(), ref); err != nil {
				return fmt.Errorf("resolve nats.token_ref: %w", err)
			}
		}

		conn, err := natsbus.Connect(natsbus.Config{URL: a.cfg.NATS.URL, Token: token})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error {
			conn.Close()
			return nil
		})

		prefix := a.cfg.NATS.Prefix
		haptics = natsbus.NewHapticDeliverer(conn, natsbus.HapticOptions{
			Prefix:        prefix,
			RatePerSecond: a.cfg.NATS.RatePerSecond,
			Burst:         a.cfg.NATS.Burst,
		})
		events = natsbus.NewEventPublisher(conn, prefix)

		if a.cfg.Readings.Source == config.ReadingsSourceNATS {
			natsFeed := natsbus.NewReadingFeed(conn, prefix, nil, a.logger)
			if err := natsFeed.Start(); err != nil {
				return err
			}
			a.closers = append(a.closers, natsFeed.Close)
			readings = natsFeed
			a.recordReading = func(_ context.Context, reading domain.Reading) error {
				return natsbus.PublishReading(conn, prefix, reading)
			}
		}
	}

	coordinator, err := application.NewCoordinator(application.CoordinatorDeps{
		Sessions:    sessions,
		Reflections: reflections,
		Readings:    readings,
		Roster:      roster,
		Haptics:     haptics,
		Registry:    registry,
		Events:      events,
		Logger:      a.logger,
	}, coordinatorOptions(a.cfg.Coordinator))
	if err != nil {
		return fmt.Errorf("wire coordinator: %w", err)
	}
	a.coordinator = coordinator
	return nil
}

func coordinatorOptions(cfg config.CoordinatorConfig) application.CoordinatorOptions {
	return application.CoordinatorOptions{
		JoinLead:                cfg.JoinLead,
		FreshnessWindow:         cfg.FreshnessWindow,
		PollInterval:            cfg.PollInterval,
		ReadingTimeout:          cfg.ReadingTimeout,
		MaxConcurrentDeliveries: cfg.MaxConcurrentDeliveries,
		DeliveryTimeout:         cfg.DeliveryTimeout,
		AutoOpenReflection:      cfg.AutoOpenReflection,
		AutoDeliver:             cfg.AutoDeliver,
		ReflectionWindow:        cfg.ReflectionWindow,
	}
}

// close releases resources in reverse wiring order. It is safe to call twice.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
