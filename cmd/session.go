package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	sessionrender "github.com/bnema/mycelium-pulse/internal/adapters/render/session"
	"github.com/bnema/mycelium-pulse/internal/application"
	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Schedule, join and deliver collective pulse sessions",
	}
	cmd.AddCommand(
		newSessionScheduleCmd(app),
		newSessionMemberCmd("join", "Join a session before it is delivered", app.joinSession),
		newSessionMemberCmd("leave", "Leave a session before it is delivered", app.leaveSession),
		newSessionDeliverCmd(app),
		newSessionStatusCmd(app),
		newSessionListCmd(app),
		newSessionCancelCmd(app),
		newSessionCloseCmd(app),
		newSessionOpenReflectionCmd(app),
	)
	return cmd
}

// sessionFile is the TOML form accepted by `session schedule --file`.
type sessionFile struct {
	Initiator    string                     `toml:"initiator"`
	Domains      []string                   `toml:"domains"`
	FocusArea    string                     `toml:"focus_area"`
	ScheduledAt  time.Time                  `toml:"scheduled_at"`
	Duration     string                     `toml:"duration"`
	JoinLead     string                     `toml:"join_lead"`
	Capacity     int                        `toml:"capacity"`
	Composition  compositionFile            `toml:"composition"`
	Calibrations map[string]calibrationFile `toml:"calibrations"`
}

type compositionFile struct {
	Mode  string `toml:"mode"`
	Gap   string `toml:"gap"`
	Slice string `toml:"slice"`
}

type calibrationFile struct {
	IntensityScale float64           `toml:"intensity_scale"`
	DurationScale  float64           `toml:"duration_scale"`
	MaxIntensity   float64           `toml:"max_intensity"`
	LocationMap    map[string]string `toml:"location_map"`
}

func readSessionFile(path string) (sessionFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return sessionFile{}, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	var file sessionFile
	decoder := toml.NewDecoder(f)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return sessionFile{}, fmt.Errorf("decode session file: %w", err)
	}
	return file, nil
}

func parseOptionalDuration(label, raw string) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", label, err)
	}
	return d, nil
}

func (f sessionFile) command() (application.ScheduleCommand, error) {
	duration, err := parseOptionalDuration("duration", f.Duration)
	if err != nil {
		return application.ScheduleCommand{}, err
	}
	joinLead, err := parseOptionalDuration("join_lead", f.JoinLead)
	if err != nil {
		return application.ScheduleCommand{}, err
	}
	gap, err := parseOptionalDuration("composition.gap", f.Composition.Gap)
	if err != nil {
		return application.ScheduleCommand{}, err
	}
	slice, err := parseOptionalDuration("composition.slice", f.Composition.Slice)
	if err != nil {
		return application.ScheduleCommand{}, err
	}

	cfg := domain.SessionConfig{
		Domains:     domainIDs(f.Domains),
		FocusArea:   f.FocusArea,
		ScheduledAt: f.ScheduledAt,
		Duration:    duration,
		JoinLead:    joinLead,
		Capacity:    f.Capacity,
		Composition: domain.Composition{
			Mode:  domain.CompositionMode(f.Composition.Mode),
			Gap:   gap,
			Slice: slice,
		},
	}
	if len(f.Calibrations) > 0 {
		cfg.Calibrations = make(map[domain.ParticipantID]domain.Calibration, len(f.Calibrations))
		for _, id := range sortedNames(f.Calibrations) {
			cal := f.Calibrations[id]
			var locations map[domain.BodyLocation]domain.BodyLocation
			if len(cal.LocationMap) > 0 {
				locations = make(map[domain.BodyLocation]domain.BodyLocation, len(cal.LocationMap))
				for from, to := range cal.LocationMap {
					locations[domain.BodyLocation(from)] = domain.BodyLocation(to)
				}
			}
			cfg.Calibrations[domain.ParticipantID(id)] = domain.Calibration{
				IntensityScale: cal.IntensityScale,
				DurationScale:  cal.DurationScale,
				MaxIntensity:   cal.MaxIntensity,
				LocationMap:    locations,
			}
		}
	}

	return application.ScheduleCommand{
		Initiator: domain.ParticipantID(f.Initiator),
		Config:    cfg,
	}, nil
}

func newSessionScheduleCmd(app *app) *cobra.Command {
	var (
		file      string
		initiator string
		domains   []string
		focusArea string
		at        string
		in        time.Duration
		duration  time.Duration
		joinLead  time.Duration
		mode      string
		gap       time.Duration
		slice     time.Duration
		capacity  int
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a pulse session",
		Long:  "Schedule a pulse session from flags, a TOML session file, or both. Flags override values from the file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var base sessionFile
			if file != "" {
				var err error
				if base, err = readSessionFile(file); err != nil {
					return err
				}
			}

			schedule, err := base.command()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("initiator") {
				schedule.Initiator = domain.ParticipantID(initiator)
			}
			if flags.Changed("domain") {
				schedule.Config.Domains = domainIDs(domains)
			}
			if flags.Changed("focus") {
				schedule.Config.FocusArea = focusArea
			}
			switch {
			case flags.Changed("at") && flags.Changed("in"):
				return errors.New("use either --at or --in, not both")
			case flags.Changed("at"):
				scheduledAt, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
				schedule.Config.ScheduledAt = scheduledAt
			case flags.Changed("in"):
				schedule.Config.ScheduledAt = app.now().Add(in)
			}
			if flags.Changed("duration") || schedule.Config.Duration == 0 {
				schedule.Config.Duration = duration
			}
			if flags.Changed("join-lead") {
				schedule.Config.JoinLead = joinLead
			}
			if flags.Changed("mode") {
				schedule.Config.Composition.Mode = domain.CompositionMode(mode)
			}
			if flags.Changed("gap") {
				schedule.Config.Composition.Gap = gap
			}
			if flags.Changed("slice") {
				schedule.Config.Composition.Slice = slice
			}
			if flags.Changed("capacity") {
				schedule.Config.Capacity = capacity
			}

			id, err := app.coordinator.ScheduleSession(cmd.Context(), schedule)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "scheduled session %s\n", id)
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "TOML session file")
	cmd.Flags().StringVar(&initiator, "initiator", "", "Registered participant scheduling the session")
	cmd.Flags().StringSliceVar(&domains, "domain", nil, "Domain to feel (repeatable)")
	cmd.Flags().StringVar(&focusArea, "focus", "", "Focus area of the session")
	cmd.Flags().StringVar(&at, "at", "", "Delivery time as RFC3339")
	cmd.Flags().DurationVar(&in, "in", 0, "Delivery time relative to now")
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Minute, "Session duration")
	cmd.Flags().DurationVar(&joinLead, "join-lead", 0, "How long before delivery joining opens (default from config)")
	cmd.Flags().StringVar(&mode, "mode", "", "Composition mode for several domains: sequential or interleaved")
	cmd.Flags().DurationVar(&gap, "gap", 0, "Pause between domains in sequential mode")
	cmd.Flags().DurationVar(&slice, "slice", 0, "Slice length in interleaved mode")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "Maximum members (0 is unlimited)")

	return cmd
}

func (a *app) joinSession(cmd *cobra.Command, id domain.SessionID, participant domain.ParticipantID) (string, error) {
	if err := a.coordinator.JoinSession(cmd.Context(), id, participant); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s joined session %s", participant, id), nil
}

func (a *app) leaveSession(cmd *cobra.Command, id domain.SessionID, participant domain.ParticipantID) (string, error) {
	if err := a.coordinator.LeaveSession(cmd.Context(), id, participant); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s left session %s", participant, id), nil
}

func newSessionMemberCmd(use, short string, action func(*cobra.Command, domain.SessionID, domain.ParticipantID) (string, error)) *cobra.Command {
	var participant string

	cmd := &cobra.Command{
		Use:   use + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := action(cmd, domain.SessionID(args[0]), domain.ParticipantID(participant))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), message)
			return err
		},
	}
	cmd.Flags().StringVar(&participant, "participant", "", "Participant id")
	_ = cmd.MarkFlagRequired("participant")
	return cmd
}

func newSessionDeliverCmd(app *app) *cobra.Command {
	var (
		asJSON    bool
		noSpinner bool
	)

	cmd := &cobra.Command{
		Use:   "deliver <session-id>",
		Short: "Wait for fresh readings and deliver the pulse to every member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.SessionID(args[0])

			var result application.DeliveryResult
			var err error
			if asJSON || noSpinner {
				result, err = app.coordinator.DeliverSession(cmd.Context(), id)
			} else {
				result, err = runDeliveryProgress(cmd.Context(), cmd.ErrOrStderr(), app.coordinator, id)
			}
			if err != nil && !errors.Is(err, domain.ErrNoData) {
				return err
			}

			if asJSON {
				if writeErr := writeJSON(cmd.OutOrStdout(), result); writeErr != nil {
					return writeErr
				}
			} else {
				rendered, renderErr := sessionrender.RenderDelivery(result, app.renderOptions())
				if writeErr := writeRendered(cmd, rendered, renderErr); writeErr != nil {
					return writeErr
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the delivery result as JSON")
	cmd.Flags().BoolVar(&noSpinner, "no-spinner", false, "Do not show progress while waiting for readings")
	return cmd
}

func newSessionStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := app.coordinator.GetSessionState(cmd.Context(), domain.SessionID(args[0]))
			if err != nil {
				return err
			}
			return writeSnapshots(cmd, app, []application.SessionSnapshot{snapshot}, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the session as JSON")
	return cmd
}

func newSessionListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshots, err := app.coordinator.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			return writeSnapshots(cmd, app, snapshots, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output sessions as JSON")
	return cmd
}

func writeSnapshots(cmd *cobra.Command, app *app, snapshots []application.SessionSnapshot, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), snapshots)
	}
	rendered, err := sessionrender.RenderSessions(snapshots, app.renderOptions())
	return writeRendered(cmd, rendered, err)
}

func newSessionCancelCmd(app *app) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Cancel a session before delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.SessionID(args[0])
			if err := app.coordinator.CancelSession(cmd.Context(), id, reason); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "cancelled session %s\n", id)
			return err
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "cancelled by initiator", "Reason recorded on the session")
	return cmd
}

func newSessionCloseCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close <session-id>",
		Short: "Close a delivered session and its reflection circle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.SessionID(args[0])
			if err := app.coordinator.CloseSession(cmd.Context(), id); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "closed session %s\n", id)
			return err
		},
	}
}

func newSessionOpenReflectionCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open-reflection <session-id>",
		Short: "Open the reflection circle of a delivered session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			circleID, err := app.coordinator.OpenReflection(cmd.Context(), domain.SessionID(args[0]))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reflection circle %s open\n", circleID)
			return err
		},
	}
}
