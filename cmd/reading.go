package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/spf13/cobra"
)

func newReadingCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reading",
		Short: "Feed ecological readings to the configured source",
	}
	cmd.AddCommand(newReadingRecordCmd(app))
	return cmd
}

func newReadingRecordCmd(app *app) *cobra.Command {
	var (
		domainID   string
		focusArea  string
		ecosystem  string
		capturedAt string
		indicators []string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a reading for a domain and focus area",
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, err := parseIndicators(indicators)
			if err != nil {
				return err
			}

			at := app.now()
			if capturedAt != "" {
				at, err = time.Parse(time.RFC3339, capturedAt)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
			}

			reading := domain.NewReading(domain.DomainID(strings.TrimSpace(domainID)), focusArea, at, values)
			if ecosystem != "" {
				reading = reading.WithEcosystem(ecosystem)
			}
			if err := reading.Validate(); err != nil {
				return err
			}
			if err := app.recordReading(cmd.Context(), reading); err != nil {
				return fmt.Errorf("record reading: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "recorded %s reading for %s (%d indicators)\n",
				reading.Domain, reading.FocusArea, len(values))
			return err
		},
	}

	cmd.Flags().StringVar(&domainID, "domain", "", "Domain the reading belongs to")
	cmd.Flags().StringVar(&focusArea, "focus", "", "Focus area the reading describes")
	cmd.Flags().StringVar(&ecosystem, "ecosystem", "", "Ecosystem type of the focus area")
	cmd.Flags().StringVar(&capturedAt, "at", "", "Capture time as RFC3339 (default now)")
	cmd.Flags().StringArrayVar(&indicators, "indicator", nil, "Indicator as name=value[:unit] (repeatable)")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("focus")

	return cmd
}
