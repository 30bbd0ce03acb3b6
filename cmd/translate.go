package cmd

import (
	"fmt"
	"strings"

	sessionrender "github.com/bnema/mycelium-pulse/internal/adapters/render/session"
	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/translate"
	"github.com/spf13/cobra"
)

type indicatorLister interface {
	Indicators() []translate.IndicatorSpec
}

func newDomainsCmd(app *app) *cobra.Command {
	var asJSON bool

	type domainInfo struct {
		ID          domain.DomainID           `json:"id"`
		Label       string                    `json:"label"`
		Required    []string                  `json:"required"`
		OutputRange domain.IntensityRange     `json:"output_range"`
		Indicators  []translate.IndicatorSpec `json:"indicators,omitempty"`
	}

	cmd := &cobra.Command{
		Use:   "domains",
		Short: "List the ecological domains that can be translated",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var infos []domainInfo
			for _, id := range app.registry.Domains() {
				t, err := app.registry.Lookup(id)
				if err != nil {
					return err
				}
				info := domainInfo{
					ID:          id,
					Label:       id.Label(),
					Required:    t.RequiredIndicators(),
					OutputRange: t.OutputRange(),
				}
				if lister, ok := t.(indicatorLister); ok {
					info.Indicators = lister.Indicators()
				}
				infos = append(infos, info)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), infos)
			}

			out := cmd.OutOrStdout()
			for _, info := range infos {
				if _, err := fmt.Fprintf(out, "%s (%s) intensity %g-%g\n", info.ID, info.Label, info.OutputRange.Min, info.OutputRange.Max); err != nil {
					return err
				}
				if _, err := fmt.Fprintf(out, "  required: %s\n", strings.Join(info.Required, ", ")); err != nil {
					return err
				}
				for _, spec := range info.Indicators {
					if _, err := fmt.Fprintf(out, "  %s [%g, %g] %s\n", spec.Name, spec.Min, spec.Max, spec.Unit); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output domains as JSON")
	return cmd
}

func newTranslateCmd(app *app) *cobra.Command {
	var (
		domains    []string
		indicators []string
		focusArea  string
		ecosystem  string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate a reading into a haptic pattern without a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, err := parseIndicators(indicators)
			if err != nil {
				return err
			}

			ids := domainIDs(domains)
			if len(ids) == 0 {
				return fmt.Errorf("at least one --domain is required")
			}

			patterns := make([]domain.FeedbackPattern, 0, len(ids))
			for _, id := range ids {
				reading := domain.NewReading(id, focusArea, app.now(), values)
				if ecosystem != "" {
					reading = reading.WithEcosystem(ecosystem)
				}
				pattern, err := app.registry.Translate(reading)
				if err != nil {
					return err
				}
				patterns = append(patterns, pattern)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), patterns)
			}
			rendered, err := sessionrender.RenderPatterns(patterns)
			return writeRendered(cmd, rendered, err)
		},
	}

	cmd.Flags().StringSliceVar(&domains, "domain", nil, "Domain to translate (repeatable)")
	cmd.Flags().StringArrayVar(&indicators, "indicator", nil, "Indicator as name=value[:unit] (repeatable)")
	cmd.Flags().StringVar(&focusArea, "focus", "", "Focus area label")
	cmd.Flags().StringVar(&ecosystem, "ecosystem", "", "Ecosystem type used for calibration bands")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output patterns as JSON")
	_ = cmd.MarkFlagRequired("domain")

	return cmd
}
