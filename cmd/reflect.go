package cmd

import (
	"fmt"

	sessionrender "github.com/bnema/mycelium-pulse/internal/adapters/render/session"
	"github.com/bnema/mycelium-pulse/internal/application"
	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/spf13/cobra"
)

func newReflectCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reflect",
		Short: "Share and read reflections after a pulse",
	}
	cmd.AddCommand(newReflectSubmitCmd(app), newReflectListCmd(app))
	return cmd
}

func newReflectSubmitCmd(app *app) *cobra.Command {
	var (
		participant string
		content     string
		emotion     string
		insights    []string
		actions     []string
	)

	cmd := &cobra.Command{
		Use:   "submit <session-id>",
		Short: "Add a reflection to a session's circle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.SessionID(args[0])
			err := app.coordinator.SubmitReflection(cmd.Context(), application.SubmitReflectionCommand{
				SessionID:     id,
				ParticipantID: domain.ParticipantID(participant),
				Entry: domain.ReflectionEntry{
					Content:     content,
					EmotionTag:  emotion,
					Insights:    insights,
					ActionIdeas: actions,
				},
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reflection from %s added to session %s\n", participant, id)
			return err
		},
	}

	cmd.Flags().StringVar(&participant, "participant", "", "Participant submitting the reflection")
	cmd.Flags().StringVar(&content, "content", "", "What you felt")
	cmd.Flags().StringVar(&emotion, "emotion", "", "One-word emotion tag")
	cmd.Flags().StringArrayVar(&insights, "insight", nil, "Insight (repeatable)")
	cmd.Flags().StringArrayVar(&actions, "action", nil, "Action idea (repeatable)")
	_ = cmd.MarkFlagRequired("participant")

	return cmd
}

func newReflectListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list <session-id>",
		Short: "Show a session's reflections and their summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := app.coordinator.GetReflections(cmd.Context(), domain.SessionID(args[0]))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			rendered, err := sessionrender.RenderReflections(view, app.renderOptions())
			return writeRendered(cmd, rendered, err)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output reflections as JSON")
	return cmd
}
