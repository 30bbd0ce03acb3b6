package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "myc",
		Short:         "Mycelium Pulse (myc): feel ecosystem health together",
		Long:          "myc translates ecological readings into haptic patterns, delivers them to every participant of a scheduled session at the same instant, and collects the reflections that follow.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}
	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newDomainsCmd(app),
		newTranslateCmd(app),
		newParticipantCmd(app),
		newReadingCmd(app),
		newSessionCmd(app),
		newReflectCmd(app),
		newCredentialCmd(app),
		newRunCmd(app),
	)

	return rootCmd
}
