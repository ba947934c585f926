package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tmm22/voicedeck/internal/update"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for a newer release",
	Long:  paragraph(fmt.Sprintf("\n%s GitHub for the latest voicedeck release and compare it with this build.", keyword("Ask"))),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		checker, err := a.newChecker()
		if err != nil {
			return fmt.Errorf("cannot check for updates from this build: %w", err)
		}

		status, err := checker.Check(cmd.Context())
		if errors.Is(err, update.ErrNoReleases) {
			fmt.Println("No releases have been published yet.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Println(updateStatusText(status))
		return nil
	},
}

func updateStatusText(status update.Status) string {
	if status.Available {
		return updateMessage(status)
	}
	return fmt.Sprintf("voicedeck %s is up to date.", status.Current)
}
