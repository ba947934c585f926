package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generates manpages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		page, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return fmt.Errorf("unable to generate man page: %w", err)
		}

		page = page.WithSection("Environment", "ELEVENLABS_API_KEY, OPENAI_API_KEY and GOOGLE_API_KEY hold provider credentials.\n"+
			"VOICEDECK_CONFIG_HOME overrides the configuration directory.")
		fmt.Println(page.Build(roff.NewDocument()))
		return nil
	},
}
