// Package main provides the entry point for the voicedeck CLI application.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile        string
	defaultConfigFile string
	debug             bool

	rootCmd = &cobra.Command{
		Use:   "voicedeck",
		Short: "Speak text with cloud voices, from the terminal",
		Long: paragraph(
			fmt.Sprintf("\nSynthesize speech with %s, %s and %s voices, play it back, and %s across emotion presets.",
				keyword("ElevenLabs"), keyword("OpenAI"), keyword("Google"), keyword("compare voices")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
	}
)

func validateOptions(*cobra.Command) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file %s: %w", configFile, err)
		}
		log.Debug("Using configuration file", "path", configFile)
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// readText returns the text to speak: the joined arguments, or stdin
// when the only argument is "-" or nothing was given and stdin is a pipe.
func readText(args []string, stdin io.Reader, piped bool) (string, error) {
	if (len(args) == 0 && piped) || (len(args) == 1 && args[0] == "-") {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("unable to read from stdin: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec
}

func main() {
	debug = os.Getenv("VOICEDECK_DEBUG") != ""
	for _, arg := range os.Args[1:] {
		if arg == "--debug" {
			debug = true
		}
	}

	closer, err := setupLog(debug)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug logs to the log file")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(speakCmd, voicesCmd, batchCmd, serveCmd, updateCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "voicedeck")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voicedeck")}, dirs...)
	}

	if c := os.Getenv("VOICEDECK_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("voicedeck")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("voicedeck")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok { //nolint:errorlint
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	defaultConfigFile = filepath.Join(dirs[0], "voicedeck.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
