package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tmm22/voicedeck/internal/config"
)

var (
	configPathOnly bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Edit the voicedeck config file",
		Long: paragraph(fmt.Sprintf("\n%s the voicedeck config file. We’ll use EDITOR to determine which editor to use. "+
			"If the config file doesn't exist, it will be created with the defaults. The file is checked after you save it.", keyword("Edit"))),
		Example: paragraph("voicedeck config\nvoicedeck config --path\nvoicedeck config --config path/to/config.yml"),
		Args:    cobra.NoArgs,
		RunE:    runConfig,
	}
)

func init() {
	configCmd.Flags().BoolVar(&configPathOnly, "path", false, "print the config file location and exit")
}

func runConfig(*cobra.Command, []string) error {
	if err := ensureConfigFile(); err != nil {
		return err
	}
	if configPathOnly {
		fmt.Println(configFile)
		return nil
	}

	c, err := editor.Cmd("voicedeck", configFile)
	if err != nil {
		return fmt.Errorf("unable to set config file: %w", err)
	}
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("unable to run command: %w", err)
	}

	if err := checkConfigFile(configFile); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}
	fmt.Println("Wrote config file to:", configFile)
	return nil
}

// checkConfigFile parses and validates the file on its own, without the
// environment overrides of the running process.
func checkConfigFile(file string) error {
	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("unable to parse %s: %w", file, err)
	}
	if _, err := config.Load(v); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", file, err)
	}
	return nil
}

// ensureConfigFile resolves configFile and writes the default config there
// when it does not exist yet.
func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if configFile == "" {
			configFile = defaultConfigFile
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	_, err := os.Stat(configFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}
		if err := os.WriteFile(configFile, []byte(config.DefaultYAML), 0o600); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
