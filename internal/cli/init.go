package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/udhar-khata/khata/internal/daemon"
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config.toml")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.toml into the khata home",
	Long: `Create the khata home directory and write config.toml with the default
settings. --store picks the backend recorded in the file. An existing
config.toml is left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	home := daemon.Home(flagHome)
	path := filepath.Join(home, daemon.ConfigFile)

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}

	cfg := daemon.DefaultConfig()
	if flagStore != "" {
		cfg.Store.Backend = strings.ToLower(flagStore)
	}
	if err := cfg.Write(home); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (store: %s)\n", path, cfg.Store.Backend)
	return nil
}
