package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RoyMattar/runner/internal/config"
	"github.com/RoyMattar/runner/internal/fsutil"
)

func newInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a commented .runner.yaml holding every setting at its default value.
Flags and RUNNER_* environment variables still override it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, path, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&path, "path", ".runner.yaml", "where to write the configuration")
	return cmd
}

func runInit(cmd *cobra.Command, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration already exists, use --force to overwrite")
	}

	data, err := config.DefaultConfigYAML()
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil { //nolint:gosec // Config file needs to be readable
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	return nil
}
