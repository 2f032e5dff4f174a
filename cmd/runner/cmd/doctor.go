package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/RoyMattar/runner/internal/config"
	"github.com/RoyMattar/runner/internal/diagnostics"
)

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the tracer, the configuration and the host",
		Long: `Verify that the syscall tracer is installed, that the configuration is
valid, and print the host facts that matter when reading diagnostics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print host information as JSON")
	return cmd
}

func runDoctor(cmd *cobra.Command, opts *rootOptions, asJSON bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	host := diagnostics.CollectHostInfo(cmd.Context(), cfg.Session.LogsDir)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(host)
	}

	fmt.Fprintln(out, "Checking dependencies...")
	fmt.Fprintln(out)
	if path, err := exec.LookPath(cfg.Tracer.Path); err == nil {
		fmt.Fprintf(out, "  ✓ %s (%s)\n", cfg.Tracer.Path, path)
	} else {
		fmt.Fprintf(out, "  ○ %s (optional, needed for --call-trace)\n", cfg.Tracer.Path)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Host:")
	fmt.Fprintln(out)
	printHost(out, host)
	fmt.Fprintln(out)

	if dump, err := diagnostics.LoadLatestCrashDump(cfg.Diagnostics.CrashDumpDir); err == nil {
		fmt.Fprintf(out, "  ⚠ last crash dump at %s: %s\n", dump.Timestamp.Format("2006-01-02 15:04:05"), dump.PanicValue)
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Validating configuration...")
	fmt.Fprintln(out)
	if err := config.ValidateConfig(cfg); err != nil {
		if verrs, ok := err.(config.ValidationErrors); ok {
			for _, e := range verrs {
				fmt.Fprintf(out, "  ✗ %s\n", e.Error())
			}
		} else {
			fmt.Fprintf(out, "  ✗ %v\n", err)
		}
		fmt.Fprintln(out)
		return fmt.Errorf("configuration check failed")
	}
	fmt.Fprintln(out, "  ✓ Configuration valid")
	return nil
}

func printHost(out io.Writer, h diagnostics.HostInfo) {
	fmt.Fprintf(out, "  os/arch:   %s/%s\n", h.OS, h.Arch)
	if h.CPUModel != "" {
		fmt.Fprintf(out, "  cpu:       %s\n", h.CPUModel)
	}
	fmt.Fprintf(out, "  cores:     %d (%d threads)\n", h.CPUCores, h.CPUThreads)
	if h.MemTotalMB > 0 {
		fmt.Fprintf(out, "  memory:    %.0f MB (%.1f%% used)\n", h.MemTotalMB, h.MemUsedPct)
	}
	fmt.Fprintf(out, "  load:      %.2f %.2f %.2f\n", h.LoadAvg1, h.LoadAvg5, h.LoadAvg15)
	fmt.Fprintf(out, "  logs dir:  %s (%.1f GB free)\n", h.LogsDir, h.LogsFreeGB)
	if h.MaxFDs > 0 {
		fmt.Fprintf(out, "  fds:       %d of %d\n", h.OpenFDs, h.MaxFDs)
	}
}
