package commands

import (
	"context"
	"fmt"

	"crmlookup/internal/components/restyutil"
	"crmlookup/internal/components/telemetry"
	"crmlookup/internal/config"

	"github.com/spf13/cobra"
)

var (
	configName *string
	debug      *bool
	dumpHttp   *string

	cfg      config.Config
	httpDump restyutil.Output
)

func init() {
	configName = rootCmd.PersistentFlags().String("config", config.DefaultName, "The config file, a bare name is searched for upwards from the cwd.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Log debug messages.")
	dumpHttp = rootCmd.PersistentFlags().String("dump-http", "", "Write every http exchange into this directory, overrides http_dump_dir.")
}

var rootCmd = &cobra.Command{
	Use:           "crmlookup",
	Short:         "crmlookup searches CRM prices and inventory and shows product features.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(*configName)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		cfg = loaded
		telemetry.InitSlog(*debug || cfg.Debug)

		if *dumpHttp != "" {
			cfg.HttpDumpDir = *dumpHttp
		}
		if cfg.HttpDumpDir != "" {
			output, err := restyutil.NewFilesystemOutput(cfg.HttpDumpDir)
			if err != nil {
				return fmt.Errorf("prepare http dump dir: %w", err)
			}
			httpDump = output
		}
		return nil
	},
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
