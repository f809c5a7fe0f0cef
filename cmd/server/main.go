package main

import (
	"os"

	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ksred/ventil-api/internal/config"
	"github.com/ksred/ventil-api/internal/logging"
)

// rootOptions holds global flags for all commands
type rootOptions struct {
	ConfigPath string
	cfg        config.Config
}

// newRootCommand creates the ventil CLI with its serve and migrate commands
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "ventil",
		Short:         "Ventil - barter trades between item owners",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			logging.Configure(cfg.Production(), cfg.Debug, cfg.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", os.Getenv("VENTIL_CONFIG"), "path to a TOML config file")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		zlog.Fatal().Err(err).Msg("command failed")
	}
}
