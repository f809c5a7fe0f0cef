package main

import (
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ksred/ventil-api/internal/database"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Open(opts.cfg.DatabasePath)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}

			zlog.Info().Str("database", opts.cfg.DatabasePath).Msg("database migrated")
			return nil
		},
	}
}
