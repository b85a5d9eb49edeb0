package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/app"
	"github.com/gigwire/gigwire/internal/config"
	"github.com/gigwire/gigwire/internal/drain"
	"github.com/gigwire/gigwire/internal/lock"
	"github.com/gigwire/gigwire/internal/marketplace"
	"github.com/gigwire/gigwire/internal/profile"
	"github.com/gigwire/gigwire/internal/queue"
	"github.com/gigwire/gigwire/internal/store"
)

func newDrainCmd(profileFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Attempt delivery of every queued message once",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := resolveProfile(*profileFlag)
			if err != nil {
				return err
			}
			if err := profile.EnsureDir(name); err != nil {
				return err
			}

			lk, err := lock.Acquire(profile.Dir(name))
			if err != nil {
				return err
			}
			defer func() { _ = lk.Release() }()

			db, err := store.Open(profile.DBPath(name))
			if err != nil {
				return err
			}
			defer db.Close()
			if _, err := db.Migrate(); err != nil {
				return err
			}

			logger := zap.NewNop()
			cfg := config.LoadOrDefault(profile.ConfigPath())
			client := marketplace.New(cfg.API.BaseURL, cfg.API.Token, logger)

			q := queue.New(db.Blob(queue.StorageKey), nil, logger)
			before := len(q.PendingAll())
			failedBefore := len(q.Failed())
			if before == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to drain")
				return nil
			}

			d := drain.New(q, app.NewSendFunc(client, db, logger), nil, logger)
			d.Drain(cmd.Context())

			after := len(q.PendingAll())
			failed := len(q.Failed()) - failedBefore
			fmt.Fprintf(cmd.OutOrStdout(), "delivered %d of %d message(s)", before-after-failed, before)
			if failed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", %d failed", failed)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}
