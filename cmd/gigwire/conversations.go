package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/config"
	"github.com/gigwire/gigwire/internal/conversations"
	"github.com/gigwire/gigwire/internal/marketplace"
	"github.com/gigwire/gigwire/internal/profile"
)

func newConversationsCmd(profileFlag *string) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := resolveProfile(*profileFlag); err != nil {
				return err
			}
			f := conversations.Filter(filter)
			if !slices.Contains(conversations.Filters, f) {
				return fmt.Errorf("unknown filter %q (valid: active, unread, archived, all)", filter)
			}

			cfg := config.LoadOrDefault(profile.ConfigPath())
			client := marketplace.New(cfg.API.BaseURL, cfg.API.Token, zap.NewNop())
			rm := conversations.New(client, conversations.Options{BaseURL: cfg.API.BaseURL})

			resp, err := rm.Fetch(cmd.Context(), f)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(resp.Conversations) == 0 {
				fmt.Fprintln(w, "no conversations")
				return nil
			}
			fmt.Fprintf(w, "%-36s  %-28s  %-24s  %-6s  %s\n", "ID", "NAME", "JOB", "UNREAD", "LAST MESSAGE")
			for _, c := range resp.Conversations {
				last := ""
				if c.LastMessageAt > 0 {
					last = time.UnixMilli(c.LastMessageAt).Format("01/02 15:04")
				}
				fmt.Fprintf(w, "%-36s  %-28s  %-24s  %-6d  %s %s\n",
					c.ID, c.DisplayName(), c.Job.Title, c.UnreadCount, last, c.LastMessage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "all", "filter bucket: active, unread, archived, all")
	return cmd
}
