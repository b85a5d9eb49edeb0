package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/lock"
	"github.com/gigwire/gigwire/internal/profile"
	"github.com/gigwire/gigwire/internal/queue"
	"github.com/gigwire/gigwire/internal/store"
)

func newQueueCmd(profileFlag *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline message queue",
	}
	cmd.AddCommand(newQueueListCmd(profileFlag))
	cmd.AddCommand(newQueueClearCmd(profileFlag))
	return cmd
}

func newQueueListCmd(profileFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(*profileFlag, func(q *queue.Queue) error {
				msgs := q.All()
				if len(msgs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
					return nil
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%-36s  %-20s  %-8s  %-7s  %-16s  %s\n",
					"ID", "CONVERSATION", "STATUS", "RETRIES", "QUEUED AT", "TEXT")
				for _, m := range msgs {
					text := m.Text
					if m.Kind == queue.KindImage {
						text = "[image] " + m.ImageURI
					}
					text = truncate(text, 40)
					fmt.Fprintf(w, "%-36s  %-20s  %-8s  %-7d  %-16s  %s\n",
						m.ID, m.ConversationID, m.Status, m.RetryCount,
						time.UnixMilli(m.Timestamp).Format("01/02 15:04:05"), text)
				}
				return nil
			})
		},
	}
}

func newQueueClearCmd(profileFlag *string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard every queued message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(*profileFlag, func(q *queue.Queue) error {
				n := len(q.All())
				if n == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
					return nil
				}
				if !force {
					return fmt.Errorf("refusing to discard %d message(s); pass --force to confirm", n)
				}
				if err := q.Clear(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "discarded %d message(s)\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm discarding queued messages")
	return cmd
}

// truncate shortens s to at most max runes, ending in "..." when cut.
// Counting runes rather than bytes keeps non-ASCII text valid UTF-8.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// withQueue opens the profile's store under its lock and runs fn against
// the queue.
func withQueue(profileFlag string, fn func(*queue.Queue) error) error {
	name, err := resolveProfile(profileFlag)
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

	return fn(queue.New(db.Blob(queue.StorageKey), nil, zap.NewNop()))
}
