package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/gigwire/gigwire/internal/app"
	"github.com/gigwire/gigwire/internal/bus"
	"github.com/gigwire/gigwire/internal/profile"
	"github.com/gigwire/gigwire/internal/tui"
	"github.com/gigwire/gigwire/internal/tui/model"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	var profileFlag string

	cmd := &cobra.Command{
		Use:           "gigwire",
		Short:         "GigWire messaging client",
		Long:          "GigWire is a terminal client for marketplace conversations with an offline-tolerant message queue.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := resolveProfile(profileFlag)
			if err != nil {
				return err
			}
			return runTUI(name)
		},
	}

	cmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newQueueCmd(&profileFlag))
	cmd.AddCommand(newDrainCmd(&profileFlag))
	cmd.AddCommand(newConversationsCmd(&profileFlag))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gigwire %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func resolveProfile(flag string) (string, error) {
	name := profile.Resolve(flag)
	if err := profile.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// runTUI composes the application and hands the terminal to the UI.
func runTUI(profileName string) error {
	var (
		vm *model.ViewModel
		b  *bus.Bus
	)
	fxApp := fx.New(
		app.Module(app.Params{ProfileName: profileName}),
		fx.Provide(model.NewViewModel),
		fx.Populate(&vm, &b),
		fx.NopLogger, // the TUI owns the terminal; fx events go to the log file
	)

	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
		defer cancel()
		_ = fxApp.Stop(stopCtx)
	}()

	return tui.NewApp(vm, b, profileName).Run()
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
