package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/diogo/waveportal/internal/models"
)

func newWatchCmd(flags *globalFlags, build Builder) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream new waves until interrupted",
		Long: `Subscribe to the NewWave event and print one line per wave.

A ws:// endpoint receives pushed events; over http:// the node is polled
every poll_interval_secs seconds. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, cleanup, err := openSession(cmd, flags, build, false)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, deps, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

var (
	timeColor    = color.New(color.FgHiBlack)
	addressColor = color.New(color.FgCyan, color.Bold)
	messageColor = color.New(color.FgYellow)
)

// runWatch prints NewWave events until ctx is done or the subscription is lost
func runWatch(ctx context.Context, deps *Dependencies, out, errOut io.Writer) error {
	sub, err := deps.Events.Subscribe(ctx, models.EventNewWave, func(r models.WaveRecord) {
		printWave(out, r)
	})
	if err != nil {
		return err
	}
	defer deps.Events.Unsubscribe(sub)

	mode := "subscription"
	if sub.Polling() {
		mode = "polling"
	}
	fmt.Fprintf(errOut, "Watching NewWave on %s (%s), Ctrl+C to stop\n", deps.Config.ContractAddress, mode)
	deps.Logger.WithField("mode", mode).Info("Watching NewWave")

	select {
	case <-ctx.Done():
		fmt.Fprintln(errOut, "Stopped.")
		return nil
	case <-sub.Done():
		if err := sub.Err(); err != nil {
			deps.Logger.WithError(err).Warn("Lost the NewWave subscription")
			return err
		}
		fmt.Fprintln(errOut, "Stopped.")
		return nil
	}
}

func printWave(out io.Writer, r models.WaveRecord) {
	timeColor.Fprint(out, r.Timestamp.Format(time.RFC3339))
	fmt.Fprint(out, "  ")
	addressColor.Fprint(out, r.Address)
	fmt.Fprint(out, "  ")
	messageColor.Fprintln(out, r.Message)
}
