package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func newWavesCmd(flags *globalFlags, build Builder) *cobra.Command {
	return &cobra.Command{
		Use:   "waves",
		Short: "List every recorded wave",
		Long:  `Print all waves stored by the WavePortal contract, oldest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, cleanup, err := openSession(cmd, flags, build, false)
			if err != nil {
				return err
			}
			defer cleanup()

			return runWaves(cmd, deps)
		},
	}
}

// runWaves reads getAllWaves. Reads need no connected account.
func runWaves(cmd *cobra.Command, deps *Dependencies) error {
	ctx, cancel := callContext(cmd, deps)
	defer cancel()

	portal, err := deps.Open(ctx, common.Address{})
	if err != nil {
		return err
	}
	defer portal.Close()

	records, err := portal.AllWaves(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No waves yet.")
		return nil
	}

	// address and time columns take about 70 cells
	maxMessage := getTerminalWidth() - 70
	if maxMessage < 20 {
		maxMessage = 20
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ADDRESS\tTIME\tMESSAGE")
	_, _ = fmt.Fprintln(w, "-------\t----\t-------")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			r.Address, r.Timestamp.Format(time.RFC3339), truncateMessage(r.Message, maxMessage))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d waves\n", len(records))
	return nil
}

// truncateMessage flattens msg to one line of at most limit runes
func truncateMessage(msg string, limit int) string {
	msg = strings.Join(strings.Fields(msg), " ")
	runes := []rune(msg)
	if len(runes) <= limit {
		return msg
	}
	return string(runes[:limit-3]) + "..."
}

