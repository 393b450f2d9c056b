package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/diogo/waveportal/internal/contract"
)

func newWaveCmd(flags *globalFlags, build Builder) *cobra.Command {
	return &cobra.Command{
		Use:   "wave <message>",
		Short: "Send a wave and wait for it to be mined",
		Long: `Send a wave with a message to the WavePortal contract.

The wallet is connected first (a keystore asks for its passphrase), the
network is checked against required_network, then the wave is submitted
and the command waits for the transaction to be mined.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, cleanup, err := openSession(cmd, flags, build, false)
			if err != nil {
				return err
			}
			defer cleanup()

			return runWave(cmd, deps, args[0])
		},
	}
}

// runWave reads the total, sends the wave, waits for the receipt and reads
// the total again. Every step gets its own call timeout so a slow
// passphrase prompt or a long mining time does not eat into the next step.
func runWave(cmd *cobra.Command, deps *Dependencies, message string) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	var account common.Address
	err := withCallContext(cmd, deps, func(ctx context.Context) error {
		var err error
		if account, err = connectAccount(ctx, deps); err != nil {
			return err
		}
		return checkNetwork(ctx, deps)
	})
	if err != nil {
		return err
	}

	var portal contract.WavePortal
	err = withCallContext(cmd, deps, func(ctx context.Context) error {
		var err error
		portal, err = deps.Open(ctx, account)
		return err
	})
	if err != nil {
		return err
	}
	defer portal.Close()

	if err := printTotal(cmd, deps, portal, out); err != nil {
		return err
	}

	var tx contract.TxHandle
	err = withCallContext(cmd, deps, func(ctx context.Context) error {
		var err error
		tx, err = submitWave(ctx, portal, errOut, message)
		return err
	})
	if err != nil {
		return err
	}

	spin := newSpinner(errOut, "Mining "+tx.String())
	spin.start()
	err = withCallContext(cmd, deps, func(ctx context.Context) error {
		_, err := portal.WaitForConfirmation(ctx, tx)
		return err
	})
	if err != nil {
		spin.stopWithError()
		return err
	}
	spin.stopWithSuccess("Mined -- " + tx.String())

	return printTotal(cmd, deps, portal, out)
}

func printTotal(cmd *cobra.Command, deps *Dependencies, portal contract.WavePortal, out io.Writer) error {
	return withCallContext(cmd, deps, func(ctx context.Context) error {
		total, err := portal.TotalWaves(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Retrieved total wave count... %d\n", total)
		return nil
	})
}

func submitWave(ctx context.Context, portal contract.WavePortal, errOut io.Writer, message string) (contract.TxHandle, error) {
	spin := newSpinner(errOut, "Waiting for the wallet")
	spin.start()

	tx, err := portal.Wave(ctx, message)
	if err != nil {
		spin.stopWithError()
		return contract.TxHandle{}, err
	}
	spin.stopWithSuccess("Submitted " + tx.String())
	return tx, nil
}
