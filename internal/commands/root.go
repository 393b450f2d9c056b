// Package commands provides CLI commands for waveportal.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// NewRootCmd creates the root command. build creates the dependencies of each run.
func NewRootCmd(build Builder) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "waveportal",
		Short: "Wave at the WavePortal contract from your terminal",
		Long: `waveportal is a terminal front-end for the WavePortal contract.
Connect an Ethereum wallet, send a wave with a message and watch the waves
of everyone else arrive live.

The wallet is either a JSON-RPC provider (a node or signer exposing
eth_requestAccounts and eth_sendTransaction) or a local keystore directory.

Examples:
  waveportal                            Start the interactive portal
  waveportal wave "gm!"                 Send a wave and wait for it to be mined
  waveportal waves                      List every recorded wave
  waveportal watch                      Stream new waves until interrupted
  waveportal config set wallet keystore Use the local keystore
  waveportal --rpc wss://node:8546      Use another node for this run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Check for version flag
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "waveportal %s (built %s)\n", Version, BuildTime)
				return nil
			}
			return runApp(cmd, flags, build)
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.rpc, "rpc", "", "Node RPC endpoint (overrides rpc_url)")
	pf.StringVar(&flags.contract, "contract", "", "WavePortal contract address (overrides contract_address)")
	pf.StringVar(&flags.network, "network", "", "Required network id (overrides required_network)")
	pf.StringVar(&flags.wallet, "wallet", "", "Wallet kind: provider or keystore (overrides wallet)")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	// Add subcommands
	cmd.AddCommand(newWaveCmd(flags, build))
	cmd.AddCommand(newWavesCmd(flags, build))
	cmd.AddCommand(newWatchCmd(flags, build))
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// rootCmd represents the base command
var rootCmd = NewRootCmd(NewDependencies)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Error"))
		os.Exit(1)
	}
}

// runApp launches the interactive portal. Logs go to the log file while the TUI owns the terminal.
func runApp(cmd *cobra.Command, flags *globalFlags, build Builder) error {
	deps, cleanup, err := openSession(cmd, flags, build, true)
	if err != nil {
		return err
	}
	defer cleanup()

	deps.Logger.WithField("version", Version).Info("Starting waveportal")
	return deps.TUI.RunApp(deps.TUIDependencies())
}
