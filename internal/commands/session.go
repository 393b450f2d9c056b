package commands

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/diogo/waveportal/internal/config"
	apierrors "github.com/diogo/waveportal/internal/errors"
	"github.com/diogo/waveportal/internal/logging"
)

// globalFlags are the persistent flags that override the config file
type globalFlags struct {
	rpc      string
	contract string
	network  string
	wallet   string
}

// resolve loads the config file and applies the flags on top of it
func (f *globalFlags) resolve() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return cfg, err
	}

	if f.rpc != "" {
		cfg.RPCURL = f.rpc
	}
	if f.contract != "" {
		cfg.ContractAddress = f.contract
	}
	if f.network != "" {
		cfg.RequiredNetwork = f.network
	}
	if f.wallet != "" {
		cfg.Wallet = f.wallet
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openSession resolves the configuration, builds the logger and the
// dependencies of one command run. cleanup releases all of them.
func openSession(cmd *cobra.Command, flags *globalFlags, build Builder, logToFile bool) (*Dependencies, func(), error) {
	cfg, err := flags.resolve()
	if err != nil {
		return nil, nil, err
	}

	logger, closer, err := logging.New(cfg, logToFile)
	if err != nil {
		return nil, nil, err
	}

	deps, err := build(cmd.Context(), cfg, logger)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}

	cleanup := func() {
		deps.Close()
		_ = closer.Close()
	}
	return deps, cleanup, nil
}

// connectAccount returns an authorized account, requesting one from the
// wallet when none is authorized yet
func connectAccount(ctx context.Context, deps *Dependencies) (common.Address, error) {
	if !deps.Wallet.Detect(ctx) {
		return common.Address{}, apierrors.NewWalletMissingError("Make sure you have a wallet!")
	}

	accounts, err := deps.Wallet.Accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) > 0 {
		deps.Logger.WithField("account", accounts[0].Hex()).Info("Found an authorized account")
		return accounts[0], nil
	}

	account, err := deps.Wallet.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	deps.Logger.WithField("account", account.Hex()).Info("Connected")
	return account, nil
}

// checkNetwork returns a WrongNetworkError unless the wallet is on the required network
func checkNetwork(ctx context.Context, deps *Dependencies) error {
	network, err := deps.Wallet.NetworkVersion(ctx)
	if err != nil {
		return err
	}
	if network != deps.Config.RequiredNetwork {
		return apierrors.NewWrongNetworkError(network, deps.Config.RequiredNetwork)
	}
	return nil
}

// callContext derives the per-call timeout from the command context
func callContext(cmd *cobra.Command, deps *Dependencies) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), deps.Config.CallTimeout())
}

// withCallContext runs fn under a fresh call timeout
func withCallContext(cmd *cobra.Command, deps *Dependencies, fn func(ctx context.Context) error) error {
	ctx, cancel := callContext(cmd, deps)
	defer cancel()
	return fn(ctx)
}
