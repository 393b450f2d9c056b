package commands

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/diogo/waveportal/internal/config"
	"github.com/diogo/waveportal/internal/contract"
	"github.com/diogo/waveportal/internal/tui"
	"github.com/diogo/waveportal/internal/wallet"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunApp(deps tui.Dependencies) error
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunApp(deps tui.Dependencies) error {
	return tui.RunApp(deps)
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	Config config.Config
	Logger *logrus.Logger

	// Wallet is the wallet bridge selected by the configuration.
	Wallet wallet.Wallet

	// Open creates the contract client for a connected account.
	// Each client owns its node connection and must be closed by the caller.
	Open tui.Opener

	// Events subscribes to contract events.
	Events contract.Subscriber

	// TUI is the terminal user interface.
	TUI TUIInterface

	closers []func()
}

// Builder creates the dependencies of one command run
type Builder func(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Dependencies, error)

// NewDependencies builds the wallet, the contract opener and the event
// listener. Nothing is dialed here: an unreachable node or wallet surfaces
// in the operation that needs it.
func NewDependencies(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Dependencies, error) {
	parsed, err := loadABI(cfg)
	if err != nil {
		return nil, err
	}
	address := common.HexToAddress(cfg.ContractAddress)

	backend := contract.NewNode(cfg.RPCURL)

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
		TUI:    &DefaultTUI{},
	}
	deps.closers = append(deps.closers, backend.Close)

	switch cfg.Wallet {
	case config.WalletKeystore:
		opts := []wallet.KeystoreOption{wallet.WithLogger(logger)}
		if cfg.Account != "" {
			opts = append(opts, wallet.WithAccount(cfg.Account))
		}
		deps.Wallet = wallet.NewKeystoreWallet(cfg.KeystoreDir, backend, opts...)
	default:
		deps.Wallet = wallet.NewProviderWallet(cfg.ProviderURL(), logger)
	}

	listener := contract.NewListener(backend, address, parsed, cfg.PollInterval(), logger)
	deps.Events = listener
	deps.closers = append(deps.closers, listener.Close, deps.Wallet.Close)

	clientOpts := contract.Options{GasLimit: cfg.GasLimit, Logger: logger}
	deps.Open = func(ctx context.Context, from common.Address) (contract.WavePortal, error) {
		client, err := contract.Dial(ctx, cfg.RPCURL, address, parsed, deps.Wallet, from, clientOpts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	logger.WithFields(logrus.Fields{
		"rpc":      cfg.RPCURL,
		"wallet":   cfg.Wallet,
		"contract": address.Hex(),
		"network":  cfg.RequiredNetwork,
	}).Debug("Dependencies ready")

	return deps, nil
}

func loadABI(cfg config.Config) (abi.ABI, error) {
	if cfg.ABIPath == "" {
		return contract.DefaultABI(), nil
	}
	parsed, err := contract.LoadABI(cfg.ABIPath)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to load ABI from %s: %w", cfg.ABIPath, err)
	}
	return parsed, nil
}

// AddCloser registers fn to run on Close
func (d *Dependencies) AddCloser(fn func()) {
	d.closers = append(d.closers, fn)
}

// Close releases the dependencies in reverse creation order
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// TUIDependencies returns the dependencies of the interactive view
func (d *Dependencies) TUIDependencies() tui.Dependencies {
	return tui.Dependencies{
		Wallet: d.Wallet,
		Open:   d.Open,
		Events: d.Events,
		Logger: d.Logger,
		Config: d.Config,
	}
}
