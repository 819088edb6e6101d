package main

import (
	"github.com/spf13/cobra"

	"Apostille/internal/keys"
	"Apostille/internal/logger"
)

// app carries the resolved configuration to every subcommand.
type app struct {
	configPath string  // configPath is the --config flag
	cfg        *Config // cfg is loaded in PersistentPreRunE
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	a := &app{}

	var overrides Config

	root := &cobra.Command{
		Use:           "apostille",
		Short:         "Notarize data on a ledger and verify apostille tags",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("network") {
				cfg.Network = overrides.Network
			}
			if flags.Changed("key") {
				cfg.KeyPath = overrides.KeyPath
			}
			if flags.Changed("data") {
				cfg.DataPath = overrides.DataPath
			}
			if flags.Changed("endpoint") {
				cfg.Ledger.Endpoint = overrides.Ledger.Endpoint
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = overrides.LogLevel
			}

			level, err := logger.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logger.SetLevel(level)

			a.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&overrides.Network, "network", "testnet", "Ledger network (mainnet, testnet, mijin, mijin-test)")
	pf.StringVar(&overrides.KeyPath, "key", "./owner.key", "Owner private key path (generates new if missing)")
	pf.StringVar(&overrides.DataPath, "data", "./data", "Registry directory (empty disables recording)")
	pf.StringVar(&overrides.Ledger.Endpoint, "endpoint", "http://localhost:3000", "Ledger endpoint URL")
	pf.StringVar(&overrides.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		a.tagCmd(),
		a.verifyCmd(),
		a.deriveCmd(),
		a.issueCmd(),
		a.serveCmd(),
	)

	return root
}

// owner loads the configured owner account.
func (a *app) owner() (*keys.Account, error) {
	network, err := a.cfg.network()
	if err != nil {
		return nil, err
	}

	return loadOrGenerateKey(a.cfg.KeyPath, network)
}
