// Package cli implements the xkit command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xkit-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

// Environment overrides.
const (
	EnvDomain = "XKIT_DOMAIN"
	EnvToken  = "XKIT_TOKEN"
)

const keyDomain = "domain"

// Client is what the commands drive: the public client surface plus the
// lifecycle hooks a long-running command needs.
type Client interface {
	driving.ConnectService

	// SetDomain points the client at another vendor domain.
	SetDomain(vendorDomain string)

	// Close stops background work.
	Close()
}

// ClientFactory builds the client for a vendor domain. token is empty
// unless provided through the environment; the store restores saved sessions.
type ClientFactory func(vendorDomain, token string, store driven.ConfigStore) (Client, error)

// StoreFactory opens the config store in dir, or in the default location
// when dir is empty.
type StoreFactory func(dir string) (driven.ConfigStore, error)

var (
	version = "dev"

	flagDomain  string
	flagConfig  string
	flagVerbose bool

	newClient ClientFactory
	openStore StoreFactory = func(dir string) (driven.ConfigStore, error) {
		return file.NewConfigStore(dir)
	}

	// Opened lazily by the commands that need them.
	configStore driven.ConfigStore
	client      Client
)

var rootCmd = &cobra.Command{
	Use:   "xkit",
	Short: "Connect SaaS accounts through an xkit platform",
	Long: `xkit lets you log in to an xkit platform, browse its connectors and
connect your third-party accounts to it from the terminal.

The vendor domain comes from --domain, the XKIT_DOMAIN environment variable
or the "domain" key of ~/.xkit/config.toml, in that order.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		closeClient()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDomain, "domain", "", "vendor domain, e.g. acme.xkit.co")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config directory (default ~/.xkit)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "print debug logs")
}

// SetClientFactory sets how commands build their client.
func SetClientFactory(f ClientFactory) {
	newClient = f
}

// SetVersion sets the version reported by `xkit version`.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeClient()
	return rootCmd.ExecuteContext(ctx)
}

// store opens the config store once.
func store() (driven.ConfigStore, error) {
	if configStore != nil {
		return configStore, nil
	}
	s, err := openStore(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	configStore = s
	return s, nil
}

// resolveDomain picks the vendor domain from the flag, the environment or
// the config file.
func resolveDomain(s driven.ConfigStore) (string, error) {
	if flagDomain != "" {
		return flagDomain, nil
	}
	if d := os.Getenv(EnvDomain); d != "" {
		return d, nil
	}
	if d := s.GetString(keyDomain); d != "" {
		return d, nil
	}
	return "", errors.New("no vendor domain: pass --domain, set " + EnvDomain + " or run `xkit config set-domain`")
}

// getClient builds the client once and waits for its session to load.
func getClient(cmd *cobra.Command) (Client, error) {
	if client != nil {
		return client, nil
	}
	if newClient == nil {
		return nil, errors.New("client not configured")
	}

	s, err := store()
	if err != nil {
		return nil, err
	}
	vendorDomain, err := resolveDomain(s)
	if err != nil {
		return nil, err
	}

	c, err := newClient(vendorDomain, os.Getenv(EnvToken), s)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	client = c

	if err := c.Ready(cmd.Context()); err != nil {
		return nil, err
	}
	return c, nil
}

func closeClient() {
	if client != nil {
		client.Close()
		client = nil
	}
	configStore = nil
}
