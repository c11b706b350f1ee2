// Command xkit connects third-party SaaS accounts to an xkit platform from
// the terminal.
package main

import (
	"os"

	"github.com/custodia-labs/xkit-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/pkg/xkit"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetClientFactory(func(vendorDomain, token string, store driven.ConfigStore) (cli.Client, error) {
		c, err := xkit.New(vendorDomain, xkit.WithToken(token), xkit.WithConfigStore(store))
		if err != nil {
			return nil, err
		}
		return c, nil
	})

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
