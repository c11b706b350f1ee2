package cli

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the saved configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the config file location and vendor domain",
	RunE:  runConfigShow,
}

var configSetDomainCmd = &cobra.Command{
	Use:   "set-domain [domain]",
	Short: "Save the default vendor domain",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetDomain,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetDomainCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	s, err := store()
	if err != nil {
		return err
	}
	cmd.Printf("Config:    %s\n", s.Path())
	vendorDomain, err := resolveDomain(s)
	if err != nil {
		vendorDomain = "(not set)"
	}
	cmd.Printf("Domain:    %s\n", vendorDomain)
	loggedIn := "no"
	if s.GetString("session.token") != "" {
		loggedIn = "yes"
	}
	cmd.Printf("Logged in: %s\n", loggedIn)
	return nil
}

func runConfigSetDomain(cmd *cobra.Command, args []string) error {
	s, err := store()
	if err != nil {
		return err
	}
	if err := s.Set(keyDomain, args[0]); err != nil {
		return err
	}
	cmd.Printf("Default domain set to %s.\n", args[0])
	return nil
}
