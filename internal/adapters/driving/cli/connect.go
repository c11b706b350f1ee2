package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xkit-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

var connectCmd = &cobra.Command{
	Use:   "connect [slug]",
	Short: "Connect an account to a connector",
	Long: `Create the connector's connection and authorize it.

A browser tab opens with a Continue button; it opens the provider's sign-in
popup and reports back to the terminal. The command finishes once the
provider granted access, or fails if the popup is closed first.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

var addCmd = &cobra.Command{
	Use:   "add [slug]",
	Short: "Add another connection to a connector",
	Long: `Create an additional connection for connectors that support several,
then authorize it. --id chooses the connection ID.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var reconnectCmd = &cobra.Command{
	Use:   "reconnect [slug]",
	Short: "Authorize an existing connection again",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReconnect,
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect [slug]",
	Short: "Remove the connector's connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisconnect,
}

var (
	plainProgress bool
	addID         string

	// interactive reports whether the progress view can take the terminal.
	interactive = func() bool { return isTerminal(os.Stdout) && isTerminal(os.Stdin) }
)

func init() {
	for _, c := range []*cobra.Command{connectCmd, addCmd, reconnectCmd} {
		c.Flags().BoolVar(&plainProgress, "plain", false, "print progress lines instead of the interactive view")
	}
	addCmd.Flags().StringVar(&addID, "id", "", "ID of the new connection")
	reconnectCmd.Flags().StringVar(&connectionID, "id", "", "connection ID instead of a connector slug")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(reconnectCmd)
	rootCmd.AddCommand(disconnectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	slug := args[0]

	var conn *domain.Connection
	if !plainProgress && interactive() {
		conn, err = tui.Run(cmd.Context(), &tui.Ports{Connect: c}, slug)
	} else {
		err = withProgress(cmd, c, func() error {
			conn, err = c.Connect(cmd.Context(), slug)
			return err
		})
	}
	if err != nil {
		return fmt.Errorf("connect failed: %s", tui.Describe(err))
	}
	cmd.Printf("Connected %s (connection %s).\n", slug, conn.ID)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}

	var conn *domain.Connection
	err = withProgress(cmd, c, func() error {
		conn, err = c.AddConnection(cmd.Context(), args[0], addID)
		return err
	})
	if err != nil {
		return fmt.Errorf("add failed: %s", tui.Describe(err))
	}
	cmd.Printf("Added connection %s to %s.\n", conn.ID, args[0])
	return nil
}

func runReconnect(cmd *cobra.Command, args []string) error {
	q, err := queryFromArgs(args)
	if err != nil {
		return err
	}
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	existing, err := c.GetConnection(cmd.Context(), q)
	if err != nil {
		return err
	}

	var conn *domain.Connection
	err = withProgress(cmd, c, func() error {
		conn, err = c.Reconnect(cmd.Context(), existing)
		return err
	})
	if err != nil {
		return fmt.Errorf("reconnect failed: %s", tui.Describe(err))
	}
	cmd.Printf("Reconnected %s (connection %s).\n", conn.Connector.Slug, conn.ID)
	return nil
}

func runDisconnect(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	if err := c.Disconnect(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Disconnected %s.\n", args[0])
	return nil
}

// withProgress prints authorization transitions while fn runs.
func withProgress(cmd *cobra.Command, c Client, fn func() error) error {
	const listenerID = "cli:progress"
	err := c.On(domain.EventAuthorizationState, listenerID, func(payload any) {
		if p, ok := payload.(domain.AuthorizeProgress); ok {
			cmd.Printf("  %s -> %s\n", p.From, p.To)
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = c.Off(domain.EventAuthorizationState, listenerID) }()
	return fn()
}
