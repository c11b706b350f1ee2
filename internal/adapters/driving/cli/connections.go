package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conn"},
	Short:   "Manage your connections",
	Long: `List, inspect and remove your connections.

A connection is addressed by connector slug, or by ID with --id for
connectors that allow several connections.`,
}

var connectionsListCmd = &cobra.Command{
	Use:   "list [slug]",
	Short: "List connections, optionally of one connector",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConnectionsList,
}

var connectionsGetCmd = &cobra.Command{
	Use:   "get [slug]",
	Short: "Show a connection",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConnectionsGet,
}

var connectionsTokenCmd = &cobra.Command{
	Use:   "token [slug]",
	Short: "Print the connection's third-party access token",
	Long: `Print the access token of the connected account, for use with the
provider's API. Fails when the connection is missing, disabled or not authorized.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnectionsToken,
}

var connectionsRemoveCmd = &cobra.Command{
	Use:   "remove [slug]",
	Short: "Remove a connection",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConnectionsRemove,
}

var connectionID string

func init() {
	for _, c := range []*cobra.Command{connectionsGetCmd, connectionsTokenCmd, connectionsRemoveCmd} {
		c.Flags().StringVar(&connectionID, "id", "", "connection ID instead of a connector slug")
	}
	connectionsListCmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON")
	connectionsGetCmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON")

	connectionsCmd.AddCommand(connectionsListCmd)
	connectionsCmd.AddCommand(connectionsGetCmd)
	connectionsCmd.AddCommand(connectionsTokenCmd)
	connectionsCmd.AddCommand(connectionsRemoveCmd)
	rootCmd.AddCommand(connectionsCmd)
}

// queryFromArgs builds a connection query from --id or the slug argument.
func queryFromArgs(args []string) (domain.ConnectionQuery, error) {
	q := domain.ConnectionQuery{ID: connectionID}
	if len(args) > 0 {
		q.Slug = args[0]
	}
	if err := q.Validate(); err != nil {
		return q, errors.New("pass either a connector slug or --id")
	}
	return q, nil
}

func runConnectionsList(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	slug := ""
	if len(args) > 0 {
		slug = args[0]
	}

	connections, err := c.ListConnections(cmd.Context(), slug)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, connections)
	}
	if len(connections) == 0 {
		cmd.Println("No connections.")
		return nil
	}

	rows := make([][]string, 0, len(connections))
	for i := range connections {
		conn := &connections[i]
		rows = append(rows, []string{
			conn.ID, conn.Connector.Slug, string(conn.Status()), authorizationStatus(conn.Authorization),
		})
	}
	printTable(cmd, []string{"ID", "CONNECTOR", "STATUS", "AUTHORIZATION"}, rows)
	return nil
}

func runConnectionsGet(cmd *cobra.Command, args []string) error {
	q, err := queryFromArgs(args)
	if err != nil {
		return err
	}
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	conn, err := c.GetConnection(cmd.Context(), q)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, conn)
	}
	printConnection(cmd, conn)
	return nil
}

func runConnectionsToken(cmd *cobra.Command, args []string) error {
	q, err := queryFromArgs(args)
	if err != nil {
		return err
	}
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	token, err := c.GetConnectionToken(cmd.Context(), q)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("connection %s%s: %w", q.ID, q.Slug, domain.ErrNoAccessToken)
	}
	cmd.Println(token)
	return nil
}

func runConnectionsRemove(cmd *cobra.Command, args []string) error {
	q, err := queryFromArgs(args)
	if err != nil {
		return err
	}
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	if err := c.RemoveConnection(cmd.Context(), q); err != nil {
		return err
	}
	cmd.Printf("Removed connection %s%s.\n", q.ID, q.Slug)
	return nil
}

func printConnection(cmd *cobra.Command, conn *domain.Connection) {
	cmd.Printf("ID:             %s\n", conn.ID)
	cmd.Printf("Connector:      %s\n", conn.Connector.Slug)
	cmd.Printf("Enabled:        %t\n", conn.Enabled)
	cmd.Printf("Status:         %s\n", conn.Status())
	cmd.Printf("Authorization:  %s\n", authorizationStatus(conn.Authorization))
	if conn.Authorization != nil && conn.Authorization.Status == domain.StatusError {
		cmd.Printf("Error:          %s\n", conn.Authorization.ErrorMessage)
	}
}
