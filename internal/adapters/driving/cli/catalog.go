package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

var platformCmd = &cobra.Command{
	Use:   "platform",
	Short: "Show the vendor platform",
	RunE:  runPlatform,
}

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "Browse the platform's connectors",
}

var connectorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connectors and their connection status",
	Long: `List the platform's connectors. When logged in, the status of your
connection to each connector is shown; otherwise the public catalog is listed.`,
	RunE: runConnectorsList,
}

var connectorsGetCmd = &cobra.Command{
	Use:   "get [slug]",
	Short: "Show a connector",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectorsGet,
}

var outputJSON bool

func init() {
	for _, c := range []*cobra.Command{platformCmd, connectorsListCmd, connectorsGetCmd} {
		c.Flags().BoolVar(&outputJSON, "json", false, "print JSON")
	}
	connectorsCmd.AddCommand(connectorsListCmd)
	connectorsCmd.AddCommand(connectorsGetCmd)
	rootCmd.AddCommand(platformCmd)
	rootCmd.AddCommand(connectorsCmd)
}

func runPlatform(cmd *cobra.Command, _ []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	p, err := c.GetPlatform(cmd.Context())
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, p)
	}

	cmd.Printf("Name:     %s\n", p.Name)
	cmd.Printf("Slug:     %s\n", p.Slug)
	cmd.Printf("Website:  %s\n", p.Website)
	cmd.Printf("Domain:   %s\n", c.Domain())
	if p.LoginRedirectURL != "" {
		cmd.Printf("Login:    %s\n", p.LoginRedirectURL)
	}
	return nil
}

func runConnectorsList(cmd *cobra.Command, _ []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	connectors, err := c.ListConnectors(cmd.Context())
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, connectors)
	}
	if len(connectors) == 0 {
		cmd.Println("No connectors available.")
		return nil
	}

	loggedIn := c.State().Config().Authorized()
	rows := make([][]string, 0, len(connectors))
	for _, conn := range connectors {
		row := []string{conn.Slug, conn.Name, conn.ShortDescription}
		if loggedIn {
			row = append(row, connectorStatus(conn))
		}
		rows = append(rows, row)
	}
	headers := []string{"SLUG", "NAME", "DESCRIPTION"}
	if loggedIn {
		headers = append(headers, "STATUS")
	}
	printTable(cmd, headers, rows)
	return nil
}

func runConnectorsGet(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	connector, err := c.GetConnector(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, connector)
	}
	printConnector(cmd, c.ConnectorURL(connector.Slug), connector)
	return nil
}

func printConnector(cmd *cobra.Command, url string, connector *domain.Connector) {
	cmd.Printf("Name:         %s\n", connector.Name)
	cmd.Printf("Slug:         %s\n", connector.Slug)
	cmd.Printf("Description:  %s\n", connector.ShortDescription)
	cmd.Printf("Page:         %s\n", url)
	cmd.Printf("Multiple:     %t\n", connector.SupportsMultipleConnections)
	cmd.Printf("Status:       %s\n", connectorStatus(*connector))
}
