package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xkit-cli/internal/adapters/driving/mcp"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

// watcher is implemented by config stores that can report edits made by
// other processes.
type watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can list your
connectors and fetch the access tokens of your connected accounts.

By default the server communicates over stdio. Use --port to serve the
streamable HTTP transport instead.

While serving, edits to the config file are picked up: changing the "domain"
key points the server at the new vendor domain.

Examples:
  xkit mcp serve
  xkit mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	c, err := getClient(cmd)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{Connect: c})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	done := followDomain(ctx, configStore, c)
	defer func() { <-done }()
	defer cancel()

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}
	return server.Run(ctx)
}

// followDomain points c at the configured domain whenever the config file
// changes, until ctx is done. The returned channel closes when it stops.
func followDomain(ctx context.Context, s driven.ConfigStore, c Client) <-chan struct{} {
	done := make(chan struct{})
	w, ok := s.(watcher)
	if !ok || flagDomain != "" {
		close(done)
		return done
	}

	current := c.Domain()
	go func() {
		defer close(done)
		err := w.Watch(ctx, func() {
			d := s.GetString(keyDomain)
			if d == "" || d == current {
				return
			}
			logger.Info("config changed, switching to %s", d)
			current = d
			c.SetDomain(d)
		})
		if err != nil {
			logger.Warn("watching config: %v", err)
		}
	}()
	return done
}
