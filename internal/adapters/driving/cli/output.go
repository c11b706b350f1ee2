package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// printTable writes rows under headers without borders.
func printTable(cmd *cobra.Command, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		})
	cmd.Println(t.Render())
}

// connectorStatus summarises the user's connections of a connector.
func connectorStatus(c domain.Connector) string {
	if len(c.Connections) > 0 {
		connected := 0
		for i := range c.Connections {
			if c.Connections[i].Status() == domain.ConnectionConnected {
				connected++
			}
		}
		return fmt.Sprintf("%d/%d connected", connected, len(c.Connections))
	}
	return string(c.Connection.Status())
}

func authorizationStatus(a *domain.Authorization) string {
	if a == nil {
		return "-"
	}
	return string(a.Status)
}
