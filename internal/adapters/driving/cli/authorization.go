package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var authorizationCmd = &cobra.Command{
	Use:   "authorization",
	Short: "Work with pending authorizations",
}

var setFieldsCmd = &cobra.Command{
	Use:   "set-fields [prototype-slug]",
	Short: "Submit the fields an authorization asks for",
	Long: `Submit fields collected for an authorization that needs them, such as
a subdomain or an API key.

Example:
  xkit authorization set-fields zendesk --state abc123 -f subdomain=acme`,
	Args: cobra.ExactArgs(1),
	RunE: runSetFields,
}

var (
	authState  string
	authFields []string
)

func init() {
	setFieldsCmd.Flags().StringVar(&authState, "state", "", "authorization state token (required)")
	setFieldsCmd.Flags().StringArrayVarP(&authFields, "field", "f", nil, "field as key=value, repeatable")
	_ = setFieldsCmd.MarkFlagRequired("state")

	authorizationCmd.AddCommand(setFieldsCmd)
	rootCmd.AddCommand(authorizationCmd)
}

func parseFields(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, errors.New("at least one --field is required")
	}
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", pair)
		}
		fields[key] = value
	}
	return fields, nil
}

func runSetFields(cmd *cobra.Command, args []string) error {
	fields, err := parseFields(authFields)
	if err != nil {
		return err
	}
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	auth, err := c.SetAuthorizationFields(cmd.Context(), args[0], authState, fields)
	if err != nil {
		return err
	}
	cmd.Printf("Authorization %s is %s.\n", auth.ID, auth.Status)
	return nil
}
