package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the platform with a session token",
	Long: `Log in with a platform session token.

The token is read from --token, or from standard input when --token is "-"
or not given. On a terminal the input is hidden.

Examples:
  xkit login --domain acme.xkit.co
  echo "$TOKEN" | xkit login --token -`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the saved token",
	RunE:  runLogout,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a fresh platform access token",
	Long: `Print a platform access token for the current session, refreshing it
if needed. With --decode the token's subject and expiry are printed instead.
The token is decoded without verifying its signature.`,
	RunE: runToken,
}

var (
	loginToken  string
	tokenDecode bool

	// stdin is where tokens are read from.
	stdin io.Reader = os.Stdin
)

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", `session token, or "-" to read it from stdin`)
	tokenCmd.Flags().BoolVar(&tokenDecode, "decode", false, "print the token's claims instead of the token")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}

	token := loginToken
	if token == "" || token == "-" {
		token, err = readToken(cmd)
		if err != nil {
			return err
		}
	}

	var cb func(context.Context) (string, error)
	if isTerminal(stdin) {
		// Silent refresh failed later on: ask again instead of redirecting.
		cb = func(context.Context) (string, error) { return readToken(cmd) }
	}

	if err := c.Login(cmd.Context(), token, cb); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	cmd.Printf("Logged in to %s.\n", c.Domain())
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	if err := c.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	cmd.Printf("Logged out of %s.\n", c.Domain())
	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	token, err := c.GetAccessToken(cmd.Context())
	if err != nil {
		return err
	}
	if !tokenDecode {
		cmd.Println(token)
		return nil
	}

	claims, err := decodeToken(token)
	if err != nil {
		return err
	}
	cmd.Printf("Subject:  %s\n", claims.Subject)
	cmd.Printf("Issuer:   %s\n", claims.Issuer)
	if claims.ExpiresAt != nil {
		remaining := time.Until(claims.ExpiresAt.Time).Round(time.Second)
		cmd.Printf("Expires:  %s (in %s)\n", claims.ExpiresAt.Format(time.RFC3339), remaining)
	} else {
		cmd.Println("Expires:  never")
	}
	return nil
}

// decodeToken reads the registered claims of a session JWT. The signature
// is not checked; the platform verifies tokens, the CLI only displays them.
func decodeToken(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return claims, nil
}

// readToken reads one token from stdin, hiding the input on a terminal.
func readToken(cmd *cobra.Command) (string, error) {
	if f, ok := stdin.(*os.File); ok && isTerminal(f) {
		cmd.Print("Session token: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return checkToken(string(raw))
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return checkToken(line)
}

func checkToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", errors.New("no token given")
	}
	return token, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
