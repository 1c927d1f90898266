package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/roasbeef/lexdesk/internal/auth"
	"github.com/roasbeef/lexdesk/internal/config"
	"github.com/spf13/cobra"
)

// passwordEnvVar supplies the password for non-interactive logins.
const passwordEnvVar = "LEXDESK_PASSWORD"

var (
	loginUsername      string
	loginPasswordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the access token",
	Long: `Exchange your username and password for an access token. The token is
kept in the OS keyring, keyed by the backend URL.

The password is read from $LEXDESK_PASSWORD, from stdin with --password-stdin,
or prompted for.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored access token",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "",
		"Username (default: last used)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false,
		"Read the password from stdin")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	username := loginUsername
	if username == "" {
		username = a.cfg.Server.Username
	}
	if username == "" {
		username, err = prompt("Username", false)
		if err != nil {
			return err
		}
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	password, err := readPassword()
	if err != nil {
		return err
	}

	resp, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}

	keyring := auth.NewKeyringProvider(a.client.BaseURL())
	if err := keyring.SaveToken(resp.Token().AccessToken); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	// Remember the username for the next login.
	if a.cfg.Server.Username != resp.Username {
		err := config.Update(configPath, func(c *config.Config) {
			c.Server.Username = resp.Username
		})
		if err != nil {
			a.log.Warn("Failed to save username", "error", err)
		}
	}

	fmt.Printf("Logged in as %s", resp.Username)
	if resp.Email != "" {
		fmt.Printf(" <%s>", resp.Email)
	}
	fmt.Println()

	return nil
}

// readPassword reads the password from the environment, stdin, or a prompt.
func readPassword() (string, error) {
	if p := os.Getenv(passwordEnvVar); p != "" {
		return p, nil
	}

	if loginPasswordStdin {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	return prompt("Password", true)
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	keyring := auth.NewKeyringProvider(a.client.BaseURL())
	if err := keyring.Delete(); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}

	fmt.Printf("Logged out of %s\n", a.client.BaseURL())

	return nil
}
