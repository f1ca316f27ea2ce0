package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// PasswordEnv supplies the password when neither --pass nor --pass-stdin is given
const PasswordEnv = "FHECITY_PASSWORD"

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Manage the identity used for city commands",
	}

	cmd.AddCommand(newPlayerGuestCmd())
	cmd.AddCommand(newPlayerRegisterCmd())
	cmd.AddCommand(newPlayerLoginCmd())
	cmd.AddCommand(newPlayerMeCmd())
	cmd.AddCommand(newPlayerLogoutCmd())

	return cmd
}

// authenticate posts credentials and stores the returned session token
func authenticate(path string, req any) error {
	var result AuthResult
	if err := client.Post(path, req, &result); err != nil {
		return err
	}

	if err := cfg.SaveSession(result.SessionToken, result.Player.ID); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	out := NewOutput(cfg.Output)
	out.Print(result)
	return nil
}

// credentials holds the flags shared by register and login
type credentials struct {
	user      string
	pass      string
	passStdin bool
}

func (c *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&c.pass, "pass", "", "Password (or set "+PasswordEnv+")")
	cmd.Flags().BoolVar(&c.passStdin, "pass-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("user")
	cmd.MarkFlagsMutuallyExclusive("pass", "pass-stdin")
}

func (c *credentials) password(stdin io.Reader) (string, error) {
	switch {
	case c.passStdin:
		return readPassword(stdin)
	case c.pass != "":
		return c.pass, nil
	case os.Getenv(PasswordEnv) != "":
		return os.Getenv(PasswordEnv), nil
	default:
		return "", fmt.Errorf("a password is required: use --pass, --pass-stdin or %s", PasswordEnv)
	}
}

// readPassword takes the first line of r
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	pass := strings.TrimRight(line, "\r\n")
	if pass == "" {
		return "", fmt.Errorf("empty password on stdin")
	}
	return pass, nil
}

func newPlayerGuestCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "guest",
		Short: "Create a guest player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			return authenticate("/api/v1/players/guest", map[string]string{"display_name": name})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newPlayerRegisterCmd() *cobra.Command {
	var name string
	var creds credentials

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new player account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := creds.password(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return authenticate("/api/v1/players/register", map[string]string{
				"display_name": name,
				"username":     creds.user,
				"password":     pass,
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the username)")
	creds.bind(cmd)

	return cmd
}

func newPlayerLoginCmd() *cobra.Command {
	var creds credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := creds.password(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return authenticate("/api/v1/players/login", map[string]string{
				"username": creds.user,
				"password": pass,
			})
		},
	}

	creds.bind(cmd)

	return cmd
}

func newPlayerMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current player and whether it has joined the city",
		RunE: func(cmd *cobra.Command, args []string) error {
			var player Player
			if err := client.Get("/api/v1/players/me", &player); err != nil {
				return err
			}

			var membership Membership
			if err := client.Get("/api/v1/city/accounts/"+player.ID, &membership); err != nil {
				return err
			}
			player.Joined = &membership.Joined

			out := NewOutput(cfg.Output)
			out.Print(player)
			return nil
		},
	}
}

func newPlayerLogoutCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the current session and forget the saved token",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/players/logout"
			if all {
				path += "?all=true"
			}
			if err := client.Post(path, nil, nil); err != nil {
				return err
			}
			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Logged out")
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "End every session of this player")

	return cmd
}
