package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"talentloop/internal/errors"
	"talentloop/internal/handoff"
	"talentloop/internal/types"

	"github.com/spf13/cobra"
)

var authConfig struct {
	Email     string
	FirstName string
	LastName  string
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and keep the session token",
	Long: `Sign in to the platform. The password is read from the first line of stdin
or from TALENTLOOP_PASSWORD. The returned token is stored in the handoff so
later commands are authenticated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, false)
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Long: `Create an account. The password is read like for "login". When the
platform returns a token it is stored for later commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, true)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *env) error {
			ctx := cmd.Context()
			if err := rt.client.Logout(ctx); err != nil {
				rt.logger.Warn("Logout request failed, clearing local session anyway", "error", err)
			}
			if err := handoff.ClearAuth(ctx, rt.store); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{loginCmd, signupCmd} {
		cmd.Flags().StringVar(&authConfig.Email, "email", "", "Account email (required)")
		_ = cmd.MarkFlagRequired("email")
	}
	signupCmd.Flags().StringVar(&authConfig.FirstName, "first-name", "", "First name")
	signupCmd.Flags().StringVar(&authConfig.LastName, "last-name", "", "Last name")
}

func authenticate(cmd *cobra.Command, signup bool) error {
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}

	return withRuntime(cmd, func(rt *env) error {
		ctx := cmd.Context()
		creds := types.Credentials{
			Email:     authConfig.Email,
			Password:  password,
			FirstName: authConfig.FirstName,
			LastName:  authConfig.LastName,
		}

		var result *types.AuthResult
		if signup {
			result, err = rt.client.Signup(ctx, creds)
		} else {
			result, err = rt.client.Login(ctx, creds)
		}
		if err != nil {
			return err
		}

		if result.Token != "" {
			user := result.User
			if err := handoff.SaveAuth(ctx, rt.store, result.Token, &user); err != nil {
				return err
			}
		}

		rt.logger.Info("Authenticated", "email", authConfig.Email, "signup", signup)
		name := strings.TrimSpace(result.User.FirstName + " " + result.User.LastName)
		if name == "" {
			name = authConfig.Email
		}
		if signup && result.Token == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s. Sign in with \"talentloop login\".\n", name)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", name)
		return nil
	})
}

// readPassword takes TALENTLOOP_PASSWORD or the first line of r
func readPassword(r io.Reader) (string, error) {
	if p := os.Getenv("TALENTLOOP_PASSWORD"); p != "" {
		return p, nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read password from stdin", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"A password is required on stdin or in TALENTLOOP_PASSWORD", nil)
	}
	return password, nil
}
