package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/me/gestion/internal/apiclient"
	"github.com/me/gestion/internal/views"
	"github.com/me/gestion/pkg/model"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var email, password string
	var force bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the gestion API",
		Long:  "Authenticate with email and password and store the session token for the configured server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if !force {
				if d := gd.RedirectIfSignedIn(ctx, model.PageLogin); !d.Allowed() {
					fmt.Fprintf(out, "Already signed in to %s. Use --force to sign in again.\n", origin)
					return nil
				}
			}

			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if email == "" {
				if email, err = prompt(in, out, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt(in, out, "Password: "); err != nil {
					return err
				}
			}
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}

			res := client.Login(ctx, email, password)
			if !res.OK {
				return fmt.Errorf("login: %w", res.Err())
			}
			fmt.Fprintln(out, views.Success(fmt.Sprintf("Signed in to %s as %s", origin, email)))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	cmd.Flags().BoolVar(&force, "force", false, "Sign in even if a session is already stored")
	return cmd
}

func newSignupCmd() *cobra.Command {
	var req apiclient.SignupRequest
	var role string
	var force bool

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if !force {
				if d := gd.RedirectIfSignedIn(ctx, model.PageRegister); !d.Allowed() {
					fmt.Fprintf(out, "Already signed in to %s. Use --force to register another account.\n", origin)
					return nil
				}
			}

			req.Role = model.UserRole(role)
			res := client.Signup(ctx, req)
			if !res.OK {
				return fmt.Errorf("signup: %w", res.Err())
			}
			fmt.Fprintln(out, views.Success(fmt.Sprintf("Account created, signed in to %s as %s", origin, req.Email)))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Firstname, "firstname", "", "First name")
	cmd.Flags().StringVar(&req.Lastname, "lastname", "", "Last name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password")
	cmd.Flags().StringVar(&role, "role", string(model.RoleUser), "Role ("+string(model.RoleUser)+", "+string(model.RoleAdmin)+")")
	cmd.Flags().BoolVar(&force, "force", false, "Register even if a session is already stored")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := gd.Logout(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Signed out of %s (next: %s)\n", origin, d.Target)
			return nil
		},
	}
}

// prompt writes label and reads one trimmed line.
func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", nil
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
