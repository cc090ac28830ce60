package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/me/gestion/internal/guard"
	"github.com/me/gestion/internal/views"
	"github.com/me/gestion/pkg/model"
	"github.com/spf13/cobra"
)

// originLister is implemented by backends that can enumerate stored origins.
type originLister interface {
	Origins(ctx context.Context) ([]string, error)
}

func newSessionCmd() *cobra.Command {
	var check, all bool

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if all {
				if lister == nil {
					return fmt.Errorf("storage %q cannot list sessions", cfg.Storage)
				}
				origins, err := lister.Origins(ctx)
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
				if len(origins) == 0 {
					fmt.Fprintln(out, views.Muted("No stored sessions."))
					return nil
				}
				for _, o := range origins {
					fmt.Fprintln(out, o)
				}
				return nil
			}

			info, ok := sess.Info(ctx)
			if !ok {
				fmt.Fprintf(out, "Not signed in to %s.\n", origin)
				return nil
			}
			fmt.Fprintf(out, "Origin:  %s\n", info.Origin)
			fmt.Fprintf(out, "Token:   present\n")
			if !info.SavedAt.IsZero() {
				fmt.Fprintf(out, "Saved:   %s\n", humanize.Time(info.SavedAt))
			}

			if !check {
				return nil
			}
			d := gd.Verify(ctx)
			if !d.Allowed() {
				var apiErr *model.APIError
				if errors.As(d.Cause, &apiErr) && apiErr.IsUnauthorized() {
					fmt.Fprintln(out, views.Failure("Session expired or revoked: "+d.Reason))
				} else {
					fmt.Fprintln(out, views.Failure("Session could not be verified: "+d.Reason))
				}
				return ErrSessionRequired
			}
			fmt.Fprintln(out, views.Success("Session accepted by server"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Verify the session with the server (clears it if rejected)")
	cmd.Flags().BoolVar(&all, "all", false, "List every origin with a stored session")
	return cmd
}

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <page>",
		Short: "Run the access check for a console screen",
		Long: "Run the access check for a console screen such as personnel.html and report " +
			"whether it may render or where the user is sent instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			page := guard.PageFromPath(args[0])

			var d model.Decision
			if page == model.PageLogin || page == model.PageRegister {
				d = gd.RedirectIfSignedIn(ctx, page)
			} else {
				var err error
				if d, err = gd.Enter(ctx, page).Wait(ctx); err != nil {
					return err
				}
			}

			if d.Allowed() {
				fmt.Fprintf(out, "%s: %s\n", page, d.Outcome)
				return nil
			}
			fmt.Fprintf(out, "%s: %s to %s\n", page, d.Outcome, navigator.Last())
			if d.Target == model.PageLogin {
				return ErrSessionRequired
			}
			return nil
		},
	}
}
