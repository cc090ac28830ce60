package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/me/gestion/internal/views"
	"github.com/me/gestion/pkg/model"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newEntityCmd builds the command group for one entity screen. Every
// subcommand waits for the access check before touching the API.
func newEntityCmd(e views.Entity) *cobra.Command {
	cmd := &cobra.Command{
		Use:   e.Name,
		Short: "Manage " + strings.ToLower(e.Title),
	}

	cmd.AddCommand(
		newEntityListCmd(e),
		newEntityAddCmd(e),
		newEntityUpdateCmd(e, false),
		newEntityDeleteCmd(e),
	)
	if e.PatchPath != "" {
		cmd.AddCommand(newEntityUpdateCmd(e, true))
	}
	if e.Name == views.Personnel.Name {
		cmd.AddCommand(newAssignCmd())
	}
	return cmd
}

// bindFields registers one string flag per entity field. Field defaults
// apply to create only; update flags start empty so an omitted required
// value is reported instead of overwritten.
func bindFields(fs *pflag.FlagSet, fields []views.Field, create bool) map[string]*string {
	values := make(map[string]*string, len(fields))
	for _, f := range fields {
		usage := f.Usage
		if f.Required && (!create || f.Default == "") {
			usage += " (required)"
		}
		def := ""
		if create {
			def = f.Default
		}
		values[f.Name] = fs.String(f.Flag, def, usage)
	}
	return values
}

// collect reads bound flag values. Only flags set on the command line are
// returned when changedOnly is true.
func collect(fs *pflag.FlagSet, fields []views.Field, bound map[string]*string, changedOnly bool) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		if changedOnly && !fs.Changed(f.Flag) {
			continue
		}
		values[f.Name] = *bound[f.Name]
	}
	return values
}

func newEntityListCmd(e views.Entity) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + strings.ToLower(e.Title),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSession(cmd, e.Page); err != nil {
				return err
			}

			v := views.New(client, e)
			records, res := v.List(cmd.Context())
			if !res.OK {
				return fmt.Errorf("list %s: %w", e.Name, res.Err())
			}

			if asJSON {
				if records == nil {
					records = []model.Record{}
				}
				data, err := json.MarshalIndent(records, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal records: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			return v.Render(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func newEntityAddCmd(e views.Entity) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a " + e.Name,
		Args:  cobra.NoArgs,
	}
	bound := bindFields(cmd.Flags(), e.Fields, true)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd, e.Page); err != nil {
			return err
		}

		res := views.New(client, e).Create(cmd.Context(), collect(cmd.Flags(), e.Fields, bound, false))
		if !res.OK {
			return fmt.Errorf("create %s: %w", e.Name, res.Err())
		}
		msg := fmt.Sprintf("Created %s", e.Name)
		if id := model.FormatValue(res.Fields["id"]); id != "" {
			msg += " " + id
		}
		fmt.Fprintln(cmd.OutOrStdout(), views.Success(msg))
		return nil
	}
	return cmd
}

func newEntityUpdateCmd(e views.Entity, partial bool) *cobra.Command {
	use, short := "update <id>", "Replace a "+e.Name
	if partial {
		use, short = "patch <id>", "Change selected fields of a "+e.Name
	}
	fields := updateFields(e.Fields)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
	}
	bound := bindFields(cmd.Flags(), fields, false)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd, e.Page); err != nil {
			return err
		}

		v := views.New(client, e)
		var res model.Result
		if partial {
			res = v.Patch(cmd.Context(), args[0], collect(cmd.Flags(), fields, bound, true))
		} else {
			res = v.Update(cmd.Context(), args[0], collect(cmd.Flags(), fields, bound, false))
		}
		if !res.OK {
			return fmt.Errorf("update %s %s: %w", e.Name, args[0], res.Err())
		}
		fmt.Fprintln(cmd.OutOrStdout(), views.Success(fmt.Sprintf("Updated %s %s", e.Name, args[0])))
		return nil
	}
	return cmd
}

// updateFields drops fields that can only be set on create.
func updateFields(fields []views.Field) []views.Field {
	out := make([]views.Field, 0, len(fields))
	for _, f := range fields {
		if !f.CreateOnly {
			out = append(out, f)
		}
	}
	return out
}

func newEntityDeleteCmd(e views.Entity) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + e.Name,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSession(cmd, e.Page); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !yes {
				answer, err := prompt(bufio.NewReader(cmd.InOrStdin()), out,
					fmt.Sprintf("Delete %s %s? [y/N] ", e.Name, args[0]))
				if err != nil {
					return err
				}
				if a := strings.ToLower(answer); a != "y" && a != "yes" {
					fmt.Fprintln(out, views.Muted("Cancelled."))
					return nil
				}
			}

			res := views.New(client, e).Delete(cmd.Context(), args[0])
			if !res.OK {
				return fmt.Errorf("delete %s %s: %w", e.Name, args[0], res.Err())
			}
			fmt.Fprintln(out, views.Success(fmt.Sprintf("Deleted %s %s", e.Name, args[0])))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <personnel-id> <section-id>",
		Short: "Assign a personnel member to a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSession(cmd, model.PagePersonnel); err != nil {
				return err
			}

			res := views.Assign(cmd.Context(), client, args[0], args[1])
			if !res.OK {
				return fmt.Errorf("assign section: %w", res.Err())
			}
			fmt.Fprintln(cmd.OutOrStdout(), views.Success(fmt.Sprintf("Assigned personnel %s to section %s", args[0], args[1])))
			return nil
		},
	}
}
