package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/petcare/internal/database"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List records of a kind",
		Long: "List the records of one kind, merged with the remote store when sync\n" +
			"is enabled.\n\nKinds: " + validKinds(),
		Example: "  petcare list pets --owner demo-user\n  petcare list tasks --json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				c, err := db.Collection(k)
				if err != nil {
					return classify(err)
				}
				items := c.List(ctx, owner)
				return a.emit(cmd.OutOrStdout(), items, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					for _, e := range items {
						fmt.Fprintf(tw, "%s\t%s\n", e.GetID(), label(e))
					}
					tw.Flush()
				})
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only records of this user id")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "get <kind> <id>",
		Short:   "Get a record by id",
		Example: "  petcare get pets demo-pet-buddy",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				c, err := db.Collection(k)
				if err != nil {
					return classify(err)
				}
				e, ok := c.Lookup(ctx, args[1])
				if !ok {
					return userError(fmt.Errorf("%w: %s %q", types.ErrNotFound, k, args[1]))
				}
				return writeJSON(cmd.OutOrStdout(), e)
			})
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "create <kind> <json>",
		Short:   "Create a record",
		Example: `  petcare create pets '{"userId":"demo-user","name":"Rex","type":"dog"}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			e, err := decodeEntity(k, args[1])
			if err != nil {
				return err
			}
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				c, err := db.Collection(k)
				if err != nil {
					return classify(err)
				}
				created, err := c.Insert(ctx, e)
				if err != nil {
					return classify(err)
				}
				return a.emit(cmd.OutOrStdout(), created, func(w io.Writer) {
					fmt.Fprintf(w, "Created %s: %s\n", k, created.GetID())
				})
			})
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "update <kind> <id> <json>",
		Short:   "Apply a partial update to a record",
		Example: `  petcare update tasks 0190... '{"completed":true}'`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			fields, err := decodeObject(args[2])
			if err != nil {
				return err
			}
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				c, err := db.Collection(k)
				if err != nil {
					return classify(err)
				}
				updated, ok, err := c.Modify(ctx, args[1], types.Patch(fields))
				if err != nil {
					return classify(err)
				}
				if !ok {
					return userError(fmt.Errorf("%w: %s %q", types.ErrNotFound, k, args[1]))
				}
				return a.emit(cmd.OutOrStdout(), updated, func(w io.Writer) {
					fmt.Fprintf(w, "Updated %s: %s\n", k, updated.GetID())
				})
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				c, err := db.Collection(k)
				if err != nil {
					return classify(err)
				}
				if !c.Delete(ctx, args[1]) {
					return userError(fmt.Errorf("%w: %s %q", types.ErrNotFound, k, args[1]))
				}
				return a.emit(cmd.OutOrStdout(), map[string]string{"deleted": args[1]}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s: %s\n", k, args[1])
				})
			})
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "count <kind>",
		Short: "Count local records of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				c, err := db.Collection(k)
				if err != nil {
					return classify(err)
				}
				n := c.Count(ctx, owner)
				return a.emit(cmd.OutOrStdout(), map[string]any{"kind": k, "count": n}, func(w io.Writer) {
					fmt.Fprintln(w, n)
				})
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only records of this user id")
	return cmd
}
