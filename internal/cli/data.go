package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the default catalog into short tables",
		Long: `Write the default catalog and merchants into tables holding fewer records
than the configured minimums. Tables at or above their minimum are left alone.

Example:
  vaniya seed
  vaniya seed --config ./deploy/vaniya.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			seeded, err := sess.shop.Seed(commandContext(cmd))
			if err != nil {
				return sess.fail("seed failed", err)
			}
			if rootOpts.Format == "json" {
				return sess.out.Success(map[string][]string{"seeded": nonNil(seeded)})
			}
			if len(seeded) == 0 {
				return sess.out.Success("Nothing to seed.")
			}
			return sess.out.Success("Seeded: " + strings.Join(seeded, ", "))
		},
	}
}

// NewPullCommand creates the pull command.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace local products with the remote catalog",
		Long: `Scan the remote products table and replace the local products with it.
An empty remote catalog leaves the local products untouched.

Example:
  VANIYA_REMOTE_ENABLED=true vaniya pull`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			if !sess.cfg.Remote.Enabled {
				sess.out.VerboseLog("remote disabled; nothing to pull")
			}
			n, err := sess.shop.Hydrate(commandContext(cmd))
			if err != nil {
				return sess.fail("pull failed", err)
			}
			if rootOpts.Format == "json" {
				return sess.out.Success(map[string]int{"products": n})
			}
			if n == 0 {
				return sess.out.Success("Remote catalog empty; local products kept.")
			}
			return sess.out.Success(fmt.Sprintf("Pulled %d products.", n))
		},
	}
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select <table>",
		Short: "Print a table's stored records",
		Long: `Print every record stored in a table, as stored. A table that was never
written prints as an empty list.

Example:
  vaniya select products
  vaniya select orders --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			snap, err := sess.shop.Tables.Read(commandContext(cmd), args[0])
			if err != nil {
				return sess.fail("select failed", err)
			}
			sess.out.VerboseLog("%s at version %d", snap.Table, snap.Version)
			return sess.out.Success(json.RawMessage(snap.Data))
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Print one record",
		Long: `Print the record with the given id.

Example:
  vaniya get products p-oil-01`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			rec, err := sess.shop.Record(commandContext(cmd), args[0], args[1])
			if err != nil {
				return sess.fail("get failed", err)
			}
			if rec == nil {
				return sess.out.Fail(ExitFailure, CodeNotFound,
					fmt.Sprintf("no record %q in %s", args[1], args[0]), nil)
			}
			return sess.out.Success(rec)
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Remove one record",
		Long: `Remove the record with the given id. Removing a missing record is not an
error; the table is rewritten either way.

Example:
  vaniya delete coupons c-diwali`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.shop.DeleteRecord(commandContext(cmd), args[0], args[1]); err != nil {
				return sess.fail("delete failed", err)
			}
			if rootOpts.Format == "json" {
				return sess.out.Success(map[string]string{"table": args[0], "deleted": args[1]})
			}
			return sess.out.Success(fmt.Sprintf("Deleted %s from %s.", args[1], args[0]))
		},
	}
}

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Yes bool
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every table",
		Long: `Remove every table under the configured namespace and notify subscribers.
Other data in the store is left alone. Requires --yes.

Example:
  vaniya reset --yes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				return formatterFor(cmd, rootOpts).Fail(ExitCommandError, CodeInvalid,
					"refusing to reset without --yes", nil)
			}
			sess, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			n, err := sess.shop.Reset(commandContext(cmd))
			if err != nil {
				return sess.fail("reset failed", err)
			}
			if rootOpts.Format == "json" {
				return sess.out.Success(map[string]int{"removed": n})
			}
			return sess.out.Success(fmt.Sprintf("Removed %d tables.", n))
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm removing every table")

	return cmd
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
