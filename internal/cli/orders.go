package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/vaniya/internal/models"
	"github.com/roach88/vaniya/internal/orders"
)

// PlaceOrderOptions holds flags for the place-order command.
type PlaceOrderOptions struct {
	*RootOptions
	File string
}

// NewPlaceOrderCommand creates the place-order command.
func NewPlaceOrderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlaceOrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "place-order",
		Short: "Place an order from a checkout draft",
		Long: `Place an order from a JSON checkout draft. Totals, tracking steps and the
order id (when absent) are filled in; stock is decremented for every line item
whose product is in the catalog.

Example:
  vaniya place-order --file draft.json
  cat draft.json | vaniya place-order --file -`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return placeOrder(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "checkout draft JSON file, or - for stdin (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func placeOrder(opts *PlaceOrderOptions, cmd *cobra.Command) error {
	out := formatterFor(cmd, opts.RootOptions)

	draft, err := readDraft(opts.File, cmd.InOrStdin())
	if err != nil {
		return out.Fail(ExitCommandError, CodeInvalid, "failed to read draft", err)
	}

	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	order, err := sess.shop.PlaceOrder(commandContext(cmd), draft)
	if err != nil {
		return sess.fail("place order failed", err)
	}
	if opts.Format == "json" {
		return sess.out.Success(order)
	}
	return sess.out.Success(fmt.Sprintf("Placed order %s: %d items, total %s.",
		order.ID, len(order.Items), order.Total.StringFixed(2)))
}

func readDraft(path string, stdin io.Reader) (orders.Draft, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return orders.Draft{}, err
	}

	var d orders.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return orders.Draft{}, fmt.Errorf("invalid draft JSON: %w", err)
	}
	return d, nil
}

// NewSetStatusCommand creates the set-status command.
func NewSetStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <order-id> <status>",
		Short: "Move an order to a new status",
		Long: `Move an order along its lifecycle:

  pending -> confirmed -> shipped -> delivered
  cancelled, returned and disputed end the lifecycle.

Example:
  vaniya set-status o-42 shipped`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			order, err := sess.shop.UpdateOrderStatus(commandContext(cmd), args[0], models.OrderStatus(args[1]))
			if err != nil {
				return sess.fail("set status failed", err)
			}
			if rootOpts.Format == "json" {
				return sess.out.Success(order)
			}
			return sess.out.Success(fmt.Sprintf("Order %s is now %s.", order.ID, order.Status))
		},
	}
}
