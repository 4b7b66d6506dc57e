package cmd

import (
	"fmt"
	"strings"

	"github.com/alejoacosta74/coinbase-api/internal/rest"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Place, cancel and query orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List historical orders",
	Args:  cobra.NoArgs,
	RunE:  runOrdersList,
}

var ordersCancelCmd = &cobra.Command{
	Use:   "cancel <order-id>...",
	Short: "Cancel orders",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runOrdersCancel,
}

var ordersLimitCmd = &cobra.Command{
	Use:   "limit <product-id> <BUY|SELL> <size> <price>",
	Short: "Place a good-till-cancelled limit order",
	Args:  cobra.ExactArgs(4),
	RunE:  runOrdersLimit,
}

func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.AddCommand(ordersListCmd, ordersCancelCmd, ordersLimitCmd)

	ordersListCmd.Flags().String("product", "", "filter by product")
	ordersListCmd.Flags().StringSlice("status", nil, "filter by status (OPEN, FILLED, ...)")
	ordersListCmd.Flags().Int("limit", 0, "page size")
	ordersLimitCmd.Flags().Bool("post-only", false, "reject the order if it would take liquidity")
}

func runOrdersList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newRESTClient(cfg, true)
	if err != nil {
		return err
	}
	product, _ := cmd.Flags().GetString("product")
	status, _ := cmd.Flags().GetStringSlice("status")
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, cancel := restContext(cmd.Context(), cfg)
	defer cancel()
	page, err := api.Orders.List(ctx, rest.ListOrdersParams{ProductID: product, OrderStatus: status, Limit: limit})
	if err != nil {
		return err
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "Order\tProduct\tSide\tType\tStatus\tFilled\tAvg price")
	for _, o := range page.Orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.OrderID, o.ProductID, o.Side, o.OrderType, o.Status, o.FilledSize, o.AverageFilledPrice)
	}
	return w.Flush()
}

func runOrdersCancel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newRESTClient(cfg, true)
	if err != nil {
		return err
	}

	ctx, cancel := restContext(cmd.Context(), cfg)
	defer cancel()
	results, err := api.Orders.Cancel(ctx, args...)
	if err != nil {
		return err
	}

	w := newTable(cmd.OutOrStdout())
	for _, r := range results {
		outcome := "cancelled"
		if !r.Success {
			outcome = r.FailureReason
		}
		fmt.Fprintf(w, "%s\t%s\n", r.OrderID, outcome)
	}
	return w.Flush()
}

func runOrdersLimit(cmd *cobra.Command, args []string) error {
	size, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("invalid size: %w", err)
	}
	price, err := decimal.NewFromString(args[3])
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	postOnly, _ := cmd.Flags().GetBool("post-only")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newRESTClient(cfg, true)
	if err != nil {
		return err
	}

	ctx, cancel := restContext(cmd.Context(), cfg)
	defer cancel()
	resp, err := api.Orders.Create(ctx, rest.CreateOrderRequest{
		ProductID: args[0],
		Side:      strings.ToUpper(args[1]),
		OrderConfiguration: rest.OrderConfiguration{
			LimitGTC: &rest.LimitGTC{BaseSize: size, LimitPrice: price, PostOnly: postOnly},
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "order %s placed\n", resp.OrderID)
	return nil
}
