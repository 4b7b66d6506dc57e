package cmd

import (
	"fmt"

	"github.com/alejoacosta74/coinbase-api/internal/rest"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Query brokerage accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccountsList,
}

var accountsGetCmd = &cobra.Command{
	Use:   "get <account-uuid>",
	Short: "Show one account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsGet,
}

var feesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Show the transaction summary and fee tier",
	Args:  cobra.NoArgs,
	RunE:  runFees,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd, accountsGetCmd, feesCmd)

	accountsListCmd.Flags().Int("limit", 0, "page size")
	accountsListCmd.Flags().String("cursor", "", "pagination cursor")
	feesCmd.Flags().String("product-type", "", "SPOT or FUTURE")
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newRESTClient(cfg, true)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	cursor, _ := cmd.Flags().GetString("cursor")

	ctx, cancel := restContext(cmd.Context(), cfg)
	defer cancel()
	page, err := api.Accounts.List(ctx, rest.ListAccountsParams{Limit: limit, Cursor: cursor})
	if err != nil {
		return err
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "UUID\tCurrency\tAvailable\tHold\tName")
	for _, a := range page.Accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.UUID, a.Currency, a.AvailableBalance.Value, a.Hold.Value, a.Name)
	}
	if page.HasNext {
		fmt.Fprintf(w, "next cursor: %s\n", page.Cursor)
	}
	return w.Flush()
}

func runAccountsGet(cmd *cobra.Command, args []string) error {
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
	a, err := api.Accounts.Get(ctx, args[0])
	if err != nil {
		return err
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintf(w, "UUID\t%s\n", a.UUID)
	fmt.Fprintf(w, "Name\t%s\n", a.Name)
	fmt.Fprintf(w, "Currency\t%s\n", a.Currency)
	fmt.Fprintf(w, "Available\t%s %s\n", a.AvailableBalance.Value, a.AvailableBalance.Currency)
	fmt.Fprintf(w, "Hold\t%s %s\n", a.Hold.Value, a.Hold.Currency)
	fmt.Fprintf(w, "Created\t%s\n", a.CreatedAt)
	return w.Flush()
}

func runFees(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newRESTClient(cfg, true)
	if err != nil {
		return err
	}
	productType, _ := cmd.Flags().GetString("product-type")

	ctx, cancel := restContext(cmd.Context(), cfg)
	defer cancel()
	s, err := api.Fees.TransactionSummary(ctx, productType)
	if err != nil {
		return err
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintf(w, "Total volume\t%s\n", s.TotalVolume)
	fmt.Fprintf(w, "Total fees\t%s\n", s.TotalFees)
	fmt.Fprintf(w, "Tier\t%s\n", s.FeeTier.PricingTier)
	fmt.Fprintf(w, "Maker rate\t%s\n", s.FeeTier.MakerFeeRate)
	fmt.Fprintf(w, "Taker rate\t%s\n", s.FeeTier.TakerFeeRate)
	return w.Flush()
}
