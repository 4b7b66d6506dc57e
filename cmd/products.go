package cmd

import (
	"fmt"
	"time"

	"github.com/alejoacosta74/coinbase-api/internal/rest"
	"github.com/spf13/cobra"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Query tradable products",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	Args:  cobra.NoArgs,
	RunE:  runProductsList,
}

var productsGetCmd = &cobra.Command{
	Use:   "get <product-id>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsGet,
}

var productsCandlesCmd = &cobra.Command{
	Use:   "candles <product-id>",
	Short: "Show historical candles",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsCandles,
}

var productsBookCmd = &cobra.Command{
	Use:   "book <product-id>...",
	Short: "Show best bid and ask",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProductsBook,
}

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.AddCommand(productsListCmd, productsGetCmd, productsCandlesCmd, productsBookCmd)

	productsListCmd.Flags().String("type", "", "product type (SPOT or FUTURE)")
	productsListCmd.Flags().Int("limit", 0, "maximum number of products")
	productsCandlesCmd.Flags().String("granularity", rest.GranularityOneHour, "candle granularity")
	productsCandlesCmd.Flags().Duration("since", 24*time.Hour, "how far back to start")
}

func runProductsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newRESTClient(cfg, true)
	if err != nil {
		return err
	}
	productType, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, cancel := restContext(cmd.Context(), cfg)
	defer cancel()
	products, err := api.Products.List(ctx, rest.ListProductsParams{ProductType: productType, Limit: limit})
	if err != nil {
		return err
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "Product\tPrice\t24h %\tStatus")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ProductID, p.Price, p.PricePercentageChange24h.StringFixed(2), p.Status)
	}
	return w.Flush()
}

func runProductsGet(cmd *cobra.Command, args []string) error {
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
	p, err := api.Products.Get(ctx, args[0])
	if err != nil {
		return err
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintf(w, "Product\t%s\n", p.ProductID)
	fmt.Fprintf(w, "Price\t%s\n", p.Price)
	fmt.Fprintf(w, "Volume 24h\t%s\n", p.Volume24h)
	fmt.Fprintf(w, "Base increment\t%s\n", p.BaseIncrement)
	fmt.Fprintf(w, "Quote increment\t%s\n", p.QuoteIncrement)
	fmt.Fprintf(w, "Status\t%s\n", p.Status)
	fmt.Fprintf(w, "Trading disabled\t%t\n", p.TradingDisabled)
	return w.Flush()
}

func runProductsCandles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newRESTClient(cfg, true)
	if err != nil {
		return err
	}
	granularity, _ := cmd.Flags().GetString("granularity")
	since, _ := cmd.Flags().GetDuration("since")

	ctx, cancel := restContext(cmd.Context(), cfg)
	defer cancel()
	end := time.Now()
	candles, err := api.Products.Candles(ctx, args[0], end.Add(-since), end, granularity)
	if err != nil {
		return err
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "Start\tOpen\tHigh\tLow\tClose\tVolume")
	for _, c := range candles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Start, c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	return w.Flush()
}

func runProductsBook(cmd *cobra.Command, args []string) error {
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
	books, err := api.Products.BestBidAsk(ctx, args...)
	if err != nil {
		return err
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "Product\tBid\tBid size\tAsk\tAsk size")
	for _, b := range books {
		var bid, ask rest.PriceLevel
		if len(b.Bids) > 0 {
			bid = b.Bids[0]
		}
		if len(b.Asks) > 0 {
			ask = b.Asks[0]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.ProductID, bid.Price, bid.Size, ask.Price, ask.Size)
	}
	return w.Flush()
}
