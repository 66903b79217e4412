package commands

import (
	"fmt"
	"strings"

	"crmlookup/internal/scrapers/crm"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	searchLimit    *int
	searchFeatures *bool
)

func init() {
	searchLimit = searchCmd.Flags().Int("limit", crm.DefaultSearchLimit, "The maximum number of price list rows to request.")
	searchFeatures = searchCmd.Flags().Bool("features", false, "Also show the website features of the exactly matching model.")
	rootCmd.AddCommand(searchCmd)
}

func tier(record crm.ProductRecord) string {
	if record.EndQty <= 0 {
		return fmt.Sprintf("%d+", record.StartQty)
	}
	return fmt.Sprintf("%d-%d", record.StartQty, record.EndQty)
}

func renderProducts(records []crm.ProductRecord) {
	t := NewTable()
	t.AppendHeader(table.Row{"", "Model", "Name", "Price", "High discount", "Low discount", "Band", "Qty", "Lifecycle"})
	for _, record := range records {
		marker := ""
		if record.ExactMatch {
			marker = "*"
		}
		t.AppendRow(table.Row{
			marker,
			record.Model,
			record.Name,
			record.Price,
			formatPrice(record.HighDiscountPrice),
			formatPrice(record.LowDiscountPrice),
			record.DiscountBand,
			tier(record),
			record.LifeCycleMeaning,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d models", len(records))})
	t.Render()
}

var searchCmd = &cobra.Command{
	Use:   "search <model> [--limit <n>] [--features]",
	Short: "Searches the CRM price list for a model and shows discount prices.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tel, stop := newTelemetry()
		defer stop()

		client, err := restoredCrmClient(ctx, tel)
		if err != nil {
			return err
		}
		records, err := newProducts(client, tel).Search(ctx, args[0], *searchLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("no products match %q\n", args[0])
			return nil
		}
		renderProducts(records)

		if !*searchFeatures {
			return nil
		}
		model := strings.TrimSpace(args[0])
		for _, record := range records {
			if record.ExactMatch {
				model = record.Model
				break
			}
		}
		return showFeatures(cmd, tel, model)
	},
}
