package commands

import (
	"fmt"

	"crmlookup/internal/components/telemetry"
	"crmlookup/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(featuresCmd)
}

func showFeatures(cmd *cobra.Command, tel telemetry.API, model string) error {
	features, _, err := newFeatures(newStore(tel), tel)
	if err != nil {
		return err
	}

	res := features.Lookup(cmd.Context(), model)
	if !res.Found() {
		fmt.Printf("no features found for %q (%s)\n", model, res.Fetch)
		return nil
	}

	source := res.Source.String()
	if res.Source == service.SourceCache {
		source = fmt.Sprintf("%s (%s)", source, res.Match)
	}

	t := NewTable()
	t.AppendRow(table.Row{"Model", res.Features.ProductModel})
	t.AppendRow(table.Row{"Name", res.Features.ProductName})
	t.AppendRow(table.Row{"URL", res.Features.URL})
	t.AppendRow(table.Row{"Crawled", res.Features.CrawlTime})
	t.AppendRow(table.Row{"Source", source})
	t.Render()
	fmt.Println(res.Features.Text())
	return nil
}

var featuresCmd = &cobra.Command{
	Use:   "features <model>",
	Short: "Shows the website features of a model, crawling it when it is not cached.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tel, stop := newTelemetry()
		defer stop()
		return showFeatures(cmd, tel, args[0])
	},
}
