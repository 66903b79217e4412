package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inventoryCmd)
}

var inventoryCmd = &cobra.Command{
	Use:   "inventory <model>",
	Short: "Shows the warehouse stock of a model.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tel, stop := newTelemetry()
		defer stop()

		client, err := restoredCrmClient(ctx, tel)
		if err != nil {
			return err
		}
		records, err := newProducts(client, tel).Inventory(ctx, args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("no inventory for %q\n", args[0])
			return nil
		}

		t := NewTable()
		t.AppendHeader(table.Row{"Warehouse", "Model", "Lifecycle", "On hand", "In transit", "Out today", "Box"})
		var onHand, inTransit, todayOut int
		for _, record := range records {
			t.AppendRow(table.Row{
				record.SubInventory,
				record.Model,
				record.LifeCycleMeaning,
				record.Quantity,
				record.InTransit,
				record.TodayOut,
				record.BoxNumber,
			})
			onHand += record.Quantity
			inTransit += record.InTransit
			todayOut += record.TodayOut
		}
		t.AppendFooter(table.Row{"Total", "", "", onHand, inTransit, todayOut, ""})
		t.Render()
		return nil
	},
}
