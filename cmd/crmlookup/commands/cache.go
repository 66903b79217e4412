package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"crmlookup/internal/components/telemetry"
	"crmlookup/internal/scrapers/website"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var cacheWorkers *int

func init() {
	cacheWorkers = cacheUpdateCmd.Flags().Int("workers", 0, "The number of concurrent crawl workers, 0 uses crawler.concurrent_workers.")
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheUpdateCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manages the local product feature cache.",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Shows the state of the feature cache file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tel, stop := newTelemetry()
		defer stop()

		store := newStore(tel)
		info := store.Info()

		t := NewTable()
		t.AppendRow(table.Row{"Path", store.Path()})
		t.AppendRow(table.Row{"Exists", info.Exists})
		if info.Exists {
			t.AppendRow(table.Row{"Products", info.Total})
			t.AppendRow(table.Row{"Last update", info.LastUpdate})
		}
		t.Render()
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Deletes the feature cache file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tel, stop := newTelemetry()
		defer stop()
		return newStore(tel).Clear(cmd.Context())
	},
}

func newProgressWriter(total int) (progress.Writer, *progress.Tracker) {
	pw := progress.NewWriter()
	pw.SetOutputWriter(os.Stderr)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(200 * time.Millisecond)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Value = true

	tracker := &progress.Tracker{
		Message: "crawling product pages",
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}
	pw.AppendTracker(tracker)
	return pw, tracker
}

var cacheUpdateCmd = &cobra.Command{
	Use:   "update [--workers <n>]",
	Short: "Crawls every product page of the website into the feature cache.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		tel, stop := newTelemetry()
		defer stop()
		telemetry.InstrumentPerfStats(ctx, 5*time.Second, tel)

		features, coordinator, err := newFeatures(newStore(tel), tel)
		if err != nil {
			return err
		}

		pw, tracker := newProgressWriter(coordinator.MaxProductID())
		go pw.Render()

		found := 0
		start := time.Now()
		count, err := features.UpdateCache(ctx, *cacheWorkers, func(p website.Progress) {
			if p.Features != nil {
				found++
			}
			tracker.SetValue(int64(p.Completed))
			tracker.UpdateMessage(fmt.Sprintf("crawling product pages (%d found)", found))
		})
		if err != nil {
			tracker.MarkAsErrored()
		} else {
			tracker.MarkAsDone()
		}
		pw.Stop()

		if err != nil {
			return fmt.Errorf("save cache: %w", err)
		}
		if ctx.Err() != nil {
			slog.Warn("crawl interrupted, saved the products found so far", "products", count)
		}
		slog.Info("cache updated", "products", count, "seconds", time.Since(start).Seconds())
		return nil
	},
}
