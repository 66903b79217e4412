package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"crmlookup/internal/components/chrono"
	"crmlookup/internal/components/telemetry"
	"crmlookup/internal/featurecache"
	"crmlookup/internal/scrapers/crm"
	"crmlookup/internal/scrapers/website"
	"crmlookup/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
)

var errNotLoggedIn = errors.New("not logged in, run `crmlookup login` first")

var clock = chrono.NewStandardImpl()

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// newTelemetry returns the slog backed API, wrapped with prometheus metrics
// served on metrics_addr when configured. The returned function stops the
// metrics server.
func newTelemetry() (telemetry.API, func()) {
	if cfg.MetricsAddr == "" {
		return telemetry.SlogAPI{}, func() {}
	}
	tel := telemetry.NewPrometheusAPI(telemetry.SlogAPI{})
	return tel, tel.Serve(cfg.MetricsAddr)
}

func newCrmClient(tel telemetry.API) (*crm.Client, error) {
	opts := cfg.CrmOptions()
	opts.HttpDump = httpDump
	client, err := crm.NewClient(opts, tel, clock)
	if err != nil {
		return nil, fmt.Errorf("create crm client: %w", err)
	}
	return client, nil
}

// restoredCrmClient returns a client using the session saved by the login
// command.
func restoredCrmClient(ctx context.Context, tel telemetry.API) (*crm.Client, error) {
	client, err := newCrmClient(tel)
	if err != nil {
		return nil, err
	}
	if !client.RestoreSession(ctx) {
		return nil, errNotLoggedIn
	}
	return client, nil
}

func newProducts(client *crm.Client, tel telemetry.API) crm.Products {
	return crm.NewProducts(client, cfg.Crm.PriceQueryPath, cfg.Crm.InventoryQueryPath, tel, clock)
}

func newStore(tel telemetry.API) *featurecache.Store {
	return featurecache.New(cfg.CachePath(), tel, clock)
}

func newFeatures(store *featurecache.Store, tel telemetry.API) (*service.Features, *website.Coordinator, error) {
	opts := cfg.WebsiteOptions()
	opts.HttpDump = httpDump
	coordinator, err := website.NewCoordinator(opts, tel, clock)
	if err != nil {
		return nil, nil, fmt.Errorf("create website coordinator: %w", err)
	}
	return service.NewFeatures(store, coordinator, tel), coordinator, nil
}

func formatPrice(price *int) string {
	if price == nil {
		return "-"
	}
	return fmt.Sprint(*price)
}
