package main

import (
	"context"
	"log/slog"
	"time"

	"crmlookup/cmd/crmlookup/commands"
	"crmlookup/internal/components/serviceutil"
	"crmlookup/internal/components/telemetry"
)

func main() {
	ctx, stop := serviceutil.SignalContext()

	telemetry.InitSlog(false)
	otel, err := telemetry.SetupFromEnv(ctx, "crmlookup")
	if err != nil {
		slog.Warn("failed to setup telemetry", "err", err)
	}

	err = commands.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	otel.Shutdown(shutdownCtx)
	cancel()
	stop()

	if err != nil {
		serviceutil.Fatal("command failed", err)
	}
}
