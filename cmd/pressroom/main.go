package main

import (
	"log/slog"
	"os"

	"github.com/pressroom/pressroom/internal/app"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := rootCmd.Execute(); err != nil {
		slog.Default().Error("pressroom", slog.Any("error", err))
		os.Exit(1)
	}
}
