// Command apostille notarizes data on a ledger and verifies apostille tags.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"Apostille/internal/logger"
)

func main() {
	logger.Init(slog.LevelInfo)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
