/*
main.go - Bulk employee import

PURPOSE:
  Loads a JSON array of employees (the same shape the API accepts) into the
  configured store. Each employee is imported on its own, so one invalid
  record does not stop the rest.

EXAMPLES:
  ./import -file=employees.json
  ./import -driver=postgres -file=employees.json

  Storage flags and environment variables are the server's, see
  config/config.go.

EXIT CODES:
  0  every employee imported
  1  import could not run
  2  invalid configuration
  3  some employees failed (listed on stdout)
*/
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/cert-tracker/config"
	"github.com/warp/cert-tracker/factory"
	"github.com/warp/cert-tracker/store"
)

func main() {
	var file string
	cfg, err := config.Load(os.Args[1:], func(flags *flag.FlagSet) {
		flags.StringVar(&file, "file", "", "JSON file with an array of employees")
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if file == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := run(ctx, cfg, file, logger)
	if err != nil {
		logger.Error("import failed", zap.Error(err))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("failed to write result", zap.Error(err))
	}
	if len(result.Failed) > 0 {
		os.Exit(3)
	}
}

func run(ctx context.Context, cfg config.Config, file string, logger *zap.Logger) (factory.ImportResult, error) {
	f, err := os.Open(file)
	if err != nil {
		return factory.ImportResult{}, err
	}
	defer f.Close()

	list, err := factory.ParseEmployees(f)
	if err != nil {
		return factory.ImportResult{}, err
	}

	st, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return factory.ImportResult{}, err
	}
	defer closeStore()

	result, err := factory.ImportEmployees(ctx, st, list, time.Now(), logger)
	if err != nil {
		return result, err
	}
	logger.Info("import finished",
		zap.Int("imported", result.Imported),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}
