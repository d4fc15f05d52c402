package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appLogger "github.com/FACorreiaa/go-coffee-finder/app/logger"
	"github.com/FACorreiaa/go-coffee-finder/config"
	"github.com/FACorreiaa/go-coffee-finder/internal/container"
)

var rootCmd = &cobra.Command{
	Use:           "shopctl",
	Short:         "Operator CLI for coffee shop discovery and migrations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, appLogger.New(cfg.Mode), nil
}

// withContainer builds the application container for the duration of fn.
func withContainer(ctx context.Context, fn func(c *container.Container) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := container.NewContainer(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if !c.WaitForDB(ctx) {
		return fmt.Errorf("database not ready")
	}
	return fn(c)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
