// Command check-setup verifies a deployment's configuration and database
// connectivity before first run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sungwon/heartpost/internal/config"
	"github.com/sungwon/heartpost/internal/provider"
	"github.com/sungwon/heartpost/internal/storage"
)

func main() {
	configPath := flag.String("config", "config", "path to the config directory")
	flag.Parse()

	fmt.Println("Checking heartpost setup...")
	fmt.Println()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Configuration: FAIL (%v)\n", err)
		os.Exit(1)
	}
	fmt.Println("Configuration: OK")

	fmt.Printf("  dispatch.cron_secret: %s\n", presence(cfg.Dispatch.CronSecret != ""))
	fmt.Printf("  database.url:         %s\n", presence(cfg.Database.URL != ""))
	fmt.Printf("  provider.type:        %s\n", cfg.Provider.Type)
	if cfg.Provider.Type == "resend" {
		fmt.Printf("  provider.api_key:     %s\n", presence(cfg.Provider.APIKey != ""))
	}
	if cfg.Compose.APIKey == "" || cfg.Compose.Model == "" {
		fmt.Println("  compose:              not configured (AI drafting disabled)")
	} else {
		fmt.Printf("  compose.model:        %s\n", cfg.Compose.Model)
	}
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := storage.NewDB(ctx, cfg.Database.URL, cfg.Database.PoolMin, cfg.Database.PoolMax, cfg.Database.ConnectTimeout)
	if err != nil {
		fmt.Printf("Database: FAIL (%v)\n", err)
		fmt.Println()
		fmt.Println("Make sure database.url is correct and migrations have been applied:")
		fmt.Println("  psql \"$HEARTPOST_DATABASE_URL\" -f migrations/0001_init.up.sql")
		os.Exit(1)
	}
	defer db.Close()
	fmt.Println("Database: OK (connected)")

	queries := storage.New(db.Pool)
	for _, status := range []storage.MessageStatus{
		storage.MessageStatusPending,
		storage.MessageStatusSent,
		storage.MessageStatusFailed,
	} {
		n, err := queries.CountMessagesByStatus(ctx, status)
		if err != nil {
			fmt.Printf("  messages table: FAIL (%v) - did migrations run?\n", err)
			os.Exit(1)
		}
		fmt.Printf("  messages %-8s %d\n", string(status)+":", n)
	}
	fmt.Println()

	p, err := provider.NewFromConfig(cfg.Provider)
	if err != nil {
		fmt.Printf("Provider: FAIL (%v)\n", err)
		os.Exit(1)
	}
	if err := p.HealthCheck(ctx); err != nil {
		fmt.Printf("Provider %s: FAIL (%v)\n", p.GetName(), err)
		os.Exit(1)
	}
	fmt.Printf("Provider %s: OK\n", p.GetName())

	fmt.Println()
	fmt.Println("Setup looks good.")
}

func presence(set bool) string {
	if set {
		return "set"
	}
	return "MISSING"
}
