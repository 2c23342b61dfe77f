package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/redns-dev/redns/internal/ddns/common/log"
	"github.com/redns-dev/redns/internal/ddns/config"
	"github.com/redns-dev/redns/internal/ddns/repos/store"
)

const adminTimeout = 10 * time.Second

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rednsd",
	Short: "Redis-backed dynamic DNS server",
	Long: `rednsd answers DNS queries for a single authoritative zone from a
redis record store and exposes an authenticated HTTP endpoint for
dynamic address updates.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// loadConfig loads configuration and applies it to the global logger.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("logging configuration error: %w", err)
	}
	return cfg, nil
}

// openStore connects to redis and verifies reachability.
func openStore(ctx context.Context, cfg *config.AppConfig) (*store.Store, error) {
	st := store.New(store.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := st.Ping(pingCtx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("record store unreachable at %s: %w", cfg.RedisAddr, err)
	}
	return st, nil
}
