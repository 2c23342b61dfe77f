package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/redns-dev/redns/internal/ddns/common/clock"
	"github.com/redns-dev/redns/internal/ddns/common/log"
	"github.com/redns-dev/redns/internal/ddns/config"
	"github.com/redns-dev/redns/internal/ddns/gateways/transport"
	"github.com/redns-dev/redns/internal/ddns/gateways/web"
	"github.com/redns-dev/redns/internal/ddns/gateways/wire"
	"github.com/redns-dev/redns/internal/ddns/repos/store"
	"github.com/redns-dev/redns/internal/ddns/services/auth"
	"github.com/redns-dev/redns/internal/ddns/services/resolver"
)

const shutdownTimeout = 10 * time.Second

var (
	runDNSAddr string
	runWebAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the DNS responder and the HTTP update service",
	RunE:  runServer,
}

func init() {
	runCmd.Flags().StringVar(&runDNSAddr, "dns-addr", "", "UDP listen address for DNS queries (overrides config)")
	runCmd.Flags().StringVar(&runWebAddr, "web-addr", "", "listen address for the HTTP update service (overrides config)")
	rootCmd.AddCommand(runCmd)
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dns-addr") {
		cfg.DNSAddr = runDNSAddr
	}
	if cmd.Flags().Changed("web-addr") {
		cfg.WebAddr = runWebAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	zone, err := resolveZone(ctx, cfg, st)
	if err != nil {
		return err
	}

	log.Info(map[string]any{
		"zone":     zone,
		"env":      cfg.Env,
		"dns_addr": cfg.DNSAddr,
		"web_addr": cfg.WebAddr,
		"redis":    cfg.RedisAddr,
	}, "Starting redns")

	logger := log.GetLogger()

	resolverService := resolver.New(resolver.Options{
		Store:        st,
		Zone:         zone,
		TTL:          cfg.TTL,
		MXPreference: cfg.MXPreference,
		Logger:       logger,
	})

	udpTransport := transport.New(transport.Options{
		Addr:         cfg.DNSAddr,
		Codec:        wire.NewCodec(),
		Logger:       logger,
		QueryTimeout: cfg.QueryTimeout(),
	})

	webServer := web.New(web.Options{
		Addr:   cfg.WebAddr,
		Auth:   auth.New(st, logger),
		Store:  st,
		Clock:  clock.RealClock{},
		Logger: logger,
	})

	if err := udpTransport.Start(ctx, resolverService); err != nil {
		return fmt.Errorf("failed to start DNS transport: %w", err)
	}
	webServer.Start()

	<-ctx.Done()
	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := udpTransport.Stop(); err != nil {
		log.Warn(map[string]any{"error": err.Error()}, "Error during transport shutdown")
	}
	if err := webServer.Stop(shutdownCtx); err != nil {
		log.Warn(map[string]any{"error": err.Error()}, "Error during web shutdown")
	}

	log.Info(nil, "redns stopped")
	return nil
}

// resolveZone picks the served zone: configuration wins, then the zone
// persisted in the store. Startup fails when neither is set.
func resolveZone(ctx context.Context, cfg *config.AppConfig, st *store.Store) (string, error) {
	if cfg.Zone != "" {
		return cfg.Zone, nil
	}
	zone, found, err := st.Zone(ctx)
	if err != nil {
		return "", err
	}
	if !found || zone == "" {
		return "", fmt.Errorf("no zone configured: set REDNS_ZONE or run 'rednsd zone set <zone> <ns>...'")
	}
	return zone, nil
}
