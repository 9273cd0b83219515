// netwarden is a home network guardian agent for small routers and
// single-board computers. It discovers LAN devices with arp-scan,
// tracks their presence, enforces MAC-level blocking through iptables
// and hostapd, and pushes live state to dashboard subscribers over
// WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/zap"

	"netwarden/access"
	"netwarden/authorize"
	"netwarden/config"
	"netwarden/events"
	"netwarden/logger"
	"netwarden/monitor"
	"netwarden/presence"
	"netwarden/scanner"
	"netwarden/storage"
)

// Version information (set at build time via -ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	serviceCmd := flag.String("service", "", "service command: install, uninstall, start, stop, status, run")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("netwarden %s (%s)\n", Version, GitCommit)
		return
	}

	config.Load()
	logger.Init(config.AppConfig.Env, config.AppConfig.LogLevel)
	defer logger.Get().Sync()

	if *serviceCmd != "" && *serviceCmd != "run" {
		handleServiceCommand(*serviceCmd)
		return
	}

	if !service.Interactive() || *serviceCmd == "run" {
		runAsService()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	runInteractive(ctx)
}

// runInteractive wires the components and serves until ctx is
// cancelled.
func runInteractive(ctx context.Context) {
	log := logger.Get()
	cfg := config.AppConfig

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal("failed to open device store", zap.Error(err))
	}
	defer store.Close()

	cache := presence.NewCache(ctx, store)
	hub := events.NewHub()
	defer hub.Stop()

	runner := &scanner.ExecRunner{Timeout: cfg.ScanTimeout()}
	sc := scanner.New(runner, cfg.ScanCommand, cfg.ScanSubnet)
	ctrl := access.NewController(runner, cache, hub, cfg.WirelessInterface)

	// The monitor must exist before the workflow and guest manager: both
	// refresh through it, and the guest manager can fire expiry
	// goroutines from its constructor.
	mon := monitor.New(sc, cache, hub, nil, monitor.Options{
		Interval:      cfg.ScanInterval(),
		MDNSEnabled:   cfg.MDNSEnabled,
		SNMPEnabled:   cfg.SNMPEnabled,
		SNMPCommunity: cfg.SNMPCommunity,
	})

	workflow := authorize.NewWorkflow(ctrl, hub, mon.Refresh)
	defer workflow.Close()

	guests := authorize.NewGuestManager(ctx, store, ctrl, mon.Refresh)
	defer guests.Close()

	mon.SetAuthorizer(workflow)
	go mon.Run(ctx)

	api := &apiServer{
		cache:    cache,
		access:   ctrl,
		workflow: workflow,
		guests:   guests,
		mon:      mon,
		hub:      hub,
		started:  time.Now(),
	}

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: api.newRouter(),
	}

	go func() {
		log.Info("netwarden listening",
			zap.String("addr", srv.Addr),
			zap.String("subnet", cfg.ScanSubnet),
			zap.Duration("scan_interval", cfg.ScanInterval()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}
}

// deviceStore is satisfied by both storage backends.
type deviceStore interface {
	presence.Store
	authorize.GuestStore
	Close() error
}

func openStore(cfg config.Config) (deviceStore, error) {
	switch cfg.StorageBackend {
	case "sqlite":
		return storage.NewSQLiteStore(cfg.DataDir + "/netwarden.db")
	default:
		return storage.NewJSONStore(cfg.DataDir)
	}
}
