// Command auctiond serves the escrow auction over vsock or TCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cloudx-io/escrowauction/host"
	"github.com/cloudx-io/escrowauction/store"
	"github.com/cloudx-io/escrowauction/validation"
)

func main() {
	cfg, err := host.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "auctiond: %v\n", err)
		os.Exit(2)
	}

	logger, err := host.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auctiond: failed to build logger: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("auctiond stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(cfg *host.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	addrs := validation.NewBech32Validator(cfg.AddrPrefix)
	contract, err := addrs.Validate(cfg.ContractAddr)
	if err != nil {
		return fmt.Errorf("AUCTIOND_CONTRACT_ADDR: %w", err)
	}

	keys, err := host.NewKeyManager()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := host.NewMetrics(registry)

	if cfg.MetricsAddr != "" {
		metricsServer := newMetricsServer(cfg.MetricsAddr, registry)
		go func() {
			logger.Info("Metrics endpoint listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics endpoint failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	runtime := host.NewRuntime(db, addrs, contract, keys, logger, host.WithMetrics(metrics))
	server := host.NewServer(cfg, runtime, keys, host.NitroAttester, metrics, logger)

	listener, err := server.Listen()
	if err != nil {
		return err
	}

	logger.Info("auctiond started",
		zap.String("contract", contract.String()),
		zap.String("key_id", keys.ID),
		zap.Bool("persistent", cfg.DataDir != ""))

	return server.Serve(ctx, listener)
}

func openStore(dataDir string) (*store.DB, error) {
	if dataDir == "" {
		return store.OpenMemory()
	}
	return store.Open(dataDir)
}

func newMetricsServer(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
