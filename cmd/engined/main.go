// Command engined is a thin wiring entry point for the split/combine
// execution engine: it builds a Config, a telemetry Provider, and a
// pkg/engine.Engine over it, then serves Prometheus metrics.
//
// Usage:
//
//	engined [flags]
//
// Flags:
//
//	-addr string
//	    Metrics server address (default ":8080")
//	-max-element-time duration
//	    Stored as the per-element time limit in the engine config; the
//	    executor does not enforce it (default 30s)
//	-max-concurrent-elements int
//	    Upper bound on concurrently executing elements across the graph (default 8)
//	-cache-root string
//	    Cache root directory (default ".dagflow-cache")
//
// engined does not itself accept workflow definitions over the network —
// embedding programs construct a pkg/workflow.Workflow in-process and call
// (*pkg/engine.Engine).Run. This process exists to host the collaborators
// that run needs (cache, telemetry, logger) and to expose their metrics.
//
//	GET /metrics - Prometheus metrics
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yesoreyeram/dagflow/pkg/config"
	"github.com/yesoreyeram/dagflow/pkg/engine"
	"github.com/yesoreyeram/dagflow/pkg/logging"
	"github.com/yesoreyeram/dagflow/pkg/telemetry"
)

func main() {
	addr := flag.String("addr", ":8080", "Metrics server address")
	maxElementTime := flag.Duration("max-element-time", 30*time.Second, "Per-element time limit stored in the engine config (not enforced by the executor)")
	maxConcurrentElements := flag.Int("max-concurrent-elements", 8, "Upper bound on concurrently executing elements")
	cacheRoot := flag.String("cache-root", ".dagflow-cache", "Cache root directory")
	shutdownTimeout := flag.Duration("shutdown-timeout", 10*time.Second, "Grace period for in-flight metric scrapes on shutdown")

	flag.Parse()

	cfg := config.Default()
	cfg.MaxElementExecutionTime = *maxElementTime
	cfg.MaxConcurrentElements = *maxConcurrentElements
	cfg.CacheRoots = []string{*cacheRoot}

	logger := logging.New(logging.DefaultConfig())

	provider, err := telemetry.NewProvider(context.Background(), telemetry.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create telemetry provider: %v\n", err)
		os.Exit(1)
	}

	eng, err := engine.New(cfg, provider, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create engine: %v\n", err)
		os.Exit(1)
	}
	_ = eng // held open for embedders that import this process as a library entry point

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    *addr,
		Handler: mux,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		fmt.Printf("Starting engine metrics server on %s\n", *addr)
		fmt.Printf("Metrics: http://localhost%s/metrics\n", *addr)
		fmt.Println("\nPress Ctrl+C to shutdown")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)
		fmt.Println("Shutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
			os.Exit(1)
		}
		if err := provider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Telemetry shutdown error: %v\n", err)
		}

		fmt.Println("Server stopped")
	}
}
