// storecheck is an operational probe for the ephemeral store layer. It
// connects to the configured Redis cluster, round-trips an entry through
// each facade store, and then serves /healthz and /metrics until stopped.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ktb-chatapp/backend/internal/cluster"
	"github.com/ktb-chatapp/backend/internal/config"
	"github.com/ktb-chatapp/backend/internal/errorreporting"
	"github.com/ktb-chatapp/backend/internal/logger"
	"github.com/ktb-chatapp/backend/internal/ratelimit"
	"github.com/ktb-chatapp/backend/internal/session"
	"github.com/ktb-chatapp/backend/internal/tracing"
	"github.com/ktb-chatapp/backend/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, falling back to system env")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("storecheck")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		log.Warn("sentry init failed, continuing without error reporting", "error", err)
	}
	defer errorreporting.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Init("storecheck")
	if err != nil {
		log.Warn("tracing init failed, continuing without traces", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer shutdownTracing(context.Background())

	client, err := cluster.New(cfg)
	if err != nil {
		log.Error("cluster client setup failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The pool connects lazily; verify the cluster is actually reachable
	// before reporting healthy.
	err = utils.Retry(ctx, cfg.RetryAttempts, cfg.RetryInterval, func() error {
		pingCtx, pingCancel := context.WithTimeout(ctx, cfg.CommandTimeout)
		defer pingCancel()
		return client.Ping(pingCtx)
	})
	if err != nil {
		errorreporting.CaptureError(err)
		log.Error("cluster unreachable", "error", err)
		os.Exit(1)
	}
	log.Info("cluster reachable", "nodes", len(cfg.ClusterNodes))

	if err := probe(ctx, client, cfg); err != nil {
		errorreporting.CaptureError(err)
		log.Error("probe failed", "error", err)
		os.Exit(1)
	}
	log.Info("probe passed: session and rate-limit round trips OK")

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		hctx, hcancel := context.WithTimeout(req.Context(), cfg.CommandTimeout)
		defer hcancel()
		if err := client.Ping(hctx); err != nil {
			http.Error(w, "cluster unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	addr := ":" + os.Getenv("PORT")
	if addr == ":" {
		addr = ":8000"
	}
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Info("serving health and metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}
}

// probe exercises each facade store once with throwaway identities.
func probe(ctx context.Context, client *cluster.Client, cfg *config.Config) error {
	sessions := session.NewStore(client, cfg.SessionTTL)
	probeSession := session.New("storecheck-probe")

	if _, err := sessions.Save(ctx, probeSession); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	if _, found, err := sessions.FindByUser(ctx, probeSession.UserID); err != nil || !found {
		return fmt.Errorf("session lookup failed (found=%v): %w", found, err)
	}
	if _, err := sessions.Delete(ctx, probeSession.UserID, probeSession.SessionID); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}

	limits := ratelimit.NewStore(client)
	counter, err := limits.Increment(ctx, "storecheck-probe", time.Now().Add(time.Minute))
	if err != nil {
		return fmt.Errorf("rate-limit increment: %w", err)
	}
	if counter.Count < 1 {
		return fmt.Errorf("rate-limit counter did not advance: %d", counter.Count)
	}
	if err := limits.Delete(ctx, "storecheck-probe"); err != nil {
		return fmt.Errorf("rate-limit delete: %w", err)
	}

	return nil
}
