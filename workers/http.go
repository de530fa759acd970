package workers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monallobridge/config"
	"monallobridge/metrics"
	"monallobridge/store"
	"monallobridge/types"
	"monallobridge/workers/handlers"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Worker_HTTP serves the relayer's API and blocks until SIGINT/SIGTERM,
// then signals the other workers to exit.
func Worker_HTTP(relayer *Relayer, st store.Store) {
	log.Info("Starting HTTP service")

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Options("/*", CORSHeaders)

	h := handlers.New(st, relayer)

	r.Get("/state", h.State)

	r.Get("/bridge/status", h.BridgeStatus)
	r.Post("/bridge/trigger", h.TriggerRelay)
	r.Post("/bridge/relay-tx", h.RelayTransaction)

	r.Get("/stats/pending", h.GetPendingTransfers)
	r.Get("/stats/relayed", h.GetRelayedTransfers)

	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Config.Server.Port),
		Handler: r,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("error listening to: %s", err)
		}
	}()
	log.Info("HTTP service started")

	<-done
	log.Info("HTTP service stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP service shutdown error: %+v", err)
	}
	log.Info("HTTP service shutdown normal")

	// send signal to other threads/workers to exit
	WorkerShutdown = true
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Requested-With")
}

// Worker_metrics refreshes the pending-transfers gauge from the store.
func Worker_metrics(st store.Store) {
	for !WorkerShutdown {
		time.Sleep(30 * time.Second)

		pending, err := st.FindAllByStatus(types.STATUS_PENDING)
		if err != nil {
			log.Errorf("error counting pending transfers: %s", err.Error())
			continue
		}
		metrics.PendingTransfers.Set(float64(len(pending)))
	}
}
