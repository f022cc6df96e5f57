package main

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gasroute/internal/api"
	"gasroute/internal/metrics"
)

func main() {
	srv, err := api.NewServer()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Fleet and demand
	mux.HandleFunc("/v1/orders", srv.OrdersHandler)
	mux.HandleFunc("/v1/vehicles", srv.VehiclesHandler)
	mux.HandleFunc("/v1/drivers", srv.DriversHandler)

	// Scheduling pipeline
	mux.HandleFunc("/v1/schedules/generate", srv.GenerateHandler)
	mux.HandleFunc("/v1/schedules/apply", srv.ApplyHandler)
	mux.HandleFunc("/v1/schedules/events/stream", srv.EventsWSHandler)
	mux.HandleFunc("/v1/schedules/", srv.ScheduleByDateHandler) // includes /conflicts, /metrics

	// Health
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)

	// Prometheus
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := ":" + srv.Cfg.Port

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.Log.Info().Str("addr", addr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		srv.Log.Fatal().Err(err).Msg("server error")
	}
}
