package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tiertrack/internal/api"
	"tiertrack/internal/config"
	"tiertrack/internal/db"
	"tiertrack/pkg/clock"
	"tiertrack/pkg/journal"
	"tiertrack/pkg/sweep"
	"tiertrack/pkg/task"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.tiertrack/config.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	backend, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer backend.Close()

	bus := journal.NewBus(backend.Journal)
	svc := task.NewService(backend.Tasks, bus, clock.Real(), task.WithVacationGrace(cfg.Tracker.VacationGrace))

	if cfg.SweepEnabled() {
		runner := sweep.New(svc, cfg.Tracker.SweepSchedule)
		go func() {
			if err := runner.Run(ctx); err != nil {
				log.Printf("sweep: %v", err)
			}
		}()
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.New(svc, bus, cfg.Server.WasmDir),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("tiertrack listening on %s (%s store)", cfg.Server.Addr, cfg.Store.Driver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("listen: %v", err)
	}
}
