package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	persistlog "wildmere.gg/internal/persistence/log"
	"wildmere.gg/internal/persistence/store"
	"wildmere.gg/internal/sim/catalogs"
	"wildmere.gg/internal/sim/tuning"
	"wildmere.gg/internal/sim/world"
	"wildmere.gg/internal/transport/ws"
)

func main() {
	addr := flag.String("addr", ":8080", "http listen address")
	dataDir := flag.String("data", "./data", "catalog directory (items.json, resources.json, ...)")
	worldDir := flag.String("world-dir", "./worlds/default", "per-world state directory (db, logs)")
	tuningPath := flag.String("tuning", "", "tuning yaml path (default <data>/tuning.yaml)")
	seed := flag.Int64("seed", 1, "terrain seed")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*dataDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	if *tuningPath == "" {
		*tuningPath = filepath.Join(*dataDir, "tuning.yaml")
	}
	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("no tuning file at %s, using defaults", *tuningPath)
	}

	if err := os.MkdirAll(*worldDir, 0o755); err != nil {
		logger.Fatalf("world dir: %v", err)
	}

	st, err := store.Open(filepath.Join(*worldDir, "world.db"))
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer st.Close()

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	boot, err := st.LoadAll(bootCtx)
	bootCancel()
	if err != nil {
		logger.Fatalf("load state: %v", err)
	}
	logger.Printf("restored communities=%d structures=%d storages=%d",
		len(boot.Communities), len(boot.Structures), len(boot.Storages))

	w := world.New(world.Config{Seed: *seed, Tun: tune}, cats, boot)
	w.SetSaver(st)

	tickLog := persistlog.NewTickLogger(*worldDir)
	auditLog := persistlog.NewAuditLogger(*worldDir)
	defer tickLog.Close()
	defer auditLog.Close()
	w.SetTickLogger(tickLog)
	w.SetAuditLogger(auditLog)

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()
		tick := m.Tick
		if tick == 0 {
			tick = w.CurrentTick()
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP wildmere_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE wildmere_world_tick gauge\n")
		fmt.Fprintf(rw, "wildmere_world_tick %d\n", tick)

		fmt.Fprintf(rw, "# HELP wildmere_world_players Current number of players in the world.\n")
		fmt.Fprintf(rw, "# TYPE wildmere_world_players gauge\n")
		fmt.Fprintf(rw, "wildmere_world_players %d\n", m.Players)

		fmt.Fprintf(rw, "# HELP wildmere_world_clients Current number of connected clients.\n")
		fmt.Fprintf(rw, "# TYPE wildmere_world_clients gauge\n")
		fmt.Fprintf(rw, "wildmere_world_clients %d\n", m.Clients)

		fmt.Fprintf(rw, "# HELP wildmere_world_monsters Live monster count.\n")
		fmt.Fprintf(rw, "# TYPE wildmere_world_monsters gauge\n")
		fmt.Fprintf(rw, "wildmere_world_monsters %d\n", m.Monsters)

		fmt.Fprintf(rw, "# HELP wildmere_world_loaded_chunks Loaded chunk count.\n")
		fmt.Fprintf(rw, "# TYPE wildmere_world_loaded_chunks gauge\n")
		fmt.Fprintf(rw, "wildmere_world_loaded_chunks %d\n", m.LoadedChunks)

		fmt.Fprintf(rw, "# HELP wildmere_world_approvals Pending approval count.\n")
		fmt.Fprintf(rw, "# TYPE wildmere_world_approvals gauge\n")
		fmt.Fprintf(rw, "wildmere_world_approvals %d\n", m.Approvals)

		fmt.Fprintf(rw, "# HELP wildmere_world_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE wildmere_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "wildmere_world_queue_depth{queue=%q} %d\n", "inbox", m.InboxDepth)
		fmt.Fprintf(rw, "wildmere_world_queue_depth{queue=%q} %d\n", "join", m.JoinDepth)
		fmt.Fprintf(rw, "wildmere_world_queue_depth{queue=%q} %d\n", "leave", m.LeaveDepth)

		fmt.Fprintf(rw, "# HELP wildmere_world_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE wildmere_world_step_ms gauge\n")
		fmt.Fprintf(rw, "wildmere_world_step_ms %.3f\n", m.StepMS)
	})
	mux.HandleFunc("/api/session", ws.SessionHandler())
	mux.HandleFunc("/v1/ws", ws.NewServer(w, st, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s seed=%d", *addr, *seed)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
