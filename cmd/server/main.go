package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pipenet/internal/config"
	"pipenet/internal/handler"
	"pipenet/internal/hub"
	"pipenet/internal/metrics"
	"pipenet/internal/repository/sqlite"
	"pipenet/internal/service"
	"pipenet/internal/watcher"
)

func main() {
	// Command line flags override the config file
	configPath := flag.String("config", "", "Config file path (default: search standard locations)")
	addr := flag.String("addr", "", "HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path")
	var watchPaths []string
	flag.Func("watch", "Design file to solve on start and on every change (repeatable)", func(path string) error {
		watchPaths = append(watchPaths, path)
		return nil
	})
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting pipenet server...")

	cfg, loadedFrom, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if loadedFrom != "" {
		log.Printf("Config loaded: %s", loadedFrom)
	} else {
		log.Println("No config file found, using defaults")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	log.Printf("Config:\n%s", cfg.Summary())

	// Initialize SQLite repository
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()
	log.Printf("Database opened: %s", cfg.Database.Path)

	reg := metrics.DefaultRegistry()

	// Initialize event bus
	eventBus := service.NewEventBus()
	eventBus.OnPublish(func(e service.Event) { reg.RecordEvent(string(e.Type)) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize SSE hub and connect the event bus to it
	sseHub := hub.New(hub.WithClientObserver(reg.SetSSEClients))
	go sseHub.Run(ctx)

	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go sseHub.Forward(ctx, eventChan)

	designSvc := service.NewDesignService(repo, eventBus, cfg, reg)

	// Watched design files are solved on start and again on every change
	if len(watchPaths) > 0 {
		w := watcher.New(func(path string) {
			runDesignFile(ctx, designSvc, path)
		}, watchPaths...)
		for _, path := range watchPaths {
			go runDesignFile(ctx, designSvc, path)
		}
		go func() {
			if err := w.Watch(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Design watcher stopped: %v", err)
			}
		}()
	}

	// Setup routes
	mux := http.NewServeMux()
	handler.NewDesignHandler(designSvc, cfg.Server.MaxUploadBytes).Register(mux)
	mux.Handle("GET /events", sseHub)
	mux.Handle("GET /metrics", reg.Handler())

	// Apply middleware
	finalHandler := handler.Chain(mux,
		handler.Recover,
		handler.CORS,
		handler.Logger,
		handler.Metrics(reg),
	)

	// No WriteTimeout: solving a design and the SSE stream both outlive it
	server := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     finalHandler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Closing the hub ends the SSE streams so Shutdown can drain
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func runDesignFile(ctx context.Context, svc *service.DesignService, path string) {
	run, err := svc.RunFile(ctx, path, service.RunOptions{})
	if err != nil {
		log.Printf("Failed to run %s: %v", path, err)
		return
	}
	log.Printf("Solved %s as run %s", path, run.ID)
}
