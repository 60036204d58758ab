package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"attendance-backend/config"
	"attendance-backend/internal/api"
	"attendance-backend/internal/attendance"
	"attendance-backend/internal/bus"
	"attendance-backend/internal/db"
	"attendance-backend/internal/notification"
	"attendance-backend/internal/reader"
	"attendance-backend/internal/scheduler"
	"attendance-backend/internal/store"
)

func main() {
	log.SetPrefix("attendanced ")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	log.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Auth.SigningKey == "" {
		log.Fatalf("auth.signing_key must be configured")
	}

	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	log.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	hub := bus.NewHub()

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
	workerPool.Start(ctx, hub)

	engine := attendance.NewEngine(appStore, hub)

	schedulerSvc := scheduler.NewService(&cfg.Scheduler, appStore, hub)
	go schedulerSvc.Run(ctx)

	if cfg.Reader.Enabled {
		dev, err := reader.OpenDevice(cfg.Reader.Device)
		if err != nil {
			log.Fatalf("failed to open reader device %s: %v", cfg.Reader.Device, err)
		}
		defer dev.Close()
		readerSvc := reader.NewService(&cfg.Reader, dev, engine)
		go readerSvc.Run(ctx)
	} else {
		log.Println("Reader is disabled; scans will only arrive via the API")
	}

	handler := api.NewHandler(cfg, appStore, engine, schedulerSvc, hub, webpushOptions)
	router := api.NewRouter(handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server Shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
