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

	"f1countdown/broadcaster"
	"f1countdown/config"
	"f1countdown/season"
)

func main() {
	cfg, err := config.Default().FromEnv(os.Getenv)
	if err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}
	list := flag.Bool("list", false, "print the upcoming calendar and exit")
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	loc := cfg.Location()
	client := season.NewClient(cfg.Endpoints, season.WithTimeout(cfg.FetchTimeout))

	if *list {
		weekends, err := client.FetchSeason(context.Background())
		if err != nil {
			log.Fatalf("Failed to load the F1 calendar: %v", err)
		}
		printCalendar(os.Stdout, weekends, time.Now(), loc)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := season.NewLoader(client, cfg.ReloadInterval)
	loader.Start()
	defer loader.Stop()

	hl := newHeadline(loader, broadcaster.NewBroadcaster(), loc)
	go hl.run(ctx)

	srv := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     newServer(loader, hl, loc).routes(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Starting F1 countdown server on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
	log.Println("F1 countdown server shutting down")
}
