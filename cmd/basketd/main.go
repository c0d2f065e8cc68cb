package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mwilkes/basket/internal/auth"
	"github.com/mwilkes/basket/internal/database"
	"github.com/mwilkes/basket/internal/email"
	"github.com/mwilkes/basket/internal/logging"
	"github.com/mwilkes/basket/internal/server"
)

func main() {
	// Optional; env vars win over the file.
	godotenv.Load()

	logger := logging.Setup(os.Getenv("BASKET_LOG_LEVEL"))

	port := os.Getenv("BASKET_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("BASKET_DB_PATH")
	if dbPath == "" {
		dbPath = "basket.db"
	}

	baseURL := os.Getenv("BASKET_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	secret := os.Getenv("BASKET_TOKEN_SECRET")
	tokens, err := auth.NewTokenService(secret)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("BASKET_POSTMARK_TOKEN"),
		os.Getenv("BASKET_FROM_EMAIL"),
		"https://api.postmarkapp.com",
	)

	srv := server.New(db, tokens, emailClient, baseURL, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Rate limiter windows pile up per IP; sweep them out periodically.
	stopCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-stopCleanup:
				return
			}
		}
	}()

	go func() {
		fmt.Printf("Basket running at %s\n", baseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	close(stopCleanup)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
