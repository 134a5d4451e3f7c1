package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"taskhive.io/internal/auth"
	"taskhive.io/internal/httpapi"
	"taskhive.io/internal/obs"
)

var version = "0.4.0"

const sweepInterval = time.Hour

func main() {
	_ = godotenv.Load()
	obs.Init()

	tokens, err := auth.NewTokenService(os.Getenv("TASKHIVE_AUTH_SECRET"))
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	dsn := os.Getenv("TASKHIVE_PG_DSN")
	if dsn == "" {
		log.Fatal("missing TASKHIVE_PG_DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	svc, err := auth.NewService(auth.NewPGStore(db), tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Auth:       svc,
		Tokens:     tokens,
		ReadyProbe: httpapi.ReadyProbe{DB: db},
		Version:    version,
	})

	addr := os.Getenv("TASKHIVE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting taskhive-auth %s on %s", version, addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := svc.SweepExpired(ctx)
				if err != nil {
					log.Printf("refresh token sweep: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("refresh token sweep: removed %d expired", n)
				}
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server: %v", err)
	}
	_ = db.Close()
	log.Println("Stopped")
}
