package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gatherly/apiserver/config"
	"github.com/gatherly/apiserver/internal/auth"
	"github.com/gatherly/apiserver/internal/event"
	"github.com/gatherly/apiserver/internal/httpapi"
	"github.com/gatherly/apiserver/internal/obs"
	"github.com/gatherly/apiserver/internal/push"
	"github.com/gatherly/apiserver/internal/user"
)

func main() {
	obs.Init()
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// stores: PostgreSQL when a DSN is configured, in-memory otherwise
	var (
		db         *sql.DB
		userStore  user.Store
		tokenStore auth.TokenStore
		eventStore event.Store
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(cfg.DBMaxConns)
		db.SetMaxIdleConns(cfg.DBMaxConns)
		db.SetConnMaxLifetime(30 * time.Minute)
		userStore = user.NewPGStore(db)
		tokenStore = auth.NewPGTokens(db)
		eventStore = event.NewPGStore(db)
	} else {
		log.Print("PG_DSN not set, using in-memory stores")
		userStore = user.NewInMemory()
		tokenStore = auth.NewInMemoryTokens()
		eventStore = event.NewInMemory()
	}

	users, err := user.NewService(userStore)
	if err != nil {
		log.Fatalf("user service: %v", err)
	}

	tokens, err := auth.NewTokens(tokenStore, cfg.JWTSecret)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	authSvc, err := auth.NewService(users, tokens,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
		auth.WithResetTTL(cfg.ResetTTL),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	// push gateway: each leg is optional and fails soft at send time
	var fcm *push.FCMClient
	if cfg.FCM.ServerKey != "" {
		fcm, err = push.NewFCMClient(push.FCMConfig{
			ServerKey: cfg.FCM.ServerKey,
			BaseURL:   cfg.FCM.BaseURL,
		})
		if err != nil {
			log.Fatalf("fcm client: %v", err)
		}
	}
	var apns *push.APNSClient
	if cfg.APNS.SigningKeyPEM != "" {
		apns, err = push.NewAPNSClient(push.APNSConfig{
			SigningKeyPEM: cfg.APNS.SigningKeyPEM,
			KeyID:         cfg.APNS.KeyID,
			TeamID:        cfg.APNS.TeamID,
			Topic:         cfg.APNS.Topic,
			BaseURL:       cfg.APNS.BaseURL,
		})
		if err != nil {
			log.Fatalf("apns client: %v", err)
		}
	}
	gateway := push.NewClient(fcm, apns)

	events, err := event.NewService(eventStore, users, gateway)
	if err != nil {
		log.Fatalf("event service: %v", err)
	}

	api := httpapi.New(authSvc, tokens, users, events, httpapi.ReadyProbe{DB: db}, cfg.Version)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting gatherly-api %s on %s", cfg.Version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
