package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tourguard/api/internal/config"
	"tourguard/api/internal/model"
	"tourguard/api/internal/server"
	"tourguard/api/internal/service"

	_ "tourguard/api/docs"
)

// @title TourGuard API
// @version 1.0
// @description Tourist safety tracking and emergency alert API

// @contact.name API Support
// @contact.url https://github.com/tourguard/tourguard/issues

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:3000
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	log.Println("[API] Starting TourGuard API Server...")

	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("[API] Failed to connect to database: %v", err)
	}
	log.Println("[API] Connected to database")

	if err := autoMigrate(db); err != nil {
		log.Fatalf("[API] Failed to migrate database: %v", err)
	}
	log.Println("[API] Database migrated")

	// Redis is optional: without it presence mirrors and rate limiting
	// are off, the database remains the source of truth
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("[API] Redis unavailable, presence and rate limiting disabled: %v", err)
		redisClient = nil
	} else {
		log.Println("[API] Connected to Redis")
		defer redisClient.Close()
	}

	// NATS is optional too: without it there is no realtime feed, the
	// polling endpoints still work
	var jetstream *service.JetStreamService
	natsConn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		log.Printf("[API] NATS unavailable, realtime feed disabled: %v", err)
		natsConn = nil
	} else {
		log.Println("[API] Connected to NATS")
		defer natsConn.Close()

		// JetStream needs a broker with it enabled; without it the live
		// feed still works, only replay is unavailable
		jetstream, err = service.NewJetStreamService(natsConn)
		if err != nil {
			log.Printf("[API] JetStream unavailable, replay disabled: %v", err)
			jetstream = nil
		} else {
			log.Println("[API] JetStream streams ready")
		}
	}

	srv := server.NewServer(cfg, db, redisClient, natsConn, jetstream)
	srv.Setup()

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	go func() {
		if err := srv.Run(addr); err != nil {
			log.Fatalf("[API] Failed to start server: %v", err)
		}
	}()

	log.Printf("[API] Server ready on %s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("[API] Shutting down...")

	srv.Shutdown()
	log.Println("[API] Server stopped")
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.TouristSession{},
		&model.EmergencyAlert{},
		&model.LoginLog{},
		&model.OperationLog{},
	)
}
