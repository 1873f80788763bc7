// Bootstrap staff accounts. Tourists self-register through the API;
// admin and police accounts are created here because registration
// metadata comes from the operator, not from a browser.

package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tourguard/api/internal/config"
	"tourguard/api/internal/model"
	"tourguard/api/internal/service"
)

func main() {
	var (
		email    = flag.String("email", "", "account email (required)")
		password = flag.String("password", "", "account password (required)")
		fullName = flag.String("name", "", "full name")
		role     = flag.String("role", "admin", "account role: tourist, admin or police")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		log.Fatal("[Seed] -email and -password are required")
	}

	if _, err := model.ParseRole(*role); err != nil {
		log.Fatalf("[Seed] %v", err)
	}

	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("[Seed] Failed to connect to database: %v", err)
	}

	profiles := service.NewProfileService(db)
	auth := service.NewAuthService(db, profiles, cfg.JWTSecret, cfg.JWTTTL)

	user, profile, err := auth.Register(context.Background(), &model.RegisterRequest{
		Email:    *email,
		Password: *password,
		Metadata: model.SignupMetadata{
			FullName: *fullName,
			Role:     *role,
		},
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			log.Fatalf("[Seed] Account %s already exists", *email)
		}
		log.Fatalf("[Seed] Failed to create account: %v", err)
	}

	log.Printf("[Seed] Created %s account %s (user %d)", profile.Role, user.Email, user.ID)
}
