// seed bootstraps the initial admin account plus a development user.
// Idempotent: skips inserts for usernames that already exist.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	accountdomain "taskboard/backend/internal/account/domain"
	accountrepo "taskboard/backend/internal/account/repository"
	"taskboard/backend/internal/config"
	"taskboard/backend/internal/db"
	"taskboard/backend/internal/security"
)

const (
	adminUsername = "admin"
	devUsername   = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is not set")
	}
	devPassword := os.Getenv("SEED_DEV_PASSWORD")

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	repo := accountrepo.NewPostgresRepository(conn)
	hasher := security.NewHasher(cfg.BcryptCost)

	created := 0
	if ok := seedAccount(ctx, repo, hasher, adminUsername, adminPassword, accountdomain.RoleAdmin); ok {
		created++
	}
	if devPassword != "" {
		if ok := seedAccount(ctx, repo, hasher, devUsername, devPassword, accountdomain.RoleUser); ok {
			created++
		}
	}

	if created == 0 {
		log.Println("Seed already applied. Skipping.")
		return
	}
	log.Println("Seed completed successfully.")
	fmt.Printf("Admin login: %s\n", adminUsername)
}

func seedAccount(ctx context.Context, repo *accountrepo.PostgresRepository, hasher *security.Hasher, username, password string, role accountdomain.Role) bool {
	existing, err := repo.GetByUsername(ctx, username)
	if err != nil {
		log.Fatalf("seed check %s: %v", username, err)
	}
	if existing != nil {
		return false
	}

	hash, err := hasher.Hash([]byte(password))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	acct := &accountdomain.Account{
		ID:             uuid.New().String(),
		Username:       username,
		CredentialHash: hash,
		Role:           role,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.Create(ctx, acct); err != nil {
		log.Fatalf("create %s: %v", username, err)
	}
	return true
}
