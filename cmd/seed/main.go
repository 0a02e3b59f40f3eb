// seed inserts test users into the local dev database and prints a working
// magic link for the first one.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/nbeast/nbeast/internal/infrastructure/postgres"
)

type userSpec struct {
	email string
	name  string
}

var users = []userSpec{
	{"seed@test.local", "Seed User"},
	{"ana@test.local", "Ana"},
	{"noname@test.local", ""},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set — run: direnv allow")
	}
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	if err := postgres.RunMigrations(dbURL); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	var firstID string
	for _, u := range users {
		var id string
		err := pool.QueryRow(ctx, `
			INSERT INTO users (id, email, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
			RETURNING id`,
			uuid.NewString(), u.email, u.name,
		).Scan(&id)
		if err != nil {
			log.Fatalf("seed user %s: %v", u.email, err)
		}
		if firstID == "" {
			firstID = id
		}
		fmt.Printf("user %-20s %s\n", u.email, id)
	}

	// A magic token for the first user, valid 15 minutes.
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		log.Fatalf("generate token: %v", err)
	}
	rawToken := hex.EncodeToString(raw)
	tokenHash := fmt.Sprintf("%x", sha256.Sum256([]byte(rawToken)))

	_, err = pool.Exec(ctx, `
		INSERT INTO magic_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), firstID, tokenHash, time.Now().Add(15*time.Minute),
	)
	if err != nil {
		log.Fatalf("seed magic token: %v", err)
	}

	fmt.Printf("\nsign in as %s:\n  %s/auth/verify?token=%s\n", users[0].email, baseURL, rawToken)
}
