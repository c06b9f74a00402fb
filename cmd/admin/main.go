// Command admin is the ops CLI: seed demo data, mint development tokens, and
// run room reconciliation by hand.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"linkup/backend/internal/config"
	"linkup/backend/internal/models"
	"linkup/backend/internal/storage"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("cannot parse config: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		sugar.Fatalf("failed to connect database: %v", err)
	}
	store := storage.NewService(db, nil, sugar) // no redis needed for admin commands

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <seed|mint-token|reconcile> [args]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "seed":
		if err := seed(db); err != nil {
			sugar.Fatalf("seed failed: %v", err)
		}
		fmt.Println("Seeded two connected demo users: alice, bob")

	case "mint-token":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin mint-token <user_id>")
			os.Exit(1)
		}
		token, err := mintToken(cfg.JWTSecret, os.Args[2])
		if err != nil {
			sugar.Fatalf("mint-token failed: %v", err)
		}
		fmt.Println(token)

	case "reconcile":
		archived, err := store.ArchiveEmptyRooms()
		if err != nil {
			sugar.Fatalf("reconcile failed: %v", err)
		}
		fmt.Printf("Archived %d empty rooms\n", archived)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

// seed creates two users with an accepted connection so a room can be opened
// right away in a dev environment.
func seed(db *gorm.DB) error {
	alice := models.User{ID: "alice", DisplayName: "Alice Doe", Headline: "Backend engineer", Skills: []string{"go", "postgres"}}
	bob := models.User{ID: "bob", DisplayName: "Bob Roe", Headline: "Frontend engineer", Skills: []string{"typescript"}}

	for _, u := range []models.User{alice, bob} {
		if err := db.Save(&u).Error; err != nil {
			return err
		}
	}

	conn := models.Connection{RequesterID: alice.ID, AddresseeID: bob.ID, Status: models.ConnectionAccepted}
	return db.Save(&conn).Error
}

// mintToken issues a development HS256 token compatible with the gateway's
// verifier. Production tokens come from the auth service.
func mintToken(secret, userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(72 * time.Hour).Unix(),
		"iss": "linkup-admin",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
