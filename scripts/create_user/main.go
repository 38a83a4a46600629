// Command create_user seeds an application account. The API has no public
// sign-up, so the first treasurer account is created with this tool.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/class-treasury-api/internal/models"
	"github.com/noah-isme/class-treasury-api/pkg/config"
	"github.com/noah-isme/class-treasury-api/pkg/database"
)

func main() {
	var (
		email    string
		fullName string
		password string
		role     string
	)

	flag.StringVar(&email, "email", "", "account email")
	flag.StringVar(&fullName, "name", "", "full name")
	flag.StringVar(&password, "password", "", "plaintext password to hash")
	flag.StringVar(&role, "role", string(models.RoleTreasurer), "TREASURER or VIEWER")
	flag.Parse()

	if email == "" || fullName == "" || password == "" {
		log.Fatal("email, name and password are required")
	}
	userRole := models.UserRole(strings.ToUpper(role))
	if userRole != models.RoleTreasurer && userRole != models.RoleViewer {
		log.Fatalf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close() //nolint:errcheck

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(fullName),
		Role:         userRole,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	const query = `
		INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :full_name, :role, :active, :created_at, :updated_at)`
	if _, err := db.NamedExecContext(ctx, query, user); err != nil {
		log.Fatalf("failed to insert user: %v", err)
	}

	log.Printf("created %s account %s (%s)", user.Role, user.Email, user.ID)
}
