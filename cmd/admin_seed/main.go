// Package main seeds the initial admin moderator account.
package main

import (
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"poolguard/internal/config"
	"poolguard/internal/models"
	"poolguard/internal/repositories"
)

func main() {
	config.LoadEnv()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() {
		if repositories.DB != nil {
			if sqlDB, err := repositories.DB.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					log.Printf("Failed to close PostgreSQL connection: %v", err)
				}
			}
		}
		if repositories.Cache != nil {
			if err := repositories.Cache.Close(); err != nil {
				log.Printf("Failed to close Redis connection: %v", err)
			}
		}
	}()

	moderators := repositories.NewModeratorRepository(repositories.DB)
	if _, err := moderators.GetByEmail(adminEmail); err == nil {
		log.Println("Admin moderator already exists")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	admin := models.Moderator{
		Email:    adminEmail,
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
	}
	if err := moderators.Create(&admin); err != nil {
		log.Fatalf("Failed to create admin moderator: %v", err)
	}
	log.Printf("Admin moderator created: %s (id=%d)", admin.Email, admin.ID)
}
