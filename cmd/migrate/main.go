package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"portal/internal/app/dsn"
	"portal/internal/app/repository"
	"portal/internal/app/role"
)

func main() {
	adminLogin := pflag.String("admin-login", "", "create an admin account with this login, password from ADMIN_PASSWORD")
	pflag.Parse()

	_ = godotenv.Load()

	dsnStr := dsn.FromEnv()
	if dsnStr == "" {
		logrus.Fatal("DSN string is empty. Check your .env file")
	}

	db, err := gorm.Open(postgres.Open(dsnStr), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	logrus.Info("Connected to database successfully")

	if err := repository.Migrate(db); err != nil {
		logrus.Fatal(err)
	}
	logrus.Info("Database migration completed successfully")

	if *adminLogin == "" {
		return
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		logrus.Fatal("ADMIN_PASSWORD is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logrus.Fatal(err)
	}
	repo := repository.NewWithDB(db)
	user, err := repo.CreateUser(context.Background(), *adminLogin, string(hash), "Administrator", role.Admin)
	if err != nil {
		logrus.Fatalf("Failed to create admin: %v", err)
	}
	logrus.WithField("id", user.ID).Info("admin account created")
}
