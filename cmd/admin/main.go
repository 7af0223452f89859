package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"gramseva/backend/internal/grievance"
	"gramseva/backend/internal/ledger"
	"gramseva/backend/internal/models"
	"gramseva/backend/internal/storage"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Ops CLI: account bootstrap and the manual escape hatches that must not go
// through public signup.
func main() {
	_ = godotenv.Load()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: create-official, create-admin, manual-verify, unlock")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "create-official":
		if len(os.Args) != 5 {
			fmt.Println("Usage: admin create-official <username> <full_name> <password>")
			os.Exit(1)
		}
		if err := createUser(storageSvc, os.Args[2], os.Args[3], os.Args[4], models.RoleOfficial); err != nil {
			log.Fatalf("Error creating official: %v", err)
		}
		fmt.Printf("Official %s created.\n", os.Args[2])

	case "create-admin":
		if len(os.Args) != 5 {
			fmt.Println("Usage: admin create-admin <username> <full_name> <password>")
			os.Exit(1)
		}
		if err := createUser(storageSvc, os.Args[2], os.Args[3], os.Args[4], models.RoleAdmin); err != nil {
			log.Fatalf("Error creating admin: %v", err)
		}
		fmt.Printf("Admin %s created.\n", os.Args[2])

	// "unlock" is an alias: manual verification is the only exit from an
	// admin lock, so unlocking and verifying are the same operation.
	case "manual-verify", "unlock":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin manual-verify <grievance_id>")
			os.Exit(1)
		}
		if err := manualVerify(storageSvc, os.Args[2]); err != nil {
			log.Fatalf("Error verifying grievance: %v", err)
		}
		fmt.Printf("Grievance %s verified.\n", os.Args[2])

	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func createUser(s storage.Storage, username, fullName, password, role string) error {
	existing, err := s.GetUserByUsername(username)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("user %s already exists", username)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.CreateUser(&models.User{
		Username: username,
		Password: string(hashed),
		FullName: fullName,
		Role:     role,
	})
}

func manualVerify(s storage.Storage, grievanceID string) error {
	recorder, err := ledger.NewContractRecorder(
		os.Getenv("BLOCKCHAIN_RPC_URL"),
		os.Getenv("BLOCKCHAIN_CONTRACT_ADDRESS"),
		os.Getenv("BLOCKCHAIN_PRIVATE_KEY"),
	)
	if err != nil {
		log.Printf("Ledger recorder not configured (%v), using mock recorder", err)
		svc := grievance.NewService(s, ledger.NewMockRecorder())
		_, err = svc.AdminManualVerify(context.Background(), grievanceID)
		return err
	}
	svc := grievance.NewService(s, recorder)
	_, err = svc.AdminManualVerify(context.Background(), grievanceID)
	return err
}
