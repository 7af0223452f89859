package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"gramseva/backend/internal/api/handler"
	"gramseva/backend/internal/config"
	"gramseva/backend/internal/grievance"
	"gramseva/backend/internal/ledger"
	"gramseva/backend/internal/models"
	"gramseva/backend/internal/notify"
	"gramseva/backend/internal/realtime"
	"gramseva/backend/internal/scheduler"
	"gramseva/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_USER", "user"),
		envOr("DB_PASSWORD", "password"),
		envOr("DB_NAME", "gramsevadb"),
		envOr("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Grievance{},
		&models.Verification{},
		&models.EscalationHistory{},
		&models.LedgerRecord{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

// setupLedger wires the contract-backed recorder when the chain environment
// is configured and falls back to the mock recorder otherwise.
func setupLedger() ledger.Recorder {
	recorder, err := ledger.NewContractRecorder(
		os.Getenv("BLOCKCHAIN_RPC_URL"),
		os.Getenv("BLOCKCHAIN_CONTRACT_ADDRESS"),
		os.Getenv("BLOCKCHAIN_PRIVATE_KEY"),
	)
	if err != nil {
		log.Printf("Ledger recorder not fully configured (%v), using mock recorder", err)
		return ledger.NewMockRecorder()
	}
	return recorder
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log.Println("Starting GramSeva Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	svc := grievance.NewService(s, setupLedger())
	hub := realtime.NewHub(s)
	sched := scheduler.New(svc, s, config.SchedulerInterval())

	ctx := context.Background()
	go hub.Run(ctx)
	go sched.Run(ctx)

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		notifier, err := notify.NewTelegramNotifier(token, s)
		if err != nil {
			log.Printf("ERROR: Failed to start Telegram notifier: %v", err)
		} else {
			go notifier.Run(ctx)
		}
	}

	r := gin.Default()
	h := handler.NewHandler(svc, s, hub)

	r.POST("/api/auth/signup", h.Signup)
	r.POST("/api/auth/login", h.Login)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api", h.Authenticate)
	{
		api.POST("/grievances", h.SubmitGrievance)
		api.GET("/grievances", h.ListGrievances)
		api.GET("/grievances/my", h.ListMyGrievances)
		api.GET("/grievances/assigned", h.ListAssignedGrievances)
		api.GET("/grievances/verification/pending", h.ListPendingVerification)
		api.GET("/grievances/:id", h.GetGrievance)
		api.POST("/grievances/:id/accept", h.AcceptGrievance)
		api.POST("/grievances/:id/resolve", h.ResolveGrievance)
		api.POST("/grievances/:id/community-vote", h.CommunityVote)
		api.POST("/grievances/:id/owner-verify", h.OwnerVerify)
		api.POST("/grievances/:id/user-satisfaction", h.UserSatisfaction)
		api.POST("/grievances/:id/escalate", h.EscalateGrievance)
		api.POST("/grievances/:id/cannot-resolve", h.CannotResolve)
		api.GET("/escalation-history/:grievanceId", h.GetEscalationHistory)
		api.GET("/ledger-records/:grievanceId", h.GetLedgerRecords)

		admin := api.Group("/admin", h.RequireAdmin)
		{
			admin.GET("/disputed", h.ListDisputed)
			admin.GET("/overdue", h.ListOverdue)
			admin.POST("/manual-verify/:id", h.AdminManualVerify)
		}
	}

	server := &http.Server{
		Addr:           ":" + envOr("PORT", "8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
