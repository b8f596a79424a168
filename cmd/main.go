package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"dapbuddy/backend/internal/api/handler"
	"dapbuddy/backend/internal/channel"
	"dapbuddy/backend/internal/dispute"
	"dapbuddy/backend/internal/exchange"
	"dapbuddy/backend/internal/models"
	"dapbuddy/backend/internal/notify"
	"dapbuddy/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_USER", "user"),
		envOr("DB_PASSWORD", "password"),
		envOr("DB_NAME", "dapbuddydb"),
		envOr("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	// Перевірка з'єднання Redis
	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	// 3. Міграції (Створення таблиць)
	err = db.AutoMigrate(
		&models.User{},
		&models.UserPreference{},
		&models.Booking{},
		&models.ExchangeRecord{},
		&models.LogEntry{},
		&models.ReadPointer{},
		&models.MediationCase{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	log.Println("Starting DapBuddy Exchange Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	// 2. Ініціалізація Hub та доменних сервісів
	hub := channel.NewManagerService(s)
	machine := exchange.NewMachine(s)

	var notifier dispute.Notifier
	if token := os.Getenv("OPS_BOT_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("OPS_CHAT_ID"), 10, 64)
		if err != nil {
			log.Fatalf("OPS_CHAT_ID is not a valid chat id: %v", err)
		}
		tg, err := notify.NewTelegramNotifier(token, chatID)
		if err != nil {
			log.Fatalf("Failed to start ops notifier: %v", err)
		}
		notifier = tg
	} else {
		log.Println("OPS_BOT_TOKEN not set, escalation alerts disabled")
	}
	disputes := dispute.NewService(s, machine, notifier)

	// 3. Запуск основних Goroutines
	go hub.Run() // Головний диспетчер

	// 4. Налаштування Gin та роутингу
	r := gin.Default()
	h := handler.NewHandler(hub, s, machine, disputes)

	// Роути
	r.GET("/token", h.GetToken)    // Отримання JWT для учасника
	r.GET("/ws", h.ServeWebSocket) // WebSocket Upgrade (один канал на бронювання)

	auth := r.Group("/", h.AuthRequired)
	{
		auth.GET("/bookings/:bookingID/entries", h.ListEntries)
		auth.POST("/bookings/:bookingID/entries", h.AppendEntry)
		auth.POST("/bookings/:bookingID/read", h.MarkRead)
		auth.GET("/bookings/:bookingID/unread", h.UnreadCount)
		auth.POST("/bookings/:bookingID/seen", h.MarkAsSeen)
		auth.POST("/bookings/:bookingID/request-again", h.RequestAgain)
		auth.GET("/bookings/:bookingID/actions", h.Actions)

		auth.GET("/exchanges/:exchangeID/credential", h.FetchCredential)
		auth.POST("/exchanges/:exchangeID/details", h.SendDetails)
		auth.POST("/exchanges/:exchangeID/reveal", h.Reveal)
		auth.POST("/exchanges/:exchangeID/confirm", h.ConfirmAccess)
		auth.POST("/exchanges/:exchangeID/issue", h.ReportIssue)
		auth.POST("/exchanges/:exchangeID/host-confirm", h.HostConfirm)
		auth.POST("/exchanges/:exchangeID/mismatch", h.ReportMismatch)

		auth.GET("/preferences/reveal-warning", h.GetRevealWarningPreference)
		auth.PUT("/preferences/reveal-warning", h.SetRevealWarningPreference)
	}

	// Запуск HTTP-сервера
	server := &http.Server{
		Addr:           envOr("LISTEN_ADDR", ":8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
