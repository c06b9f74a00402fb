package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"linkup/backend/internal/api/handler"
	"linkup/backend/internal/cache"
	"linkup/backend/internal/chat"
	"linkup/backend/internal/chathub"
	"linkup/backend/internal/config"
	"linkup/backend/internal/identity"
	"linkup/backend/internal/jobs"
	"linkup/backend/internal/models"
	"linkup/backend/internal/platform"
	"linkup/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg config.Config, sugar *zap.SugaredLogger) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		sugar.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		sugar.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.ChatRoom{},
		&models.ChatParticipant{},
		&models.Message{},
		&models.User{},
		&models.Connection{},
	)
	if err != nil {
		sugar.Fatalf("Failed to run migrations: %v", err)
	}

	sugar.Info("Database and Redis connections established, migrations complete")
	return db, rdb
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("zap.NewProduction: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Cannot parse config: %v", err)
	}

	db, rdb := setupDependencies(cfg, sugar)
	store := storage.NewService(db, rdb, sugar)

	caches := cache.NewChatCaches(cfg.CacheTTL)
	connections := platform.NewGormConnections(db)
	profiles := platform.NewGormProfiles(db)
	files, err := platform.NewDiskFiles(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		sugar.Fatalf("Cannot prepare upload dir: %v", err)
	}

	reads := chat.NewReadTracker(store, caches, sugar)
	rooms := chat.NewRoomService(store, caches, connections, profiles, reads, sugar)
	messages := chat.NewMessageService(store, caches, rooms, sugar)

	hub := chathub.NewManager(store, rooms, messages, reads, sugar)
	go hub.Run()

	jobs.Start(caches, store, cfg.CacheSweepInterval, sugar)

	verifier := identity.NewJWTVerifier(cfg.JWTSecret)
	h := handler.NewHandler(hub, rooms, messages, reads, files, store, verifier, sugar)

	r := gin.Default()
	h.Register(r)
	r.Static("/uploads", cfg.UploadDir)

	server := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	sugar.Infow("chat backend listening", "addr", cfg.ListenAddr)
	sugar.Fatal(server.ListenAndServe())
}
