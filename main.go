package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
	"github.com/Keshujangid/Chat-app/modules/api"
	"github.com/Keshujangid/Chat-app/modules/auth"
	"github.com/Keshujangid/Chat-app/modules/chat"
	"github.com/Keshujangid/Chat-app/modules/presence"
	"github.com/Keshujangid/Chat-app/modules/realtime"
	"github.com/Keshujangid/Chat-app/modules/upload"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	db, err := openDatabase()
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	// Create modules. Cross-module wiring is plain constructor injection.
	authModule := auth.NewModule(db)
	chatModule := chat.NewModule(db)
	presenceModule := presence.NewModule(presenceStore(), authModule.Service().Repository())
	realtimeModule := realtime.NewModule(chatModule.Service(), presenceModule)
	uploadModule := upload.NewModule(objectStore(), "/api/v1/files")
	apiModule := api.NewModule(listenAddr(), authModule, chatModule, realtimeModule, uploadModule)

	// Order: independent modules first, then their consumers, the HTTP
	// surface last.
	app.Register(authModule)
	app.Register(chatModule)
	app.Register(presenceModule)
	app.Register(realtimeModule)
	app.Register(uploadModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	log.Printf("Chat server listening on %s", listenAddr())

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// openDatabase opens the shared SQLite database and migrates the schema.
// TranslateError turns driver unique-constraint failures into
// gorm.ErrDuplicatedKey, which the repositories match on.
func openDatabase() (*gorm.DB, error) {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "chat.db"
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Friendship{},
		&domain.UserFriend{},
		&domain.Conversation{},
		&domain.ConversationParticipant{},
		&domain.Message{},
		&domain.Attachment{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// presenceStore picks the presence backend: Redis when configured,
// otherwise in-process memory.
func presenceStore() presence.Store {
	addr := os.Getenv("PRESENCE_REDIS_ADDR")
	if addr == "" {
		log.Println("Presence: using in-memory store")
		return presence.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("PRESENCE_REDIS_PASSWORD"),
	})
	log.Printf("Presence: using Redis store at %s", addr)
	return presence.NewRedisStore(client)
}

// objectStore picks the attachment backend: NATS JetStream when
// configured, otherwise the local filesystem.
func objectStore() upload.ObjectStore {
	natsURL := os.Getenv("UPLOAD_NATS_URL")
	if natsURL == "" {
		dir := os.Getenv("UPLOAD_DIR")
		if dir == "" {
			dir = "uploads"
		}
		store, err := upload.NewLocalStore(dir)
		if err != nil {
			log.Fatalf("Failed to create upload directory: %v", err)
		}
		log.Printf("Uploads: using local store at %s", dir)
		return store
	}

	store, err := upload.NewJetStreamStore(natsURL, "chat-attachments")
	if err != nil {
		log.Fatalf("Failed to connect upload store: %v", err)
	}
	log.Printf("Uploads: using JetStream store at %s", natsURL)
	return store
}

func listenAddr() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	return ":" + port
}
