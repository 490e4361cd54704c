package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"github.com/nkazmin/liveboard/api"
	"github.com/nkazmin/liveboard/cache"
	"github.com/nkazmin/liveboard/cache/memory"
	"github.com/nkazmin/liveboard/cache/redis"
	"github.com/nkazmin/liveboard/mq/sqsmq"
	"github.com/nkazmin/liveboard/store/dynamo"
)

const (
	DynamoDBTable         = "Liveboard"
	SQSCanvasDeletedQueue = "CanvasDeletedQueue"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	ctx := context.Background()
	devMode := os.Getenv("DEV_MODE") == "true"

	shutdownCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	liveboardStore, err := dynamo.NewDynamoLiveboardStore(ctx, devMode, os.Getenv("DYNAMODB_ENDPOINT"), DynamoDBTable)
	if err != nil {
		log.Fatalf("Failed to create dynamodb store: %v", err)
	}

	canvasDeletedQueue, err := sqsmq.NewSQSMessageQueue(ctx, devMode, os.Getenv("SQS_ENDPOINT"), SQSCanvasDeletedQueue)
	if err != nil {
		log.Fatalf("Failed to create SQS MQ: %v", err)
	}

	// Without a Redis endpoint presence falls back to an in-process cache;
	// fine for a single instance, not for a fleet.
	var presenceCache cache.PresenceCache
	if redisEndpoint := os.Getenv("REDIS_ENDPOINT"); redisEndpoint != "" {
		presenceCache, err = redis.NewRedisPresenceCache(ctx, devMode, redisEndpoint)
		if err != nil {
			log.Fatalf("Failed to create redis cache: %v", err)
		}
	} else {
		log.Printf("REDIS_ENDPOINT not set, using in-memory presence cache")
		memCache := memory.NewMemoryPresenceCache()
		go memCache.RunJanitor(shutdownCtx)
		presenceCache = memCache
	}

	frontendOrigin := os.Getenv("FRONTEND_ORIGIN")

	var oauthConfigs = map[string]*oauth2.Config{
		"github": {
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			RedirectURL:  frontendOrigin + "/auth/callback",
		},
		"google": {
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  frontendOrigin + "/auth/callback",
		},
	}

	jwtSecret, err := base64.StdEncoding.DecodeString(os.Getenv("JWT_SECRET"))
	if err != nil {
		log.Fatalf("Failed to decode base64 jwtSecret: %v", err)
	}

	liveboardApi, err := api.NewLiveboardAPI(liveboardStore, canvasDeletedQueue, presenceCache, oauthConfigs, jwtSecret, shutdownCtx)
	if err != nil {
		log.Fatalf("Failed to create liveboard api: %v", err)
	}

	mux := http.NewServeMux()
	liveboardApi.RegisterRoutes(mux, frontendOrigin)

	hostPort := "8080"
	if p := os.Getenv("HOST_PORT"); p != "" {
		hostPort = p
	}
	log.Printf("Starting server on host port: %s\n", hostPort)
	log.Fatal(http.ListenAndServe(":"+hostPort, mux))
}
