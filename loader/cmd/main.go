package main

import (
	"context"
	"fmt"
	"knowledge/loader/service"
	"knowledge/logger"
	"knowledge/model"
	"knowledge/store"
	"knowledge/types"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	mustLoadEnvVariables()
}

func main() {
	logg, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		log.Fatal("error to create logger: ", err)
	}
	defer logg.Sync()

	ctx := context.Background()
	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))

	pool, err := store.NewPostgresStore(ctx, connStr)
	if err != nil {
		logg.Fatal("error to connect to Postgres database", "error", err)
	}
	defer pool.Close()

	if err := pool.Init(ctx); err != nil {
		logg.Fatal("error to create tables", "error", err)
	}

	svc, err := service.New(configFromEnv(), pool, model.NewEmbedderFromEnv(), logg)
	if err != nil {
		logg.Fatal("error to create loader service", "error", err)
	}
	svc.Run()
}

func configFromEnv() types.Config {
	monitoring, err := time.ParseDuration(os.Getenv("LOADER_MONITORING_TIME"))
	if err != nil {
		monitoring = 5 * time.Second
	}
	chunkSize, _ := strconv.Atoi(os.Getenv("CHUNK_SIZE"))
	chunkOverlap, _ := strconv.Atoi(os.Getenv("CHUNK_OVERLAP"))

	namespace := os.Getenv("LOADER_NAMESPACE")
	if namespace == "" {
		namespace = "default"
	}

	return types.Config{
		MonitoringTime: monitoring,
		SourceDir:      envOr("LOADER_SOURCE_DIR", "./source"),
		ArchiveDir:     envOr("LOADER_ARCHIVE_DIR", "./archive"),
		BadDir:         envOr("LOADER_BAD_DIR", "./bad"),
		ChunkSize:      chunkSize,
		ChunkOverlap:   chunkOverlap,
		Namespace:      namespace,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustLoadEnvVariables() {
	err := godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file")
	}
}
