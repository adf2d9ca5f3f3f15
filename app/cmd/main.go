package main

import (
	"knowledge/app/server"
	"knowledge/logger"
	"log"
	"os"
	"os/signal"
	"syscall"

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

	s := server.NewServer(os.Getenv("SERVER_ADDR"), logg)

	go s.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	logg.Info("received shutdown signal, shutting down server")
	s.Stop()
}

func mustLoadEnvVariables() {
	err := godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file")
	}
}
