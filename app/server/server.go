package server

import (
	"context"
	"fmt"
	"knowledge/app/api"
	"knowledge/logger"
	"knowledge/model"
	"knowledge/review"
	"knowledge/search"
	"knowledge/store"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	log        *logger.Logger
	app        *fiber.App
	pool       *store.PostgresStore
}

func NewServer(addr string, log *logger.Logger) *Server {
	return &Server{
		listenAddr: addr,
		log:        log,
	}
}

func (s *Server) Stop() {
	if s.app != nil {
		if err := s.app.Shutdown(); err != nil {
			s.log.Error("error shutting down server", "error", err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	s.log.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()
	pool, err := store.NewPostgresStore(ctx, connStringFromEnv())
	if err != nil {
		s.log.Fatal("error to connect to Postgres database", "error", err)
		return
	}
	s.pool = pool

	if err := pool.Init(ctx); err != nil {
		s.log.Fatal("error to create tables", "error", err)
		return
	}

	embedder := model.NewEmbedderFromEnv()
	var reranker model.Reranker
	if r := model.NewRerankerFromEnv(); r != nil {
		reranker = r
	}

	engine := search.NewEngine(pool, embedder, reranker, search.DefaultConfig(), s.log)
	scheduler := review.NewScheduler(pool, review.DefaultParams(), s.log)

	var (
		app           = fiber.New(config)
		checkHandler  = api.NewCheckHandler()
		searchHandler = api.NewSearchHandler(engine, s.log)
		reviewHandler = api.NewReviewHandler(scheduler, s.log)
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)
	s.app = app

	check.Get("/healthy", checkHandler.HandleHealthy)

	apiv1.Post("/search", searchHandler.HandleSearch)
	apiv1.Post("/batch/search", searchHandler.HandleBatchSearch)

	apiv1.Post("/review/enroll", reviewHandler.HandleEnroll)
	apiv1.Post("/review/submit", reviewHandler.HandleSubmit)
	apiv1.Get("/review/due", reviewHandler.HandleDueItems)
	apiv1.Get("/review/stats", reviewHandler.HandleStats)
	apiv1.Post("/review/:id/suspend", reviewHandler.HandleSuspend)
	apiv1.Post("/review/:id/resume", reviewHandler.HandleResume)

	s.log.Info("server listening", "addr", s.listenAddr)
	if err := app.Listen(s.listenAddr); err != nil {
		s.log.Error("error to start server", "error", err)
	}
}

func connStringFromEnv() string {
	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
}
