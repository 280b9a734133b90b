package server

import (
	"context"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bezbot/app/api"
	"bezbot/app/middleware"
	"bezbot/config"
	"bezbot/store"
)

// Deps — сервисы, из которых собирается HTTP API.
type Deps struct {
	Tutor     api.Tutor
	Quiz      api.QuizStore
	Speech    api.Transcriber
	Retrieval api.Retrieval
	Users     store.UserStorer
	Tests     store.TestStorer
	Stats     store.StatsStorer

	// закрываются при Shutdown после остановки fiber
	Closers []io.Closer
}

type Server struct {
	app        *fiber.App
	listenAddr string
	closers    []io.Closer
	logger     *slog.Logger
}

func New(cfg *config.Config, deps Deps) *Server {
	logger := slog.Default()
	app := fiber.New(fiber.Config{
		ErrorHandler:          api.ErrorHandler,
		DisableStartupMessage: true,
		UnescapePath:          true, // имена менторов в пути приходят в percent-encoding
		BodyLimit:             32 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))
	app.Use(middleware.AccessLog(logger))
	app.Use(middleware.Metrics())
	app.Use(middleware.IgnoreWellKnown())

	app.Get(cfg.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	registerRoutes(app, deps)

	return &Server{
		app:        app,
		listenAddr: cfg.ServerAddr,
		closers:    deps.Closers,
		logger:     logger,
	}
}

func registerRoutes(app *fiber.App, deps Deps) {
	var (
		checkHandler     = api.NewCheckHandler()
		assistantHandler = api.NewAssistantHandler(deps.Tutor)
		moduleHandler    = api.NewModuleHandler(deps.Quiz)
		speechHandler    = api.NewSpeechHandler(deps.Speech)
		ragHandler       = api.NewRAGHandler(deps.Retrieval)
		userHandler      = api.NewUserHandler(deps.Users)
		testHandler      = api.NewTestHandler(deps.Tests)
		analyticsHandler = api.NewAnalyticsHandler(deps.Stats)
		check            = app.Group("/check")
		db               = app.Group("/db")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	app.Get("/", checkHandler.HandleRoot)

	app.Post("/get_answer", assistantHandler.HandleGetAnswer)
	app.Post("/get_quiz", assistantHandler.HandleGetQuiz)
	app.Post("/analyze_calibration", assistantHandler.HandleAnalyzeCalibration)
	app.Get("/get_module/:module_id", moduleHandler.HandleGetModule)
	app.Post("/update_module", moduleHandler.HandleUpdateModule)
	app.Post("/speech_to_text", speechHandler.HandleSpeechToText)

	app.Post("/search", ragHandler.HandleSearch)
	app.Post("/answer", ragHandler.HandleAnswer)
	app.Get("/health", ragHandler.HandleHealth)

	db.Post("/users", userHandler.HandlePostUser)
	db.Get("/users", userHandler.HandleGetUsers)
	db.Get("/users/:user_id", userHandler.HandleGetUser)
	db.Delete("/users/:user_id", userHandler.HandleDeleteUser)
	db.Put("/users/:user_id/level", userHandler.HandlePutUserLevel)
	db.Post("/tests", testHandler.HandlePostTest)
	db.Get("/analytics/general", analyticsHandler.HandleGeneral)
	db.Get("/analytics/user/:user_id", analyticsHandler.HandleUser)
	db.Get("/analytics/mentor/:mentor_name", analyticsHandler.HandleMentor)
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.logger.Info("server started", "addr", s.listenAddr)
	return s.app.Listen(s.listenAddr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil {
			s.logger.Error("failed to close resource", "error", cerr)
		}
	}
	s.logger.Info("server stopped")
	return err
}
