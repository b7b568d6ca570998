package main

import (
	"log"
	"time"

	"fintab-pos/internal/ai"
	"fintab-pos/internal/approval"
	"fintab-pos/internal/auth"
	"fintab-pos/internal/catalog"
	"fintab-pos/internal/checkout"
	"fintab-pos/internal/config"
	"fintab-pos/internal/database"
	"fintab-pos/internal/handlers"
	"fintab-pos/internal/incident"
	"fintab-pos/internal/ledger"
	"fintab-pos/internal/logger"
	"fintab-pos/internal/membership"
	"fintab-pos/internal/middleware"
	"fintab-pos/internal/reports"
	"fintab-pos/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("config: ", err)
	}
	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatal("logger: ", err)
	}
	defer zl.Sync()

	db, err := database.Connect(cfg.DBDriver, cfg.DBDSN, zl)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	repo := store.New(db)

	members := membership.NewService(repo, zl, cfg.RegistrationDeadline())
	led := ledger.NewService(repo, zl)
	rep := reports.NewService(repo, db)
	incidents, err := incident.Open(cfg.IncidentLogPath, zl)
	if err != nil {
		zl.Fatal("incident log", zap.Error(err))
	}
	if cfg.GeminiAPIKey == "" {
		zl.Warn("GEMINI_API_KEY is not set, the assistant is disabled")
	}

	h := handlers.New(handlers.Deps{
		Repo:      repo,
		Members:   members,
		Catalog:   catalog.NewService(repo, zl),
		Ledger:    led,
		Approvals: approval.NewEngine(repo, led, members, approval.LogNotifier{Log: zl}, zl),
		Sessions:  checkout.NewRegistry(),
		Recorder:  checkout.NewStoreRecorder(repo, zl),
		Reports:   rep,
		Agent:     ai.NewAgent(cfg.GeminiAPIKey, cfg.GeminiModel, ai.NewTools(repo, rep), zl),
		Incidents: incidents,
		Log:       zl,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(zl))
	r.Use(incident.Recovery(incidents, h.Scope))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.BusinessHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h.Register(r, auth.NewVerifier(cfg.JWTSecret))

	zl.Info("server starting", zap.String("base_url", cfg.BaseURL), zap.String("env", cfg.AppEnv))
	if err := r.Run(":" + cfg.Port); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}
