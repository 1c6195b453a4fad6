package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scorecheck/backend/internal/aiformat"
	"github.com/scorecheck/backend/internal/config"
	"github.com/scorecheck/backend/internal/database"
	"github.com/scorecheck/backend/internal/handlers"
	"github.com/scorecheck/backend/internal/middleware"
	"github.com/scorecheck/backend/internal/models"
	"github.com/scorecheck/backend/internal/responsesheet"
	"github.com/scorecheck/backend/internal/services"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// @title ScoreCheck API
// @version 1.0
// @description Response-sheet parsing and scoring against published answer keys
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.SetupLogging(cfg.Logging, os.Stderr)

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		if err := handleCommand(os.Args[1], db, cfg); err != nil {
			logger.Error("command failed", "command", os.Args[1], "error", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Server.Env == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(cors(cfg.CORS.Origins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "scorecheck-api"})
	})

	if cfg.Monitoring.PrometheusEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Services
	auditService := services.NewAuditService(db)
	authService := services.NewAuthService(db, cfg)
	answerKeyService := services.NewAnswerKeyService(db, auditService)
	schemeService := services.NewMarkingSchemeService(db, auditService)
	catalogService := services.NewExamCatalogService(db, auditService)
	statsService := services.NewStatsService(db)
	parser := responsesheet.New(responsesheet.NewHTTPFetcher(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes)).WithLogger(logger)
	analysisService := services.NewAnalysisService(parser, answerKeyService, services.NewResponseStore(db))

	formatter := aiformat.New(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model)
	if formatter == nil {
		logger.Info("AI answer-key formatting disabled", "reason", "AI_API_KEY not set")
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	analysisHandler := handlers.NewAnalysisHandler(analysisService)
	answerKeyHandler := handlers.NewAnswerKeyHandler(answerKeyService, formatter)
	schemeHandler := handlers.NewMarkingSchemeHandler(schemeService)
	examHandler := handlers.NewExamHandler(catalogService)
	auditHandler := handlers.NewAuditHandler(auditService, statsService)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/analyze", analysisHandler.Analyze)
		v1.GET("/exams", examHandler.List)
		v1.POST("/answer-keys/submit", answerKeyHandler.Submit)
		v1.POST("/answer-keys/validate", answerKeyHandler.Validate)

		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(authService))
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/answer-keys/upload", answerKeyHandler.Upload)
			admin.POST("/answer-keys/manual", answerKeyHandler.SaveManual)
			admin.POST("/answer-keys/format", answerKeyHandler.Format)
			admin.GET("/pending-keys", answerKeyHandler.ListPending)
			admin.POST("/pending-keys/:id/approve", answerKeyHandler.Approve)
			admin.POST("/pending-keys/:id/reject", answerKeyHandler.Reject)

			admin.GET("/marking-schemes", schemeHandler.List)
			admin.POST("/marking-schemes", schemeHandler.Upsert)
			admin.PUT("/marking-schemes/:id", schemeHandler.Update)
			admin.DELETE("/marking-schemes/:id", schemeHandler.Delete)

			admin.POST("/exams", examHandler.CreateExam)
			admin.POST("/exams/:id/dates", examHandler.AddDate)
			admin.POST("/exam-dates/:id/shifts", examHandler.AddShift)
			admin.POST("/exam-shifts/:id/combinations", examHandler.AddCombination)

			admin.GET("/stats", auditHandler.Stats)
			admin.GET("/audit/recent", auditHandler.GetRecentActivity)

			admin.GET("/admins", authHandler.ListAdmins)
			admin.POST("/admins", authHandler.CreateAdmin)
			admin.DELETE("/admins/:id", authHandler.DeleteAdmin)
		}
	}

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("server starting", "addr", addr, "env", cfg.Server.Env)
	if err := r.Run(addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func cors(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		for _, o := range allowed {
			if o == "*" || origin == o {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				break
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.TraceHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func handleCommand(cmd string, db *gorm.DB, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch cmd {
	case "migrate":
		if err := database.Migrate(db); err != nil {
			return err
		}
		slog.Info("migration completed")
		return nil
	case "seed-admin":
		return seedAdmin(ctx, db, cfg)
	case "seed-demo":
		return seedDemo(ctx, db)
	default:
		return fmt.Errorf("unknown command %q (want migrate, seed-admin or seed-demo)", cmd)
	}
}

func seedAdmin(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	authService := services.NewAuthService(db, cfg)

	var count int64
	db.WithContext(ctx).Model(&models.Admin{}).Count(&count)
	if count > 0 {
		slog.Info("admin already exists")
		return nil
	}

	if cfg.Server.SeedAdminSecret == "" {
		return fmt.Errorf("SEED_ADMIN_SECRET must be set to seed the first admin")
	}
	email := os.Getenv("SEED_ADMIN_EMAIL")
	if email == "" {
		email = "admin@scorecheck.local"
	}

	admin := &models.Admin{Email: email, Name: "Administrator", Role: services.RoleAdmin, IsActive: true}
	if err := authService.CreateAdmin(ctx, admin, cfg.Server.SeedAdminSecret); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	slog.Info("admin created", "email", email)
	return nil
}

const demoAnswerKey = `Sno	Subject	QuestionID	AnswerID
1	Physics	1001	10011
2	Physics	1002	10022
3	Physics	1003	10033
4	Chemistry	2001	20014
5	Chemistry	2002	20021
6	Mathematics	3001	30012
7	Mathematics	3002	30023`

// seedDemo loads one exam sitting with a published key so /analyze can be
// tried end to end.
func seedDemo(ctx context.Context, db *gorm.DB) error {
	audit := services.NewAuditService(db)
	catalog := services.NewExamCatalogService(db, audit)
	keys := services.NewAnswerKeyService(db, audit)
	system := services.Actor{Email: "seed"}

	var count int64
	db.WithContext(ctx).Model(&models.Exam{}).Where("name = ? AND year = ?", "CUET", "2025").Count(&count)
	if count > 0 {
		slog.Info("demo exam already exists")
		return nil
	}

	exam, err := catalog.CreateExam(ctx, services.CreateExamInput{
		Name:                   "CUET",
		Year:                   "2025",
		Description:            "Common University Entrance Test",
		HasSubjectCombinations: true,
	}, system)
	if err != nil {
		return err
	}
	date, err := catalog.AddDate(ctx, exam.ID, "2025-05-30", system)
	if err != nil {
		return err
	}
	shift, err := catalog.AddShift(ctx, date.ID, services.CreateShiftInput{ShiftName: "Shift 1", StartTime: "09:00", EndTime: "12:00"}, system)
	if err != nil {
		return err
	}
	if _, err := catalog.AddCombination(ctx, shift.ID, services.CreateCombinationInput{
		Name:     "PCM",
		Subjects: []string{"Physics", "Chemistry", "Mathematics"},
	}, system); err != nil {
		return err
	}

	scope, err := services.ScopeInput{
		ExamName:           "CUET",
		ExamYear:           "2025",
		ExamDate:           "2025-05-30",
		ShiftName:          "Shift 1",
		SubjectCombination: "PCM",
	}.Resolve()
	if err != nil {
		return err
	}
	res, err := keys.Upload(ctx, scope, demoAnswerKey, system)
	if err != nil {
		return fmt.Errorf("upload demo key: %w", err)
	}
	slog.Info("demo data seeded", "exam", exam.ID, "subjects", len(res.Subjects))
	return nil
}
