package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/techlyn/academy-api/api/swagger"
	"github.com/techlyn/academy-api/internal/handler"
	"github.com/techlyn/academy-api/internal/middleware"
	"github.com/techlyn/academy-api/internal/models"
	"github.com/techlyn/academy-api/internal/repository"
	"github.com/techlyn/academy-api/internal/service"
	"github.com/techlyn/academy-api/pkg/cache"
	"github.com/techlyn/academy-api/pkg/config"
	"github.com/techlyn/academy-api/pkg/database"
	"github.com/techlyn/academy-api/pkg/jobs"
	"github.com/techlyn/academy-api/pkg/logger"
	"github.com/techlyn/academy-api/pkg/mailer"
	corsmiddleware "github.com/techlyn/academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/techlyn/academy-api/pkg/middleware/requestid"
	"github.com/techlyn/academy-api/pkg/storage"
)

// @title Techylyn Academy API
// @version 1.0.0
// @description Enrollment, payment lifecycle and course content API for Techylyn Academy
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The catalog cache degrades to a pass-through when Redis is down.
		logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	assetStore, err := storage.NewAssetStore(cfg.Uploads.StorageDir, cfg.Uploads.PublicBaseURL)
	if err != nil {
		logr.Sugar().Fatalw("failed to init asset store", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	var outboundMailer mailer.Mailer
	if cfg.Mail.Provider == "sendgrid" && cfg.Mail.SendgridKey != "" {
		outboundMailer = mailer.NewSendgrid(cfg.Mail.SendgridKey, cfg.Mail.FromName, cfg.Mail.FromEmail)
	} else {
		outboundMailer = mailer.NewConsole(logr)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	contentRepo := repository.NewContentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	notifications := service.NewNotificationService(outboundMailer, logr, jobs.Options{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notifications.Start(context.Background())
	defer notifications.Stop()

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, notifications, validate, logr, service.AuthConfig{
		AccessTokenSecret:   cfg.JWT.Secret,
		AccessTokenExpiry:   cfg.JWT.Expiration,
		RefreshTokenExpiry:  cfg.JWT.RefreshExpiration,
		PasswordResetExpiry: cfg.JWT.PasswordResetExpiration,
		PasswordResetURL:    cfg.JWT.PasswordResetURL,
		Issuer:              "techylyn-academy",
		Audience:            []string{"techylyn-academy-api"},
	})

	catalogTTL := cfg.Catalog.CacheTTL
	if !cfg.Catalog.CacheEnabled {
		cacheRepo = repository.NewCacheRepository(nil, logr)
	}

	courseSvc := service.NewCourseService(courseRepo, cacheRepo, validate, logr, catalogTTL)
	moduleSvc := service.NewModuleService(moduleRepo, courseRepo, cacheRepo, validate, logr)
	contentSvc := service.NewContentService(contentRepo, moduleRepo, assetStore, cacheRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, notifications, validate, logr)
	paymentSvc := service.NewPaymentService(enrollmentRepo, notifications, validate, logr)
	rosterSvc := service.NewRosterService(enrollmentRepo, courseRepo, userRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	moduleHandler := handler.NewModuleHandler(moduleSvc)
	contentHandler := handler.NewContentHandler(contentSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, metricsSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, metricsSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc)
	uploadHandler := handler.NewUploadHandler(assetStore, signer, contentSvc, cfg.Uploads.MaxFileSize)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Signed downloads carry their own credential in the token.
	r.GET("/downloads/:token", uploadHandler.Download)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/password-reset", authHandler.RequestPasswordReset)
		auth.POST("/password-reset/confirm", authHandler.ResetPassword)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	// Catalog reads are public.
	api.GET("/courses", courseHandler.List)
	api.GET("/courses/slug/:slug", courseHandler.GetBySlug)
	api.GET("/courses/:id", courseHandler.Get)
	api.GET("/courses/:id/modules", moduleHandler.ListByCourse)
	api.GET("/modules/:id", moduleHandler.Get)
	api.GET("/modules/:id/contents", contentHandler.ListByModule)
	api.GET("/contents/:id", contentHandler.Get)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/enrollments", enrollmentHandler.Create)
		authed.GET("/enrollments", enrollmentHandler.List)
		authed.GET("/enrollments/:id", enrollmentHandler.Get)
		authed.PATCH("/enrollments/:id/progress", enrollmentHandler.UpdateProgress)
		authed.GET("/contents/:id/download-link", uploadHandler.SignDownload)
	}

	staff := api.Group("")
	staff.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleTutor))
	{
		staff.POST("/uploads", uploadHandler.Upload)
		staff.GET("/tutors/:id/courses", rosterHandler.TutorCourses)
		staff.GET("/tutors/:id/students", rosterHandler.TutorStudents)
		staff.GET("/courses/:id/students", rosterHandler.CourseStudents)
		staff.GET("/courses/:id/students/export", rosterHandler.ExportCourseStudents)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/courses", courseHandler.Create)
		admin.PUT("/courses/:id", courseHandler.Update)
		admin.DELETE("/courses/:id", courseHandler.Delete)

		admin.POST("/courses/:id/modules", moduleHandler.Create)
		admin.PUT("/modules/:id", moduleHandler.Update)
		admin.DELETE("/modules/:id", moduleHandler.Delete)

		admin.POST("/modules/:id/contents", contentHandler.Create)
		admin.PUT("/contents/:id", contentHandler.Update)
		admin.DELETE("/contents/:id", contentHandler.Delete)

		admin.POST("/admin/enrollments/decide", paymentHandler.Decide)
		admin.DELETE("/enrollments", enrollmentHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}

	logr.Info("server stopped", zap.String("addr", addr))
}
