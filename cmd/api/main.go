package main

import (
	"context"
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

	_ "github.com/AbhishikthMudutanapalli/university-appointment-system/api/swagger"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/handler"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/lock"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/middleware"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/repository"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/service"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/cache"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/config"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/database"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/jobs"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/logger"
	corsmiddleware "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/middleware/cors"
	reqidmiddleware "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/middleware/requestid"
)

// @title University Appointment System API
// @version 1.0.0
// @description Appointment booking between students and faculty
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, departmentRepo, cfg.JWT, nil, validate, logr)
	userSvc := service.NewUserService(userRepo, departmentRepo, validate, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, validate)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, userRepo, cacheRepo, cfg.Scheduling.AvailabilityCacheTTL, validate, logr)
	schedulingSvc := service.NewSchedulingService(
		appointmentRepo, availabilitySvc, userRepo, lock.NewKeyed(),
		cfg.Scheduling.LockTimeout, cfg.Scheduling.MaxAdvanceDays,
		nil, metricsSvc.Booking(), validate, logr,
	)
	notificationSvc := service.NewNotificationService(notificationRepo, appointmentRepo, service.LogSender{Logger: logr}, metricsSvc.Booking(), logr)
	dashboardSvc := service.NewDashboardService(appointmentRepo, departmentRepo)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Notifications.DispatcherEnabled {
		notificationSvc.StartDispatcher(rootCtx, cfg.Notifications.PollInterval, jobs.QueueConfig{
			Workers:    cfg.Notifications.WorkerConcurrency,
			MaxRetries: cfg.Notifications.WorkerRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
		})
		defer notificationSvc.StopDispatcher()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	departmentHandler := handler.NewDepartmentHandler(departmentSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	appointmentHandler := handler.NewAppointmentHandler(schedulingSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	auth := api.Group("")
	auth.Use(middleware.JWT(authSvc))

	auth.GET("/auth/me", authHandler.Me)

	auth.GET("/users", userHandler.List)
	auth.GET("/users/:id", userHandler.Get)
	auth.PUT("/users/:id", middleware.RBAC("SELF", string(models.RoleAdmin)), userHandler.UpdateProfile)
	auth.PUT("/users/:id/role", middleware.RequireRoles(models.RoleAdmin), userHandler.ChangeRole)

	auth.GET("/departments", departmentHandler.List)
	auth.GET("/departments/:id", departmentHandler.Get)
	auth.POST("/departments", middleware.RequireRoles(models.RoleAdmin), departmentHandler.Create)
	auth.PUT("/departments/:id", middleware.RequireRoles(models.RoleAdmin), departmentHandler.Update)

	auth.GET("/faculty/:id/availability", availabilityHandler.ListForFaculty)
	auth.POST("/availability", middleware.RequireRoles(models.RoleFaculty), availabilityHandler.Create)
	auth.PUT("/availability/:id", middleware.RequireRoles(models.RoleFaculty), availabilityHandler.Update)
	auth.DELETE("/availability/:id", middleware.RequireRoles(models.RoleFaculty), availabilityHandler.Delete)

	auth.POST("/appointments", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin), appointmentHandler.Create)
	auth.GET("/appointments", appointmentHandler.List)
	auth.GET("/appointments/:id", appointmentHandler.Get)
	auth.POST("/appointments/:id/confirm", middleware.RequireRoles(models.RoleFaculty, models.RoleAdmin), appointmentHandler.Confirm)
	auth.POST("/appointments/:id/reject", middleware.RequireRoles(models.RoleFaculty, models.RoleAdmin), appointmentHandler.Reject)
	auth.POST("/appointments/:id/cancel", appointmentHandler.Cancel)
	auth.POST("/appointments/:id/complete", middleware.RequireRoles(models.RoleFaculty, models.RoleAdmin), appointmentHandler.Complete)

	auth.GET("/appointments/:id/notifications", notificationHandler.ListForAppointment)
	auth.GET("/notifications/pending", middleware.RequireRoles(models.RoleAdmin), notificationHandler.ListPending)
	auth.POST("/notifications/:id/sent", middleware.RequireRoles(models.RoleAdmin), notificationHandler.MarkSent)
	auth.POST("/notifications/:id/failed", middleware.RequireRoles(models.RoleAdmin), notificationHandler.MarkFailed)

	auth.GET("/dashboard", middleware.RequireRoles(models.RoleAdmin), dashboardHandler.Stats)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown error", "error", err)
	}
}
