package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"inspectra-system/config"
	"inspectra-system/internal/database"
	"inspectra-system/internal/database/models"
	"inspectra-system/internal/gateway/handlers"
	"inspectra-system/internal/gateway/middleware"
	cataloghandler "inspectra-system/internal/services/catalog/handler"
	dashboardhandler "inspectra-system/internal/services/dashboard/handler"
	inspectionhandler "inspectra-system/internal/services/inspection/handler"
	qualityhandler "inspectra-system/internal/services/quality/handler"
	userhandler "inspectra-system/internal/services/user/handler"
	"inspectra-system/internal/storage"
	"inspectra-system/internal/utils"
	"inspectra-system/pkg/logger"
	"inspectra-system/prometheus"
)

func main() {
	cfg := config.LoadConfig()
	zlog := logger.GetLogger()
	defer zlog.Sync()

	utils.SetJWTSecret(cfg.Auth.JWTSecret)
	prometheus.InitMetrics(cfg.Metrics.Prefix)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.MigrateCatalogDB(db); err != nil {
		log.Fatalf("Failed to migrate catalog tables: %v", err)
	}
	if err := models.MigrateInspectionDB(db); err != nil {
		log.Fatalf("Failed to migrate inspection tables: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)

	photoStore, err := storage.NewLocalPhotoStore(cfg.Storage.PhotoDir, cfg.Storage.PhotoBaseURL)
	if err != nil {
		log.Fatalf("Failed to init photo storage: %v", err)
	}

	catalogSvc := cataloghandler.NewCatalogHandler(db, redisClient, zlog)
	inspectionSvc := inspectionhandler.NewInspectionHandler(db, redisClient, catalogSvc, photoStore, zlog)
	qualitySvc := qualityhandler.NewQualityHandler(db, redisClient, zlog)
	dashboardSvc := dashboardhandler.NewDashboardHandler(db, redisClient, zlog)
	userSvc := userhandler.NewUserHandler(db, redisClient, zlog, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	userHandler := handlers.NewUserHTTPHandler(userSvc)
	catalogHandler := handlers.NewCatalogHTTPHandler(catalogSvc)
	inspectionHandler := handlers.NewInspectionHTTPHandler(inspectionSvc)
	qualityHandler := handlers.NewQualityHTTPHandler(qualitySvc)
	dashboardHandler := handlers.NewDashboardHTTPHandler(dashboardSvc)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(cfg.Server.RateLimit))
	r.Use(middleware.Metrics())

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", userHandler.Login)
			auth.POST("/register", userHandler.Register)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		catalog := protected.Group("/catalog")
		{
			catalog.GET("/products", catalogHandler.ListProducts)
			catalog.GET("/products/:id", catalogHandler.GetProduct)
			catalog.GET("/tests", catalogHandler.ListTests)
			catalog.GET("/manufacturers/:id", catalogHandler.GetManufacturer)
			catalog.GET("/resellers/:id", catalogHandler.GetReseller)
		}

		inspections := protected.Group("/inspections")
		{
			inspections.POST("", inspectionHandler.CreateInspection)
			inspections.GET("", inspectionHandler.ListInspections)
			inspections.GET("/:id", inspectionHandler.GetInspection)
			inspections.PUT("/:id/complete", inspectionHandler.CompleteInspection)
			inspections.PUT("/:id/tests/:testId", inspectionHandler.RecordTestResult)
			inspections.POST("/:id/tests", inspectionHandler.AddTests)
			inspections.POST("/:id/nonconformities", qualityHandler.RegisterNonConformity)
			inspections.GET("/:id/nonconformities", qualityHandler.ListNonConformities)
			inspections.GET("/:id/action-plans", qualityHandler.ListActionPlans)
		}

		protected.POST("/nonconformities/with-action-plan", qualityHandler.CreateNonConformityWithActionPlan)
		protected.PUT("/action-plans/:id/status", qualityHandler.UpdateActionPlanStatus)

		protected.GET("/dashboard/overview", dashboardHandler.Overview)
	}

	r.GET("/health", healthCheckHandler())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static(cfg.Storage.PhotoBaseURL, cfg.Storage.PhotoDir)

	port := ":" + cfg.Server.Port
	zlog.Info("starting server", zap.String("port", port))
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	}
}
