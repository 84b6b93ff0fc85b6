package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "storefront-admin/api/swagger" // swagger docs
	"storefront-admin/internal/cache"
	"storefront-admin/internal/config"
	"storefront-admin/internal/database"
	"storefront-admin/internal/events"
	"storefront-admin/internal/handler"
	"storefront-admin/internal/logger"
	"storefront-admin/internal/metrics"
	"storefront-admin/internal/middleware"
	"storefront-admin/internal/repository"
	"storefront-admin/internal/service"
	"storefront-admin/internal/websocket"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Storefront Admin API
// @version         1.0
// @description     Sales channels, tax rules, checkout quotes and orders.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "production").WithError(err).Fatal("Invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.Environment)

	db, err := database.NewConnection(cfg.Database.DSN(), cfg.Environment, log)
	if err != nil {
		log.WithError(err).Fatal("Database connection failed")
	}
	log.Info("Connected to PostgreSQL successfully.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := cache.NewRedisClient(cfg.Redis, log)
	node, err := snowflake.NewNode(cfg.Pricing.NodeID)
	if err != nil {
		log.WithError(err).Fatal("Invalid NODE_ID")
	}
	m := metrics.New()

	// Events go to Kafka and to connected dashboards
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)
	kafkaPublisher := events.NewPublisher(cfg.Kafka, log)
	publisher := events.Fanout{kafkaPublisher, wsHub}

	// Repository -> Service -> Handler
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	ruleRepo := repository.NewTaxRuleRepository(db)
	productRepo := repository.NewProductRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	auditService := service.NewAuditService(auditRepo, log)
	roleService := service.NewRoleService(roleRepo, txManager, cache.NewPermissionCache(redisClient, cfg.Redis.PermissionTTL), auditService, log)
	userService := service.NewUserService(userRepo, roleRepo, cfg.Auth, log)
	channelService := service.NewChannelService(channelRepo, auditService, publisher, log, cfg.Pricing.DefaultStrategy)
	taxRuleService := service.NewTaxRuleService(channelRepo, ruleRepo, productRepo, auditService, publisher, log)
	productService := service.NewProductService(productRepo, txManager, auditService)
	customerService := service.NewCustomerService(customerRepo, txManager, auditService)
	quoter := service.NewQuoter(channelRepo, ruleRepo, productRepo, customerRepo)
	quoteService := service.NewQuoteService(quoter, m)
	orderService := service.NewOrderService(orderRepo, txManager, quoter, node, auditService, publisher, m, log)
	exportService := service.NewExportService(orderRepo)
	receiptService := service.NewReceiptService(orderRepo)
	statisticsService := service.NewStatisticsService(statsRepo, channelRepo)

	if err := roleService.SeedDefaultRolesAndPermissions(ctx); err != nil {
		log.WithError(err).Fatal("Failed to seed roles")
	}
	if err := userService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.WithError(err).Error("Failed to create bootstrap admin")
	}

	auth := middleware.NewAuth(cfg.Auth.JWTSecret, roleService, cfg.IsProduction(), log)
	idempotency := middleware.Idempotency(cache.NewIdempotencyStore(redisClient, cfg.Redis.IdempotencyTTL), log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(log), middleware.Recovery(log), m.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.HeaderIdempotencyKey, middleware.HeaderRequestID}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", middleware.HeaderRequestID}
	router.Use(cors.New(corsConfig))

	if cfg.Server.EnableSwagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	router.GET("/metrics", m.Handler())

	// Dashboards need orders.read to subscribe
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, []byte(cfg.Auth.JWTSecret), func(role string) bool {
			if role == service.RoleAdmin {
				return true
			}
			perms, err := roleService.GetPermissionsByRoleName(c.Request.Context(), role)
			return err == nil && lo.Contains(perms, "orders.read")
		})
	})

	checks := map[string]handler.Pinger{
		"database": handler.PingFunc(func(context.Context) error { return database.Ping(db) }),
	}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	api := router.Group("")
	handler.NewHealthHandler(checks).RegisterRoutes(api)
	handler.NewUserHandler(userService, roleService, auth).RegisterRoutes(api)
	handler.NewRoleHandler(roleService, auth).RegisterRoutes(api)
	handler.NewAuditHandler(auditService, auth).RegisterRoutes(api)
	handler.NewChannelHandler(channelService, auth).RegisterRoutes(api)
	handler.NewTaxRuleHandler(taxRuleService, quoteService, auth).RegisterRoutes(api)
	handler.NewQuoteHandler(quoteService, auth).RegisterRoutes(api)
	handler.NewProductHandler(productService, auth).RegisterRoutes(api)
	handler.NewCustomerHandler(customerService, auth).RegisterRoutes(api)
	handler.NewOrderHandler(orderService, exportService, receiptService, auth, idempotency).RegisterRoutes(api)
	handler.NewStatisticsHandler(statisticsService, auth).RegisterRoutes(api)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}

	if closer, ok := kafkaPublisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Kafka writer")
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
