package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/kitchenware/storefront/internal/config"
	"github.com/kitchenware/storefront/internal/handler"
	"github.com/kitchenware/storefront/internal/middleware"
	"github.com/kitchenware/storefront/internal/notify"
	"github.com/kitchenware/storefront/internal/repository"
	"github.com/kitchenware/storefront/internal/service"
	"github.com/kitchenware/storefront/internal/session"
	"github.com/kitchenware/storefront/internal/storage"
	"github.com/kitchenware/storefront/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	if cfg.DB.Migrate {
		if err := repository.Migrate(cfg.DB.MigrateURL()); err != nil {
			log.Error("migrate database", "error", err)
			os.Exit(1)
		}
		log.Info("database schema up to date")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ: one channel consumes, the other publishes.
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer consumeCh.Close()

	if err := worker.SetupRabbitMQ(consumeCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}

	publishCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer publishCh.Close()
	log.Info("connected to RabbitMQ")

	// Object storage
	objects, err := storage.NewLocal(cfg.Storage.Root, cfg.Storage.BaseURL)
	if err != nil {
		log.Error("open storage", "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	profileRepo := repository.NewProfileRepository(dbPool)
	roleRepo := repository.NewRoleRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	offerRepo := repository.NewOfferRepository(dbPool)
	bannerRepo := repository.NewBannerRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	sessions := session.NewStore(redisClient, cfg.JWT.Expiration)
	publisher := notify.NewPublisher(publishCh)
	mailer := notify.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, nil, log)

	// Services
	authSvc := service.NewAuthService(userRepo, profileRepo, roleRepo, sessions, publisher, service.AuthConfig{
		Secret:      cfg.JWT.Secret,
		ResetTTL:    cfg.JWT.ResetTTL,
		ShopName:    cfg.Shop.Name,
		FrontendURL: cfg.Shop.FrontendURL,
	}, log)
	productSvc := service.NewProductService(productRepo, categoryRepo, offerRepo, objects, redisClient, log)
	cartFactory := service.NewCartFactory(cartRepo, productRepo, log)
	checkoutSvc := service.NewCheckoutService(orderRepo, objects, publisher, cfg.Shop.Name, log)
	orderSvc := service.NewOrderService(orderRepo)
	roleSvc := service.NewRoleService(profileRepo, roleRepo, sessions, log)
	bannerSvc := service.NewBannerService(bannerRepo)
	dashboardSvc := service.NewDashboardService(productRepo, orderRepo, log)
	profileSvc := service.NewProfileService(profileRepo)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	profileH := handler.NewProfileHandler(profileSvc)
	productH := handler.NewProductHandler(productSvc)
	bannerH := handler.NewBannerHandler(bannerSvc)
	cartH := handler.NewCartHandler(cartFactory)
	checkoutH := handler.NewCheckoutHandler(cartFactory, checkoutSvc, cfg.Server.MaxUploadBytes)
	orderH := handler.NewOrderHandler(orderSvc)
	adminH := handler.NewAdminHandler(dashboardSvc, roleSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	notificationWorker := worker.NewNotificationWorker(consumeCh, mailer, redisClient, log)

	// Router
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)
	router.Static("/storage", objects.Root())

	requireAuth := middleware.Auth(authSvc, sessions, authSvc.NewReconciler, log)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/sign-up", authH.SignUp)
		auth.POST("/sign-in", authH.SignIn)
		auth.POST("/reset-password-request", authH.RequestPasswordReset)
		auth.POST("/reset-password", authH.ResetPassword)
		auth.POST("/sign-out", requireAuth, authH.SignOut)
		auth.PUT("/password", requireAuth, authH.ChangePassword)

		v1.GET("/categories", productH.Categories)
		v1.GET("/products", productH.List)
		v1.GET("/products/:id", productH.GetByID)
		v1.GET("/banners", bannerH.ListActive)

		user := v1.Group("", requireAuth)
		user.GET("/session", authH.Session)
		user.GET("/profile", profileH.Get)
		user.PUT("/profile", profileH.Update)

		user.GET("/cart", cartH.GetCart)
		user.DELETE("/cart", cartH.Clear)
		user.POST("/cart/items", cartH.AddItem)
		user.PUT("/cart/items/:id", cartH.UpdateItem)
		user.DELETE("/cart/items/:id", cartH.DeleteItem)

		user.POST("/checkout", checkoutH.PlaceOrder)
		user.GET("/orders", orderH.ListOrders)
		user.GET("/orders/:id", orderH.GetOrder)

		admin := v1.Group("/admin", requireAuth, middleware.AdminOnly())
		admin.GET("/dashboard", adminH.Dashboard)

		admin.GET("/products", productH.List)
		admin.POST("/products", productH.Create)
		admin.PUT("/products/:id", productH.Update)
		admin.DELETE("/products/:id", productH.Delete)
		admin.POST("/products/:id/image", productH.UploadImage)
		admin.PUT("/products/:id/offer", productH.SetOffer)

		admin.GET("/orders", orderH.ListAll)
		admin.GET("/orders/export", orderH.Export)
		admin.PUT("/orders/:id/status", orderH.UpdateStatus)
		admin.PUT("/orders/:id/payment-status", orderH.UpdatePaymentStatus)

		admin.GET("/banners", bannerH.ListAll)
		admin.POST("/banners", bannerH.Create)
		admin.PUT("/banners/:id", bannerH.Update)
		admin.DELETE("/banners/:id", bannerH.Delete)
		admin.POST("/banners/:id/toggle", bannerH.Toggle)

		admin.GET("/users", adminH.ListUsers)
		admin.PUT("/users/:id/role", adminH.ChangeRole)
		admin.DELETE("/users/:id", adminH.DeleteUser)
	}

	if err := notificationWorker.Start(ctx); err != nil {
		log.Error("start notification worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	notificationWorker.Stop()
	cancel()
	log.Info("server stopped")
}
