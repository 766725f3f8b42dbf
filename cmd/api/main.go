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

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/tarulabs/taru-api/internal/config"
	"github.com/tarulabs/taru-api/internal/handler"
	"github.com/tarulabs/taru-api/internal/middleware"
	"github.com/tarulabs/taru-api/internal/repository"
	"github.com/tarulabs/taru-api/internal/service"
	"github.com/tarulabs/taru-api/internal/token"
	"github.com/tarulabs/taru-api/internal/worker"
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
	if err := repository.ApplyMigrations(cfg.DB); err != nil {
		log.Error("apply migrations", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	dbPool, err := repository.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
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

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	reviewRepo := repository.NewReviewRepository(dbPool)
	addressRepo := repository.NewAddressRepository(dbPool)
	wishlistRepo := repository.NewWishlistRepository(dbPool)
	couponRepo := repository.NewCouponRepository(dbPool)

	// Services
	authority := token.NewAuthority(userRepo, cfg.Token)
	authSvc := service.NewAuthService(userRepo, authority)
	catalogSvc := service.NewCatalogService(productRepo, categoryRepo, redisClient)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	orderSvc := service.NewOrderService(orderRepo, couponRepo, amqpCh, log)
	reviewSvc := service.NewReviewService(reviewRepo, productRepo, redisClient)
	addressSvc := service.NewAddressService(addressRepo)
	wishlistSvc := service.NewWishlistService(wishlistRepo, productRepo)
	couponSvc := service.NewCouponService(couponRepo)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	productH := handler.NewProductHandler(catalogSvc)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	reviewH := handler.NewReviewHandler(reviewSvc)
	addressH := handler.NewAddressHandler(addressSvc)
	wishlistH := handler.NewWishlistHandler(wishlistSvc)
	couponH := handler.NewCouponHandler(couponSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	orderWorker := worker.NewOrderWorker(amqpCh, productRepo, redisClient, log)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	authRequired := middleware.AuthMiddleware(authority)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.POST("/logout", authRequired, authH.Logout)
		auth.GET("/profile", authRequired, authH.Profile)
		auth.PATCH("/profile", authRequired, authH.UpdateProfile)
		auth.POST("/change-password", authRequired, authH.ChangePassword)

		products := v1.Group("/products")
		products.GET("", productH.List)
		products.GET("/:id", productH.Get)
		products.GET("/:id/reviews", reviewH.ListByProduct)
		products.POST("/:id/reviews", authRequired, reviewH.Create)

		adminProducts := products.Group("", authRequired, middleware.AdminOnly())
		adminProducts.POST("", productH.Create)
		adminProducts.PATCH("/:id", productH.Update)
		adminProducts.DELETE("/:id", productH.Delete)

		categories := v1.Group("/categories")
		categories.GET("", productH.ListCategories)
		categories.GET("/:id", productH.GetCategory)
		categories.POST("", authRequired, middleware.AdminOnly(), productH.CreateCategory)

		cart := v1.Group("/cart", authRequired)
		cart.GET("", cartH.Get)
		cart.POST("/items", cartH.AddItem)
		cart.PUT("/items/:id", cartH.UpdateItem)
		cart.DELETE("/items/:id", cartH.RemoveItem)

		orders := v1.Group("/orders", authRequired)
		orders.POST("", orderH.Create)
		orders.GET("", orderH.List)
		orders.GET("/:id", orderH.Get)

		adminOrders := v1.Group("/admin/orders", authRequired, middleware.AdminOnly())
		adminOrders.GET("", orderH.ListAll)
		adminOrders.PATCH("/:id/status", orderH.UpdateStatus)

		addresses := v1.Group("/addresses", authRequired)
		addresses.GET("", addressH.List)
		addresses.POST("", addressH.Create)
		addresses.PUT("/:id", addressH.Update)
		addresses.DELETE("/:id", addressH.Delete)

		wishlist := v1.Group("/wishlist", authRequired)
		wishlist.GET("", wishlistH.List)
		wishlist.POST("/items", wishlistH.Add)
		wishlist.DELETE("/items/:id", wishlistH.Remove)

		coupons := v1.Group("/coupons")
		coupons.GET("/:code", couponH.Lookup)
		coupons.POST("", authRequired, middleware.AdminOnly(), couponH.Create)
	}

	if err := orderWorker.Start(ctx); err != nil {
		log.Error("start order worker", "error", err)
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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	orderWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
