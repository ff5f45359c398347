package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-pos/internal/analytics"
	analytics_api "ms-pos/internal/analytics/api"
	"ms-pos/internal/auth"
	"ms-pos/internal/config"
	"ms-pos/internal/database/migrations"
	"ms-pos/internal/external"
	"ms-pos/internal/external/external_api"
	"ms-pos/internal/kafka"
	"ms-pos/internal/logger"
	"ms-pos/internal/models"
	"ms-pos/internal/order"
	"ms-pos/internal/order/db"
	"ms-pos/internal/order/order_api"
	rediswrap "ms-pos/internal/order/redis"
	"ms-pos/internal/qr"
	"ms-pos/internal/sse"
	"ms-pos/internal/tables"
	"ms-pos/internal/tables/table_api"
	"ms-pos/internal/tax"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting POS Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	order.InitStripe()

	ctx := context.Background()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	if os.Getenv("AUTO_MIGRATE") != "false" {
		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
	}

	emitter := sse.NewExternalOrderEmitter()

	var producer *kafka.Producer
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	if cfg.Kafka.Enabled {
		log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		requiredTopics := []string{
			kafka.TopicOrderCreated,
			kafka.TopicOrderUpdated,
			kafka.TopicOrderCancelled,
			cfg.Kafka.Topics.ExternalOrders,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}

		// Every instance consumes the external-order topic and fans it into
		// its local SSE clients, so staff connected anywhere see every
		// submission.
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.ExternalOrders, cfg.Kafka.GroupID)
		go func() {
			defer consumer.Close()
			consumer.Start(consumerCtx, func(ext models.ExternalOrder) {
				emitter.Emit(ext)
			})
		}()
		log.Info("KAFKA", "External order consumer started")
	} else {
		log.Warn("KAFKA", "Kafka disabled, external order push is single-instance only")
	}

	tableSync := tables.NewSynchronizer(bunDB, log)
	dbLayer := &db.DB{
		Bun:    bunDB,
		Tables: tableSync,
		Rates: tax.RateTable{
			StandardBps:   cfg.Tax.StandardBps,
			ReducedBps:    cfg.Tax.ReducedBps,
			DrinkCategory: cfg.Tax.DrinkCategory,
		},
	}
	tableLock := rediswrap.NewRedis(redisClient, cfg.Redis.TableLockTTL)

	var orderPub order.Publisher
	var extPub external.Publisher
	if producer != nil {
		orderPub = producer
		extPub = producer
	}

	// With Kafka enabled the consumer above delivers submissions to the
	// emitter; the service emitting directly as well would double every
	// event for local subscribers.
	var extEmitter external.Emitter
	if !cfg.Kafka.Enabled {
		extEmitter = emitter
	}

	orderService := order.NewOrderService(dbLayer, tableLock, orderPub, log, cfg.Server.StoreTimeout)
	externalService := external.NewService(dbLayer, extPub, extEmitter, log, cfg.Server.StoreTimeout)
	analyticsService := analytics.NewService(bunDB)
	qrGen := qr.NewGenerator(cfg.Menu.PublicBaseURL)

	orderHandler := order_api.NewHandler(orderService, log)
	tableHandler := table_api.NewHandler(tableSync, orderService, qrGen, log)
	externalHandler := external_api.NewHandler(externalService, emitter, log)
	analyticsHandler := analytics_api.NewHandler(analyticsService, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Route("/api/public", func(r chi.Router) {
		r.Post("/external-orders", externalHandler.Submit)
		r.Get("/menu/{adminUserID}", externalHandler.Menu)
	})
	log.Info("ROUTER", "Public routes registered under /api/public")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth))
		log.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			r.Route("/order", func(r chi.Router) {
				r.Post("/", orderHandler.CreateOrder)
				r.Get("/{orderID}", orderHandler.GetOrder)
				r.Put("/{orderID}", orderHandler.UpdateOrder)
				r.Patch("/{orderID}/status", orderHandler.UpdateOrderStatus)
				r.Get("/{orderID}/tax-breakdown", orderHandler.GetTaxBreakdown)
				r.Post("/{orderID}/payment-intent", orderHandler.CreatePaymentIntent)
			})
			log.Info("ROUTER", "Order routes registered under /api/order")

			r.Route("/tables", func(r chi.Router) {
				r.Get("/", tableHandler.ListTables)
				r.Post("/switch", tableHandler.SwitchTable)
				r.Post("/{tableID}/clear", tableHandler.ClearTable)
				r.Get("/{tableID}/qr", tableHandler.TableQR)
			})
			log.Info("ROUTER", "Table routes registered under /api/tables")

			r.Route("/external-orders", func(r chi.Router) {
				r.Get("/pending", externalHandler.ListPending)
				r.Get("/stream", externalHandler.StreamExternalOrders)
				r.Patch("/{externalOrderID}/status", externalHandler.UpdateStatus)
			})
			log.Info("ROUTER", "External order routes registered under /api/external-orders")

			r.Route("/reports", func(r chi.Router) {
				r.Get("/daily", analyticsHandler.GetDailySales)
				r.Get("/products", analyticsHandler.GetProductSales)
			})
			log.Info("ROUTER", "Report routes registered under /api/reports")
		})
	})

	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		// No WriteTimeout: the SSE stream endpoint holds its connection open
		// indefinitely.
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("POS Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	stopConsumer()

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "POS Service shutdown complete")
	}
}
