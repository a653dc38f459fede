package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"merchant-dashboard/internal/config"
	"merchant-dashboard/internal/database"
	"merchant-dashboard/internal/handlers"
	"merchant-dashboard/internal/kafka"
	"merchant-dashboard/internal/logger"
	"merchant-dashboard/internal/models"
	"merchant-dashboard/internal/redis"
	"merchant-dashboard/internal/services"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	mux      *http.ServeMux
	server   *http.Server
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting merchant dashboard server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = app.consumer.Stop()
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	_ = app.producer.Close()
	_ = app.redis.Close()
	_ = app.db.Close()
	app.log.Info("Server exited")
}

// buildApplication создает все зависимости (подменяемые в тестах).
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := newKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	analyticsService := services.NewAnalyticsService(redisClient, log, &cfg.Analytics)
	archiveService := services.NewArchiveService(db, log)
	inventoryService := services.NewInventoryService(redisClient, log, &cfg.Inventory)
	rateLimiter := services.NewRateLimiter(redisClient, log, &cfg.RateLimit)

	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelInit()
	if err := inventoryService.Initialize(initCtx, nil); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("inventory initialize: %w", err)
	}

	dashboardHandler := handlers.NewDashboardHandler(analyticsService, archiveService, producer, log, &cfg.Analytics)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService, producer, log)
	ordersHandler := handlers.NewOrdersHandler(archiveService, log)
	healthHandler := handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers, kafkaHealthCheck)
	rateLimitHandler := handlers.NewRateLimitHandler(rateLimiter, log, &cfg.RateLimit)

	registerEventHandlers(consumer, log)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	mux := setupRoutes(dashboardHandler, inventoryHandler, ordersHandler, healthHandler, rateLimitHandler, rateLimiter, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		mux:      mux,
		server:   server,
	}, nil
}

// registerEventHandlers подписывает обработчики доменных событий.
func registerEventHandlers(consumer *kafka.Consumer, log *logger.Logger) {
	consumer.RegisterHandler(models.EventTypeOrdersImported, func(ctx context.Context, event *models.Event) error {
		log.WithFields(map[string]interface{}{
			"event_id":    event.ID,
			"orders":      event.Data["count"],
			"total_sales": event.Data["total_sales"],
		}).Info("Order log imported")
		return nil
	})

	consumer.RegisterHandler(models.EventTypeReorderRequested, func(ctx context.Context, event *models.Event) error {
		log.WithFields(map[string]interface{}{
			"event_id": event.ID,
			"item":     event.Data["item_name"],
			"quantity": event.Data["quantity"],
		}).Info("Reorder requested")
		return nil
	})
}

// setupRoutes настраивает маршруты HTTP сервера
func setupRoutes(dashboardHandler *handlers.DashboardHandler, inventoryHandler *handlers.InventoryHandler, ordersHandler *handlers.OrdersHandler, healthHandler *handlers.HealthHandler, rateLimitHandler *handlers.RateLimitHandler, rateLimiter *services.RateLimiter, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	applyAPI := func(h http.HandlerFunc) http.HandlerFunc {
		return corsMiddleware(handlers.RateLimitMiddleware(rateLimiter, log, h))
	}

	// Health check endpoints
	mux.HandleFunc("/health", corsMiddleware(healthHandler.Health))
	mux.HandleFunc("/health/readiness", corsMiddleware(healthHandler.Readiness))
	mux.HandleFunc("/health/liveness", corsMiddleware(healthHandler.Liveness))

	// Dashboard endpoints
	mux.HandleFunc("/api/orders/import", applyAPI(dashboardHandler.ImportOrders))
	mux.HandleFunc("/api/dashboard/summary", applyAPI(dashboardHandler.Summary))

	// Archived orders
	mux.HandleFunc("/api/orders", applyAPI(ordersHandler.List))

	// Inventory endpoints
	mux.HandleFunc("/api/inventory", applyAPI(handleInventoryRoute(inventoryHandler)))
	mux.HandleFunc("/api/inventory/", applyAPI(handleInventoryItemRoute(inventoryHandler)))
	mux.HandleFunc("/api/inventory/pending-orders", applyAPI(inventoryHandler.PendingOrders))

	// Rate limit status
	mux.HandleFunc("/api/rate-limit/status", applyAPI(rateLimitHandler.Status))

	return mux
}

// handleInventoryRoute обрабатывает маршруты для коллекции инвентаря
func handleInventoryRoute(handler *handlers.InventoryHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.List(w, r)
		case http.MethodPost:
			handler.Create(w, r)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// handleInventoryItemRoute обрабатывает маршруты для отдельной позиции инвентаря
func handleInventoryItemRoute(handler *handlers.InventoryHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/reorder") {
			// Дозаказ позиции
			if r.Method == http.MethodPost {
				handler.Reorder(w, r)
			} else {
				writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
			return
		}

		switch r.Method {
		case http.MethodGet:
			handler.Get(w, r)
		case http.MethodPut:
			handler.Update(w, r)
		case http.MethodDelete:
			handler.Delete(w, r)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// corsMiddleware добавляет CORS заголовки
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// writeErrorResponse отправляет JSON ошибку из роутера
func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"error":%q,"message":%q}`, http.StatusText(statusCode), message)
}
