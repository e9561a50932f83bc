package server

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"techstore/internal/config"
	"techstore/internal/database"
	"techstore/internal/media"
	custommiddleware "techstore/internal/middleware"
	"techstore/internal/notify"
	"techstore/internal/payment"
	"techstore/internal/repository"
	"techstore/internal/service"
	"techstore/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
	kafka  *kgo.Client

	dispatcher *notify.Dispatcher
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service) (*Server, error) {
	server := &Server{
		config: cfg,
		logger: logger,
		db:     db,
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	server.redis = redisClient

	dispatcher, err := server.newDispatcher()
	if err != nil {
		server.Close()
		return nil, err
	}
	server.dispatcher = dispatcher

	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack(logger)...)
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.CORSOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "TechStore API running"})
	})

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := db.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})

	// Initialize repositories
	sqlDB := db.DB()
	txManager := repository.NewTxManager(sqlDB)
	userRepo := repository.NewUserRepository(sqlDB)
	resetRepo := repository.NewResetTokenRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	cartRepo := repository.NewCartRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)
	reviewRepo := repository.NewReviewRepository(sqlDB)
	settingsRepo := repository.NewSettingsRepository(sqlDB)

	mediaStore := media.NewStore(cfg.Media.Root, cfg.Media.BaseURL)
	tokens := service.NewTokenIssuer(cfg.JWT.Secret, cfg.AccessTTL(), cfg.RefreshTTL())

	// Initialize services
	authService := service.NewAuthService(userRepo, resetRepo, tokens, dispatcher)
	productService := service.NewProductService(productRepo, mediaStore, logger)
	cartService := service.NewCartService(txManager, cartRepo, productRepo)
	orderService := service.NewOrderService(txManager, orderRepo, productRepo, cartRepo, userRepo, dispatcher, logger)
	reviewService := service.NewReviewService(txManager, reviewRepo, productRepo, userRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	paymentService := service.NewPaymentService(
		payment.NewStripeGateway(cfg.Stripe.SecretKey),
		orderRepo,
		userRepo,
		dispatcher,
		cfg.Stripe.Currency,
	)

	// Access control and throttling of credential endpoints
	guards := transport.NewGuards(tokens, logger)
	guards.RateLimit = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "techstore:ratelimit:auth",
	}, logger)

	// Register routes
	transport.NewUserHandler(authService, logger).RegisterRoutes(router, guards)
	transport.NewProductHandler(productService, logger).RegisterRoutes(router, guards)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, guards)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router, guards)
	transport.NewReviewHandler(reviewService, logger).RegisterRoutes(router, guards)
	transport.NewSettingsHandler(settingsService, logger).RegisterRoutes(router, guards)
	transport.NewPaymentHandler(paymentService, logger).RegisterRoutes(router, guards)
	transport.NewMediaHandler(mediaStore, logger).RegisterRoutes(router, guards)

	router.Handle("/static/*", http.StripPrefix("/static", mediaStore.FileServer()))

	server.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server, nil
}

// newDispatcher registers the post-commit hooks enabled by configuration.
func (s *Server) newDispatcher() (*notify.Dispatcher, error) {
	dispatcher := notify.NewDispatcher(s.logger)

	if s.config.Mail.Enabled() {
		mailer := notify.NewSMTPMailer(s.config.Mail)
		dispatcher.Register(notify.NewEmailNotifier(mailer, s.config.Mail.AdminEmail, s.config.Mail.FrontendURL))
		s.logger.Info("Email notifications enabled", zap.String("smtp_host", s.config.Mail.Host))
	}

	if s.config.Kafka.Enabled() {
		client, err := notify.NewKafkaClient(s.config.Kafka.Brokers, s.config.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		s.kafka = client
		dispatcher.Register(notify.NewOrderEventPublisher(client, s.config.Kafka.Topic))
		s.logger.Info("Order event publishing enabled",
			zap.Strings("brokers", s.config.Kafka.Brokers),
			zap.String("topic", s.config.Kafka.Topic),
		)
	}

	return dispatcher, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Let post-commit hooks finish before their clients go away.
	s.dispatcher.Wait()

	if s.kafka != nil {
		s.kafka.Close()
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
