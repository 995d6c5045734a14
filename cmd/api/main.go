package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/finvault/finvault-api/internal/config"
	"github.com/finvault/finvault-api/internal/domain/fraud"
	"github.com/finvault/finvault-api/internal/domain/kyc"
	"github.com/finvault/finvault-api/internal/domain/limits"
	"github.com/finvault/finvault-api/internal/domain/refund"
	"github.com/finvault/finvault-api/internal/domain/schedule"
	"github.com/finvault/finvault-api/internal/domain/transaction"
	"github.com/finvault/finvault-api/internal/domain/transfer"
	"github.com/finvault/finvault-api/internal/domain/user"
	"github.com/finvault/finvault-api/internal/domain/wallet"
	"github.com/finvault/finvault-api/internal/events"
	"github.com/finvault/finvault-api/internal/middleware"
	"github.com/finvault/finvault-api/internal/pkg/database"
	"github.com/finvault/finvault-api/internal/pkg/email"
	"github.com/finvault/finvault-api/internal/pkg/jwt"
	pkgresponse "github.com/finvault/finvault-api/internal/pkg/response"
	"github.com/finvault/finvault-api/internal/pkg/settlement"
	"github.com/finvault/finvault-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting FinVault API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	docStorage, err := storage.NewS3Storage(storage.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create document storage")
	}

	rail := settlement.NewClient(settlement.Config{
		BaseURL: cfg.SettlementBaseURL,
		APIKey:  cfg.SettlementAPIKey,
		Timeout: cfg.SettlementTimeout,
	})

	emailService := email.NewService(email.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	})
	defer emailService.Close()

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	walletRepo := wallet.NewRepository(db)
	ledgerRepo := transaction.NewRepository(db)
	fraudRepo := fraud.NewRepository(db)
	limitsRepo := limits.NewRepository(db)
	kycRepo := kyc.NewRepository(db)
	scheduleRepo := schedule.NewRepository(db)

	// ---------- Event hub ----------
	hub := events.NewHub(redis)
	go hub.Run()
	defer hub.Close()

	// ---------- Services ----------
	walletService := wallet.NewService(walletRepo)
	kycService := kyc.NewService(kycRepo, docStorage)
	limitsService := limits.NewService(limitsRepo, kycService, walletRepo)

	monitor := fraud.NewMonitor(fraud.DefaultRules(ledgerRepo, fraud.RuleOptions{
		AmountCeiling:  mustDecimal(cfg.FraudAmountCeiling),
		VelocityMax:    cfg.FraudVelocityCount,
		VelocityWindow: cfg.FraudVelocityWindow,
		DrainFraction:  mustDecimal(cfg.FraudDrainFraction),
		QuietHourStart: cfg.FraudQuietHourStart,
		QuietHourEnd:   cfg.FraudQuietHourEnd,
		QuietThreshold: mustDecimal(cfg.FraudQuietHourThreshold),
	}), fraudRepo, walletRepo)

	refundNotifier := &refundEmailNotifier{users: userRepo, emails: emailService}
	refundService := refund.NewService(walletRepo, ledgerRepo, rail, refundNotifier, limitsService)

	transferNotifier := transfer.NewEmailNotifier(userRepo, emailService)
	executor := transfer.NewLedgerExecutor(walletRepo, ledgerRepo, refundService, monitor, limitsService, hub, rail, transferNotifier)
	pendingStore := transfer.NewRedisStore(redis)
	transferService := transfer.NewService(userRepo, walletService, limitsService, pendingStore, transferNotifier, executor, transfer.Options{
		CodeLength:     cfg.OTPCodeLength,
		CodeTTL:        cfg.OTPCodeTTL,
		MaxAttempts:    cfg.OTPMaxAttempts,
		ResendCooldown: cfg.OTPResendCooldown,
	})

	scheduleService := schedule.NewService(scheduleRepo, userRepo, walletService, executor, hub, emailService, cfg.SchedulerMaxRetries)
	scheduleWorker := schedule.NewWorker(scheduleService, cfg.SchedulerPollInterval)
	scheduleWorker.Start()
	defer scheduleWorker.Stop()

	// ---------- Handlers ----------
	walletHandler := wallet.NewHandler(walletService, cfg.DefaultCurrency)
	transactionHandler := transaction.NewHandler(ledgerRepo, func(r *http.Request, userID uuid.UUID) (uuid.UUID, error) {
		wlt, err := walletService.GetByUserID(r.Context(), userID)
		if err != nil {
			return uuid.Nil, err
		}
		return wlt.ID, nil
	})
	refundHandler := refund.NewHandler(refundService, rail)
	transferHandler := transfer.NewHandler(transferService)
	scheduleHandler := schedule.NewHandler(scheduleService)
	limitsHandler := limits.NewHandler(limitsService)
	kycHandler := kyc.NewHandler(kycService)
	fraudHandler := fraud.NewHandler(monitor)
	eventsHandler := events.NewHandler(hub, cfg.AllowedOrigins)

	authMiddleware := middleware.Auth(jwtService)
	adminMiddleware := middleware.RequireAdmin()

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	// WebSocket event stream, token may arrive as a query parameter
	r.Route("/events", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if token := req.URL.Query().Get("token"); token != "" {
					req.Header.Set("Authorization", "Bearer "+token)
				}
				next.ServeHTTP(w, req)
			})
		})
		r.Mount("/", eventsHandler.Routes(authMiddleware))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/wallet", walletHandler.Routes(authMiddleware))
		r.Mount("/transactions", transactionHandler.Routes(authMiddleware))
		r.Mount("/transfers", transferHandler.TransferRoutes(authMiddleware))
		r.Mount("/withdrawals", transferHandler.WithdrawalRoutes(authMiddleware))
		r.Mount("/deposits", refundHandler.Routes(authMiddleware))
		r.Mount("/schedules", scheduleHandler.Routes(authMiddleware))
		r.Mount("/limits", limitsHandler.Routes(authMiddleware))
		r.Mount("/kyc", kycHandler.Routes(authMiddleware))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Mount("/kyc", kycHandler.AdminRoutes(authMiddleware, adminMiddleware))
		r.Mount("/fraud", fraudHandler.Routes(authMiddleware, adminMiddleware))
		r.Mount("/limits/overrides", limitsHandler.AdminRoutes(authMiddleware, adminMiddleware))
	})

	r.Mount("/webhooks", refundHandler.WebhookRoutes())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}

// refundEmailNotifier bridges the refund service to the email queue
type refundEmailNotifier struct {
	users  user.Repository
	emails *email.Service
}

func (n *refundEmailNotifier) RefundProcessed(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency, reference string) {
	u, err := n.users.GetByID(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("resolving refund recipient failed")
		return
	}
	n.emails.Queue(u.Email, u.DisplayName, "refund_processed", "Refund processed", map[string]interface{}{
		"Name":      u.DisplayName,
		"Amount":    amount.String(),
		"Currency":  currency,
		"Reference": reference,
	})
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatal().Str("value", s).Msg("invalid decimal in configuration")
	}
	return d
}
