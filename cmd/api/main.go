package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"quiz-auth/internal/config"
	"quiz-auth/internal/db"
	"quiz-auth/internal/email"
	apihttp "quiz-auth/internal/http"
	"quiz-auth/internal/modelproxy"
	"quiz-auth/internal/repository"
	"quiz-auth/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("document store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	userRepo := repository.NewDocUserRepository(store)
	codeRepo := repository.NewDocCodeRepository(store)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPUser != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	} else {
		logger.Warn("EMAIL_USER not configured, codes will not be delivered")
	}

	tokens := newTokenIssuer(cfg, logger)

	codeSvc := service.NewCodeService(logger, codeRepo, userRepo, emailSender)
	credSvc := service.NewCredentialService(logger, userRepo, codeSvc, service.NewBcryptHasher(cfg.BcryptCost), tokens)
	authHandler := apihttp.NewAuthHandler(logger, credSvc, codeSvc)

	var modelHandler *apihttp.ModelHandler
	if cfg.ModelAPIBaseURL != "" {
		modelHandler = apihttp.NewModelHandler(logger, modelproxy.NewHTTPClient(cfg.ModelAPIBaseURL, cfg.ModelAPIToken, logger))
	}

	router := apihttp.NewRouter(logger, authHandler, modelHandler, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("store", cfg.StoreDriver),
		zap.Bool("model_proxy", modelHandler != nil),
		zap.Bool("token_issuer", tokens != nil),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

// openStore abre el backend elegido por STORE_DRIVER. El cierre devuelto libera conexiones.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.DocumentStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPgDocumentStore(pool), pool.Close, nil
	case config.StoreMemory:
		logger.Warn("using in-memory document store, data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(ctxPing).Err(); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return repository.NewRedisStore(client, cfg.RedisKeyPrefix), func() { _ = client.Close() }, nil
	}
}

// newTokenIssuer prioriza Firebase, luego HS256. nil deja el login sin token.
func newTokenIssuer(cfg *config.Config, logger *zap.Logger) service.TokenIssuer {
	if cfg.FirebaseCredentialsFile != "" {
		issuer, err := service.LoadFirebaseTokenIssuer(cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Fatal("firebase credentials", zap.Error(err))
		}
		return issuer
	}
	if cfg.JWTSecret != "" {
		return service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	}
	logger.Warn("no token issuer configured, login returns an empty token")
	return nil
}
