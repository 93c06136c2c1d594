package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockledger/internal/application/inventory"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/jhoicas/stockledger/internal/infrastructure/forecast"
	"github.com/jhoicas/stockledger/internal/infrastructure/memory"
	"github.com/jhoicas/stockledger/internal/infrastructure/notification"
	"github.com/jhoicas/stockledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stockledger/internal/interfaces/http"
	"github.com/jhoicas/stockledger/pkg/config"
	"github.com/jhoicas/stockledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	// Motor del ledger
	var (
		txRunner  inventory.TxRunner
		stocks    repository.StockRepository
		movements repository.StockMovementRepository
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		txRunner, stocks, movements = store, store.Stocks(), store.Movements()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		txRunner = postgres.NewTxRunner(pool)
		stocks = postgres.NewStockRepository(pool)
		movements = postgres.NewStockMovementRepository(pool)
	}

	// Colaboradores externos opcionales
	var notifier inventory.Notifier
	if cfg.Notify.BaseURL != "" {
		notifier = notification.NewHTTPNotifier(cfg.Notify.BaseURL, cfg.Notify.Timeout)
	} else {
		log.Warn().Msg("NOTIFY_BASE_URL vacío: avisos de stock bajo desactivados")
	}
	predictor := buildPredictor(ctx, cfg, log.Component("forecast"))

	stockSvc := inventory.NewStockService(txRunner, stocks, movements, notifier, log.Component("stock"))
	replenishmentUC := inventory.NewReplenishmentUseCase(stocks, movements, predictor, cfg.Predictor.Concurrency,
		log.Component("replenishment"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Stock:         stockSvc,
		Replenishment: replenishmentUC,
		JWTSecret:     cfg.JWT.Secret,
		JWTIssuer:     cfg.JWT.Issuer,
		Log:           log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// buildPredictor arma el cliente de predicción con caché Redis opcional; nil si no hay servicio configurado.
func buildPredictor(ctx context.Context, cfg *config.Config, log zerolog.Logger) inventory.DemandPredictor {
	if cfg.Predictor.BaseURL == "" {
		log.Warn().Msg("PREDICTOR_BASE_URL vacío: sugerencias de compra solo con heurística")
		return nil
	}
	var predictor inventory.DemandPredictor = forecast.NewHTTPPredictor(cfg.Predictor.BaseURL, cfg.Predictor.Timeout)
	if cfg.Redis.Addr == "" {
		return predictor
	}
	client := forecast.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis no disponible, pronósticos sin caché")
		_ = client.Close()
		return predictor
	}
	return forecast.NewCachedPredictor(predictor, client, cfg.Predictor.CacheTTL, log)
}
