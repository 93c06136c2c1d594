package forecast

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockledger/internal/application/inventory"
)

var _ inventory.DemandPredictor = (*CachedPredictor)(nil)

const keyPrefix = "forecast:demand:"

// NewRedisClient crea el cliente Redis de la caché de pronósticos.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// CachedPredictor decora un DemandPredictor con caché en Redis. Solo se guardan pronósticos exitosos;
// si Redis falla se consulta directamente al predictor.
type CachedPredictor struct {
	next   inventory.DemandPredictor
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCachedPredictor construye el decorador.
func NewCachedPredictor(next inventory.DemandPredictor, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedPredictor {
	return &CachedPredictor{next: next, client: client, ttl: ttl, log: log}
}

// PredictDemand devuelve el pronóstico cacheado o lo pide al predictor y lo guarda por ttl.
func (c *CachedPredictor) PredictDemand(ctx context.Context, productID string) (float64, error) {
	key := keyPrefix + productID

	cached, err := c.client.Get(ctx, key).Float64()
	switch {
	case err == nil:
		return cached, nil
	case err != redis.Nil:
		c.log.Warn().Err(err).Str("product_id", productID).Msg("caché de pronósticos no disponible")
	}

	value, err := c.next.PredictDemand(ctx, productID)
	if err != nil {
		return 0, err
	}
	if err := c.client.Set(ctx, key, strconv.FormatFloat(value, 'f', -1, 64), c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("product_id", productID).Msg("no se pudo guardar el pronóstico en caché")
	}
	return value, nil
}
