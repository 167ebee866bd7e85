package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// Prefijos de las claves en Redis: el disponible y su generación.
const (
	KeyPrefix    = "pos:avail:"
	GenKeyPrefix = "pos:gen:"
)

// setIfGeneration escribe KEYS[1] solo si la generación en KEYS[2] sigue siendo ARGV[2].
var setIfGeneration = redis.NewScript(`
local g = redis.call('GET', KEYS[2]) or '0'
if g ~= ARGV[2] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// RedisConfig describe la conexión a Redis.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NewRedisClient abre el cliente y verifica la conexión con PING.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Redis comparte los disponibles entre terminales. Los errores de Redis se
// registran y se tratan como fallo de caché: la lectura cae al almacén.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	log    zerolog.Logger
}

var _ inventory.AvailabilityCache = (*Redis)(nil)

func NewRedis(client redis.Cmdable, ttl time.Duration, log zerolog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, log: log}
}

// Key arma la clave de Redis de un par producto/sucursal.
func Key(k entity.StockKey) string {
	return KeyPrefix + k.ProductID + ":" + k.BranchID
}

// GenKey arma la clave de generación. No expira: reiniciarla a 0 permitiría
// aceptar un Set con una generación vieja.
func GenKey(k entity.StockKey) string {
	return GenKeyPrefix + k.ProductID + ":" + k.BranchID
}

func (r *Redis) Get(ctx context.Context, key entity.StockKey) (int64, bool) {
	v, err := r.client.Get(ctx, Key(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Str("key", Key(key)).Msg("cache get")
		}
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.log.Warn().Err(err).Str("key", Key(key)).Msg("valor de caché corrupto")
		return 0, false
	}
	return n, true
}

// Generation lee la generación de la clave; ante un error de Redis la lectura no puebla la caché.
func (r *Redis) Generation(ctx context.Context, key entity.StockKey) (uint64, bool) {
	v, err := r.client.Get(ctx, GenKey(key)).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, true
		}
		r.log.Warn().Err(err).Str("key", GenKey(key)).Msg("cache generation")
		return 0, false
	}
	return v, true
}

func (r *Redis) Set(ctx context.Context, key entity.StockKey, available int64, gen uint64) {
	keys := []string{Key(key), GenKey(key)}
	if err := setIfGeneration.Run(ctx, r.client, keys, available, gen, r.ttl.Milliseconds()).Err(); err != nil {
		r.log.Warn().Err(err).Str("key", Key(key)).Msg("cache set")
	}
}

// Invalidate borra el valor y avanza la generación en la misma transacción MULTI.
func (r *Redis) Invalidate(ctx context.Context, keys ...entity.StockKey) {
	if len(keys) == 0 {
		return
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = Key(k)
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Incr(ctx, GenKey(k))
		}
		p.Del(ctx, names...)
		return nil
	})
	if err != nil {
		r.log.Warn().Err(err).Strs("keys", names).Msg("cache invalidate")
	}
}
