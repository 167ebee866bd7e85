package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "pos.db", cfg.DB.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.DB.SQLiteBusyTimeout)
	assert.Equal(t, LockKeyed, cfg.Lock.Mode)
	assert.Equal(t, CacheMemory, cfg.Cache.Driver)
	assert.Equal(t, EventsLog, cfg.Events.Driver)
	assert.Equal(t, "0.16", cfg.Sales.DefaultTaxRate.String())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("DB_DRIVER", "POSTGRES")
	v.Set("LOCK_MODE", "global")
	v.Set("LOCK_TIMEOUT_MS", "250")
	v.Set("KAFKA_BROKERS", "k1:9092, k2:9092,")
	v.Set("EVENTS_DRIVER", "kafka")
	v.Set("DEFAULT_TAX_RATE", "0.08")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, LockGlobal, cfg.Lock.Mode)
	assert.Equal(t, 250*time.Millisecond, cfg.Lock.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Brokers)
	assert.Equal(t, "0.08", cfg.Sales.DefaultTaxRate.String())
}

func TestFromViper_Invalid(t *testing.T) {
	cases := map[string]string{
		"DB_DRIVER":        "mysql",
		"LOCK_MODE":        "optimistic",
		"CACHE_DRIVER":     "memcached",
		"EVENTS_DRIVER":    "nats",
		"DEFAULT_TAX_RATE": "1.5",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			v := viper.New()
			v.Set(key, val)
			_, err := fromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestDSN_EscapesPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "pos", Password: "p@ss:w/rd", DBName: "pos", SSLMode: "require"}
	assert.Equal(t, "postgres://pos:p%40ss%3Aw%2Frd@db:5432/pos?sslmode=require", c.DSN())
}
