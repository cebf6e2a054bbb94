package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	cfg, err := Load("testdata-does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, "card_trader", cfg.Mongo.Database)
	assert.False(t, cfg.Mongo.Transactions)
	assert.Equal(t, time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, "https://api.scryfall.com", cfg.Scryfall.URL)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "memory")
	t.Setenv("PORT", "8081")
	t.Setenv("JWT_EXPIRY", "30m")
	t.Setenv("MONGODB_TRANSACTIONS", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load("testdata-does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiry)
	assert.True(t, cfg.Mongo.Transactions)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		desc string
		env  map[string]string
	}{
		{desc: "missing jwt secret", env: map[string]string{"STORE": "memory", "JWT_SECRET": ""}},
		{desc: "mongo without uri", env: map[string]string{"JWT_SECRET": "x", "STORE": "mongo", "MONGODB_URI": ""}},
		{desc: "unknown store", env: map[string]string{"JWT_SECRET": "x", "STORE": "postgres"}},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("testdata-does-not-exist.env")
			assert.Error(t, err)
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "****", mask("short"))
	assert.Equal(t, "mong****7017", mask("mongodb://localhost:27017"))
}
