package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 100, cfg.Feed.MaxLimit)
	assert.Equal(t, 20, cfg.Feed.DefaultLimit)
	assert.Equal(t, 10, cfg.SearchHistory.Size)
	assert.Equal(t, StorageBackendLocal, cfg.Storage.Backend)
	assert.Equal(t, "http://localhost:3001", cfg.FileStorage.URL)
	assert.Equal(t, 15*time.Minute, cfg.Downloads.SignedURLTTL)
	assert.True(t, cfg.Requests.PrivateSetsPublic)
	assert.Equal(t, "admin", cfg.Auth.AdminRole)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("FEED_MAX_LIMIT", "50")
	t.Setenv("FILESTORAGE_URL", "http://files:3001/")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("JOBS_RETRY_DELAY", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Feed.MaxLimit)
	assert.Equal(t, "http://files:3001", cfg.FileStorage.URL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.Jobs.RetryDelay)
}
