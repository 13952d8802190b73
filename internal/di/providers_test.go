package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	internalrepo "BandView/internal/repository"
	"BandView/pkg/cache"
	"BandView/pkg/config"
	applogger "BandView/pkg/logger"
)

func writeSeries(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ohlcv.json")
	body := `[{"time": 1000, "close": 1}, {"time": 2000, "close": 2}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestProvideInitialSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Bollinger.Length = 14
	s, err := ProvideInitialSettings(cfg)
	require.NoError(t, err)
	assert.Equal(t, 14, s.Inputs.Length)
	assert.Equal(t, models.DefaultSettings().Style, s.Style)

	cfg.Bollinger.Length = 0
	_, err = ProvideInitialSettings(cfg)
	assert.ErrorIs(t, err, models.ErrInvalidSettings)
}

func TestProvideSeriesStoreBackends(t *testing.T) {
	l := applogger.NewNop()
	path := writeSeries(t)

	cfg := config.Default()
	cfg.Series.Path = path
	store, err := ProvideSeriesStore(cfg, l, nil, ProvideMemorySeriesStore())
	require.NoError(t, err)
	assert.IsType(t, &internalrepo.FileSeriesStore{}, store)

	cfg.Series.Backend = config.BackendHTTP
	cfg.Series.URL = "http://127.0.0.1:1/ohlcv.json"
	store, err = ProvideSeriesStore(cfg, l, nil, ProvideMemorySeriesStore())
	require.NoError(t, err)
	assert.IsType(t, &internalrepo.HTTPSeriesStore{}, store)

	cfg.Series.Backend = "ftp"
	_, err = ProvideSeriesStore(cfg, l, nil, ProvideMemorySeriesStore())
	assert.Error(t, err)
}

func TestProvideSeriesStoreSeedsMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Series.Backend = config.BackendMemory
	cfg.Series.Path = writeSeries(t)
	cfg.Series.Symbol = "BTC"
	cfg.Series.Timeframe = "1m"
	mem := ProvideMemorySeriesStore()

	store, err := ProvideSeriesStore(cfg, applogger.NewNop(), nil, mem)
	require.NoError(t, err)
	got, err := store.Series(context.Background(), "BTC", domrepo.TF1m)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	assert.NotNil(t, ProvideSeriesFeed(cfg, mem))
	cfg.Series.Backend = config.BackendFile
	assert.Nil(t, ProvideSeriesFeed(cfg, mem))
}

func TestProvideOptionalInfrastructure(t *testing.T) {
	cfg := config.Default()

	c, err := ProvideCache(cfg)
	require.NoError(t, err)
	assert.Nil(t, c, "cache disabled by default")

	cfg.Cache.Enabled = true
	c, err = ProvideCache(cfg)
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, c)
	require.NoError(t, c.Close())

	p, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.IsType(t, internalrepo.NoopBandPublisher{}, ProvideBandPublisher(p))

	consumer, err := ProvideKafkaConsumer(cfg, applogger.NewNop(), ProvideMemorySeriesStore(), nil)
	require.NoError(t, err)
	assert.Nil(t, consumer)

	ch, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)

	assert.Nil(t, ProvideRateLimiter(cfg))
	cfg.RateLimit.Enabled = true
	assert.NotNil(t, ProvideRateLimiter(cfg))
}

func TestInitializeAppFileBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Series.Path = writeSeries(t)
	cfg.Logger.Output = "stderr"
	cfg.Server.Port = 0

	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	assert.NotNil(t, app)
}
