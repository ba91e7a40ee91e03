package collector

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForexLens/internal/model"
)

var (
	eurusd = model.NewPair("EUR", "USD")
	gbpusd = model.NewPair("GBP", "USD")
	fixed  = time.Date(2024, 4, 10, 15, 0, 0, 0, time.UTC)
)

// stubFetcher counts calls and serves fixed bars.
type stubFetcher struct {
	bars  map[model.Pair][]model.Bar
	err   error
	calls int
}

func (s *stubFetcher) Name() string { return "stub" }

func (s *stubFetcher) FetchDailySeries(_ context.Context, pair model.Pair) (*model.PriceSeries, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	bars, ok := s.bars[pair]
	if !ok {
		return nil, model.ErrMissingSeries
	}
	return model.NewPriceSeries(pair, bars)
}

func (s *stubFetcher) FetchQuote(_ context.Context, pair model.Pair) (model.Quote, error) {
	if s.err != nil {
		return model.Quote{}, s.err
	}
	bars, ok := s.bars[pair]
	if !ok {
		return model.Quote{}, model.ErrMissingSeries
	}
	return model.Quote{Pair: pair, Rate: bars[len(bars)-1].Close, Time: fixed}, nil
}

func sampleBars() []model.Bar {
	return []model.Bar{
		{Time: time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC), Open: 1.08, High: 1.085, Low: 1.075, Close: 1.082},
		{Time: time.Date(2024, 4, 9, 0, 0, 0, 0, time.UTC), Open: 1.082, High: 1.09, Low: 1.08, Close: 1.0875},
	}
}

func TestCSVStore_SaveAndLoad(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "data"))
	s, err := model.NewPriceSeries(eurusd, sampleBars())
	require.NoError(t, err)

	require.NoError(t, store.Save(s))
	assert.FileExists(t, filepath.Join(store.Dir, "EUR_USD_daily.csv"))

	loaded, err := store.Load(eurusd)
	require.NoError(t, err)
	assert.Equal(t, s.Bars(), loaded.Bars())

	q, err := store.FetchQuote(context.Background(), eurusd)
	require.NoError(t, err)
	assert.Equal(t, 1.0875, q.Rate)
}

func TestCSVStore_Missing(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	_, err := store.Load(gbpusd)
	assert.ErrorIs(t, err, model.ErrMissingSeries)
}

func TestCSVStore_BadRow(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	data := "date,open,high,low,close\n2024-04-08,1.0,1.1,0.9,abc\n"
	require.NoError(t, os.WriteFile(store.Path(eurusd), []byte(data), 0644))
	_, err := store.Load(eurusd)
	assert.Error(t, err)
}

func TestCollector_Collect(t *testing.T) {
	stub := &stubFetcher{bars: map[model.Pair][]model.Bar{eurusd: sampleBars()}}
	store := NewCSVStore(t.TempDir())
	c := NewCollector(stub, store)

	batch := c.Collect(context.Background(), []model.Pair{eurusd, gbpusd})
	require.Len(t, batch.Series, 1)
	assert.NotNil(t, batch.Get(eurusd))
	assert.Nil(t, batch.Get(gbpusd))
	assert.ErrorIs(t, batch.Missing[gbpusd], model.ErrMissingSeries)
	assert.FileExists(t, store.Path(eurusd))
}

func TestCollector_FallsBackToSavedData(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	s, err := model.NewPriceSeries(eurusd, sampleBars())
	require.NoError(t, err)
	require.NoError(t, store.Save(s))

	c := NewCollector(&stubFetcher{err: errors.New("network down")}, store)
	batch := c.Collect(context.Background(), []model.Pair{eurusd, gbpusd})
	require.Len(t, batch.Series, 1)
	assert.Equal(t, 2, batch.Get(eurusd).Len())
	assert.ErrorIs(t, batch.Missing[gbpusd], model.ErrMissingSeries)
}

func TestCollector_Quotes(t *testing.T) {
	c := NewCollector(&stubFetcher{bars: map[model.Pair][]model.Bar{eurusd: sampleBars()}}, nil)
	quotes, missing := c.Quotes(context.Background(), []model.Pair{eurusd, gbpusd})
	require.Len(t, quotes, 1)
	assert.Equal(t, 1.0875, quotes[0].Rate)
	assert.Contains(t, missing, gbpusd)
}

func TestMockFetcher(t *testing.T) {
	m := NewMockFetcher(map[model.Pair]float64{eurusd: 1.1}, 250)
	m.Now = func() time.Time { return fixed }

	s, err := m.FetchDailySeries(context.Background(), eurusd)
	require.NoError(t, err)
	assert.Equal(t, 250, s.Len())
	assert.True(t, s.Last().Time.Before(fixed))

	_, err = m.FetchQuote(context.Background(), gbpusd)
	assert.ErrorIs(t, err, model.ErrMissingSeries)
}

func TestCachingFetcher_NilRedis(t *testing.T) {
	stub := &stubFetcher{bars: map[model.Pair][]model.Bar{eurusd: sampleBars()}}
	c := NewCachingFetcher(nil, 0, stub, "")
	assert.Equal(t, time.Hour, c.ttl)
	assert.Equal(t, "forexlens", c.namespace)

	_, err := c.FetchDailySeries(context.Background(), eurusd)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
}

func TestCachingFetcher_CacheMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	bars := sampleBars()
	expectedJSON, _ := json.Marshal(bars)
	mock.ExpectGet("forexlens:stub:daily:EUR_USD").RedisNil()
	mock.ExpectSet("forexlens:stub:daily:EUR_USD", expectedJSON, 30*time.Minute).SetVal("OK")

	stub := &stubFetcher{bars: map[model.Pair][]model.Bar{eurusd: bars}}
	c := NewCachingFetcher(rdb, 30*time.Minute, stub, "forexlens")

	s, err := c.FetchDailySeries(context.Background(), eurusd)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, stub.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingFetcher_CacheHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cached, _ := json.Marshal(sampleBars())
	mock.ExpectGet("forexlens:stub:daily:EUR_USD").SetVal(string(cached))

	stub := &stubFetcher{}
	c := NewCachingFetcher(rdb, time.Hour, stub, "")

	s, err := c.FetchDailySeries(context.Background(), eurusd)
	require.NoError(t, err)
	assert.Equal(t, 1.0875, s.Last().Close)
	assert.Equal(t, 0, stub.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingFetcher_CorruptedCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	bars := sampleBars()
	expectedJSON, _ := json.Marshal(bars)
	mock.ExpectGet("forexlens:stub:daily:EUR_USD").SetVal("invalid json")
	mock.ExpectDel("forexlens:stub:daily:EUR_USD").SetVal(1)
	mock.ExpectSet("forexlens:stub:daily:EUR_USD", expectedJSON, time.Hour).SetVal("OK")

	stub := &stubFetcher{bars: map[model.Pair][]model.Bar{eurusd: bars}}
	c := NewCachingFetcher(rdb, time.Hour, stub, "")

	_, err := c.FetchDailySeries(context.Background(), eurusd)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingFetcher_InnerError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	innerErr := errors.New("upstream down")
	mock.ExpectGet("forexlens:stub:daily:EUR_USD").RedisNil()

	c := NewCachingFetcher(rdb, time.Hour, &stubFetcher{err: innerErr}, "")
	_, err := c.FetchDailySeries(context.Background(), eurusd)
	assert.ErrorIs(t, err, innerErr)
}
