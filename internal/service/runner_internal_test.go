package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/UnknownOlympus/cartograph/internal/browser"
	"github.com/UnknownOlympus/cartograph/internal/geocoding"
	"github.com/UnknownOlympus/cartograph/internal/metrics"
	"github.com/UnknownOlympus/cartograph/internal/models"
	"github.com/UnknownOlympus/cartograph/internal/repository"
	"github.com/UnknownOlympus/cartograph/internal/spreadsheet"
	"github.com/UnknownOlympus/cartograph/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const mapURL = "https://www.bing.com/maps"

type fixture struct {
	loader   *mocks.AddressLoader
	session  *mocks.Session
	resolver *mocks.Resolver
	box      *mocks.SearchBox
	metrics  *metrics.Metrics
	output   string
	delays   []time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		loader:   mocks.NewAddressLoader(t),
		session:  mocks.NewSession(t),
		resolver: mocks.NewResolver(t),
		box:      mocks.NewSearchBox(t),
		metrics:  metrics.NewMetrics(prometheus.NewRegistry()),
		output:   filepath.Join(t.TempDir(), "Address_Results.csv"),
	}
}

func (f *fixture) runner(writer ResultWriter, opts ...Option) *Runner {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	r := NewRunner(logger, f.loader, writer, f.session, f.resolver, f.metrics,
		1500*time.Millisecond, 3*time.Second, opts...)
	r.sleep = func(_ context.Context, d time.Duration) error {
		f.delays = append(f.delays, d)
		return nil
	}
	return r
}

func (f *fixture) expectReadySession() {
	f.session.On("Open", mock.Anything).Return(nil).Once()
	f.session.On("SearchBox", mock.Anything).Return(f.box, nil).Once()
	f.session.On("Close").Return().Once()
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun_MixedOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	f.loader.On("LoadAddresses").Return([]string{"first", "second", "third"}, nil).Once()
	f.expectReadySession()
	f.session.On("CurrentURL", mock.Anything).Return(mapURL, nil).Once()
	f.session.On("CurrentURL", mock.Anything).Return(mapURL+"?cp=1~2", nil).Once()
	f.session.On("CurrentURL", mock.Anything).Return(mapURL+"?cp=1~2", nil).Once()

	f.resolver.On("Resolve", mock.Anything, mock.Anything, f.box, "first", mapURL).
		Return(&models.Coordinates{Latitude: 1, Longitude: 2}, nil).Once()
	f.resolver.On("Resolve", mock.Anything, mock.Anything, f.box, "second", mapURL+"?cp=1~2").
		Return(nil, geocoding.ErrNoResult).Once()
	f.resolver.On("Resolve", mock.Anything, mock.Anything, f.box, "third", mapURL+"?cp=1~2").
		Return(&models.Coordinates{Latitude: 3.25, Longitude: -4.5}, nil).Once()

	summary, err := f.runner(repository.NewCSVWriter(f.output)).Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, Summary{Succeeded: 2, Total: 3}, summary)
	assert.Equal(t,
		"Address,Latitude,Longitude,Status\n"+
			"first,1,2,success\n"+
			"second,,,fail\n"+
			"third,3.25,-4.5,success\n",
		readOutput(t, f.output))

	require.Len(t, f.delays, 2, "no delay after the last address")
	for _, d := range f.delays {
		assert.GreaterOrEqual(t, d, 1500*time.Millisecond)
		assert.Less(t, d, 3*time.Second)
	}

	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.AddressesProcessed.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.AddressesProcessed.WithLabelValues("fail")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(f.metrics.AddressesTotal), 0)
	f.session.AssertNumberOfCalls(t, "Close", 1)
}

func TestRun_SearchBoxNotFound(t *testing.T) {
	f := newFixture(t)

	f.loader.On("LoadAddresses").Return([]string{"first", "second"}, nil).Once()
	f.session.On("Open", mock.Anything).Return(nil).Once()
	f.session.On("SearchBox", mock.Anything).Return(nil, browser.ErrSearchBoxNotFound).Once()
	f.session.On("Close").Return().Once()

	summary, err := f.runner(repository.NewCSVWriter(f.output)).Run(t.Context())

	require.ErrorIs(t, err, browser.ErrSearchBoxNotFound)
	assert.Equal(t, Summary{}, summary)
	assert.Equal(t, "Address,Latitude,Longitude,Status\n", readOutput(t, f.output))
	f.session.AssertNumberOfCalls(t, "Close", 1)
}

func TestRun_SessionOpenFails(t *testing.T) {
	f := newFixture(t)

	f.loader.On("LoadAddresses").Return([]string{"first"}, nil).Once()
	f.session.On("Open", mock.Anything).Return(assert.AnError).Once()
	f.session.On("Close").Return().Once()

	_, err := f.runner(repository.NewCSVWriter(f.output)).Run(t.Context())

	require.ErrorIs(t, err, assert.AnError)
	require.ErrorContains(t, err, "failed to open browser session")
	assert.Equal(t, "Address,Latitude,Longitude,Status\n", readOutput(t, f.output))
}

func TestRun_MissingColumn(t *testing.T) {
	f := newFixture(t)
	colErr := &spreadsheet.ColumnError{Column: "Address", Available: []string{"Street"}}

	f.loader.On("LoadAddresses").Return(nil, colErr).Once()
	f.session.On("Close").Return().Once()

	_, err := f.runner(repository.NewCSVWriter(f.output)).Run(t.Context())

	var target *spreadsheet.ColumnError
	require.ErrorAs(t, err, &target)
	assert.NoFileExists(t, f.output)
}

func TestRun_OutputFailures(t *testing.T) {
	t.Run("initialize fails", func(t *testing.T) {
		f := newFixture(t)
		writer := mocks.NewResultWriter(t)

		f.loader.On("LoadAddresses").Return([]string{"first"}, nil).Once()
		writer.On("Initialize").Return(assert.AnError).Once()
		f.session.On("Close").Return().Once()

		_, err := f.runner(writer).Run(t.Context())

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to initialize output")
	})

	t.Run("append fails", func(t *testing.T) {
		f := newFixture(t)
		writer := mocks.NewResultWriter(t)

		f.loader.On("LoadAddresses").Return([]string{"first", "second"}, nil).Once()
		writer.On("Initialize").Return(nil).Once()
		writer.On("Append", mock.Anything).Return(assert.AnError).Once()
		writer.On("Close").Return(nil).Once()
		f.expectReadySession()
		f.session.On("CurrentURL", mock.Anything).Return(mapURL, nil).Once()
		f.resolver.On("Resolve", mock.Anything, mock.Anything, f.box, "first", mapURL).
			Return(nil, geocoding.ErrNoResult).Once()

		summary, err := f.runner(writer).Run(t.Context())

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to write result")
		assert.Equal(t, 0, summary.Total)
	})
}

func TestRun_Fallback(t *testing.T) {
	f := newFixture(t)
	provider := mocks.NewProvider(t)

	f.loader.On("LoadAddresses").Return([]string{"hidden", "lost"}, nil).Once()
	f.expectReadySession()
	f.session.On("CurrentURL", mock.Anything).Return(mapURL, nil).Twice()
	f.resolver.On("Resolve", mock.Anything, mock.Anything, f.box, mock.Anything, mapURL).
		Return(nil, geocoding.ErrNoResult).Twice()
	provider.On("Geocode", mock.Anything, "hidden").
		Return(&models.Coordinates{Latitude: 10, Longitude: 20}, nil).Once()
	provider.On("Geocode", mock.Anything, "lost").Return(nil, assert.AnError).Once()

	summary, err := f.runner(repository.NewCSVWriter(f.output), WithFallback(provider)).Run(t.Context())

	require.NoError(t, err)
	assert.Equal(t, Summary{Succeeded: 1, Total: 2}, summary)
	assert.Equal(t,
		"Address,Latitude,Longitude,Status\nhidden,10,20,success\nlost,,,fail\n",
		readOutput(t, f.output))
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FallbackLookups.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FallbackLookups.WithLabelValues("fail")), 0)
}

func TestRun_StoreErrorsAreNotFatal(t *testing.T) {
	f := newFixture(t)
	store := mocks.NewResultStore(t)

	f.loader.On("LoadAddresses").Return([]string{"first", "second"}, nil).Once()
	f.expectReadySession()
	f.session.On("CurrentURL", mock.Anything).Return(mapURL, nil).Twice()
	f.resolver.On("Resolve", mock.Anything, mock.Anything, f.box, mock.Anything, mapURL).
		Return(&models.Coordinates{Latitude: 1, Longitude: 1}, nil).Twice()
	store.On("SaveResult", mock.Anything, mock.MatchedBy(func(r models.Result) bool {
		return r.Address == "first"
	})).Return(assert.AnError).Once()
	store.On("SaveResult", mock.Anything, mock.MatchedBy(func(r models.Result) bool {
		return r.Address == "second"
	})).Return(nil).Once()

	summary, err := f.runner(repository.NewCSVWriter(f.output), WithStore(store)).Run(t.Context())

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.StoreErrors), 0)
}

func TestRun_CurrentURLFailureRecordsFail(t *testing.T) {
	f := newFixture(t)

	f.loader.On("LoadAddresses").Return([]string{"first"}, nil).Once()
	f.expectReadySession()
	f.session.On("CurrentURL", mock.Anything).Return("", assert.AnError).Once()

	summary, err := f.runner(repository.NewCSVWriter(f.output)).Run(t.Context())

	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1}, summary)
	assert.Equal(t, "Address,Latitude,Longitude,Status\nfirst,,,fail\n", readOutput(t, f.output))
	f.resolver.AssertNumberOfCalls(t, "Resolve", 0)
}

func TestRun_CurrentURLBlocksRecordsFail(t *testing.T) {
	f := newFixture(t)

	f.loader.On("LoadAddresses").Return([]string{"first"}, nil).Once()
	f.expectReadySession()
	f.session.On("CurrentURL", mock.Anything).Return(func(urlCtx context.Context) (string, error) {
		<-urlCtx.Done()
		return "", urlCtx.Err()
	}).Once()

	r := f.runner(repository.NewCSVWriter(f.output))
	r.urlTimeout = 20 * time.Millisecond

	summary, err := r.Run(t.Context())

	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1}, summary)
	assert.Equal(t, "Address,Latitude,Longitude,Status\nfirst,,,fail\n", readOutput(t, f.output))
	f.resolver.AssertNumberOfCalls(t, "Resolve", 0)
}

func TestRun_CancelledDuringDelay(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	f.loader.On("LoadAddresses").Return([]string{"first", "second"}, nil).Once()
	f.expectReadySession()
	f.session.On("CurrentURL", mock.Anything).Return(mapURL, nil).Once()
	f.resolver.On("Resolve", mock.Anything, mock.Anything, f.box, "first", mapURL).
		Return(&models.Coordinates{Latitude: 1, Longitude: 1}, nil).Once()

	r := f.runner(repository.NewCSVWriter(f.output))
	r.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	summary, err := r.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Summary{Succeeded: 1, Total: 1}, summary)
	assert.Equal(t, "Address,Latitude,Longitude,Status\nfirst,1,1,success\n", readOutput(t, f.output))
	f.session.AssertNumberOfCalls(t, "Close", 1)
}

func TestNextDelay(t *testing.T) {
	r := &Runner{delayMin: time.Second, delayMax: 2 * time.Second}
	for range 100 {
		d := r.nextDelay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 2*time.Second)
	}

	r = &Runner{delayMin: time.Second, delayMax: time.Second}
	assert.Equal(t, time.Second, r.nextDelay())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, "Київ", truncate("Київ, вулиця", 4))
}

func TestSleep(t *testing.T) {
	require.NoError(t, sleep(t.Context(), time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
}
