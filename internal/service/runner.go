package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/UnknownOlympus/cartograph/internal/geocoding"
	"github.com/UnknownOlympus/cartograph/internal/metrics"
	"github.com/UnknownOlympus/cartograph/internal/models"
)

// AddressLoader supplies the addresses of a run, in order.
type AddressLoader interface {
	LoadAddresses() ([]string, error)
}

// ResultWriter is the output file results are appended to.
type ResultWriter interface {
	Initialize() error
	Append(result models.Result) error
	Close() error
}

// ResultStore mirrors results somewhere besides the output file.
type ResultStore interface {
	SaveResult(ctx context.Context, result models.Result) error
}

// Session is the browser session the searches run in.
type Session interface {
	Open(ctx context.Context) error
	SearchBox(ctx context.Context) (geocoding.SearchBox, error)
	CurrentURL(ctx context.Context) (string, error)
	Close()
}

// Resolver turns one address into coordinates using the search box.
type Resolver interface {
	Resolve(
		ctx context.Context,
		page geocoding.Page,
		box geocoding.SearchBox,
		address string,
		previousURL string,
	) (*models.Coordinates, error)
}

// defaultURLTimeout bounds reading the page URL before a search.
const defaultURLTimeout = 5 * time.Second

// Summary reports the outcome of a run.
type Summary struct {
	Succeeded int // Succeeded is the number of rows written with status success.
	Total     int // Total is the number of rows written.
}

// Runner geocodes every address of the input in one browser session, appending one
// row per address to the output before moving on to the next.
type Runner struct {
	log      *slog.Logger
	loader   AddressLoader
	writer   ResultWriter
	session  Session
	resolver Resolver
	metrics  *metrics.Metrics
	delayMin time.Duration
	delayMax time.Duration
	fallback geocoding.Provider
	store    ResultStore
	sleep    func(ctx context.Context, d time.Duration) error

	urlTimeout time.Duration
}

// Option configures optional Runner collaborators.
type Option func(*Runner)

// WithFallback sets a provider consulted for addresses the browser could not locate.
func WithFallback(provider geocoding.Provider) Option {
	return func(r *Runner) { r.fallback = provider }
}

// WithStore sets a store every result is mirrored to.
func WithStore(store ResultStore) Option {
	return func(r *Runner) { r.store = store }
}

// NewRunner creates a Runner. The pause between two addresses is drawn uniformly
// from [delayMin, delayMax).
func NewRunner(
	log *slog.Logger,
	loader AddressLoader,
	writer ResultWriter,
	session Session,
	resolver Resolver,
	metrics *metrics.Metrics,
	delayMin time.Duration,
	delayMax time.Duration,
	opts ...Option,
) *Runner {
	r := &Runner{
		log:      log,
		loader:   loader,
		writer:   writer,
		session:  session,
		resolver: resolver,
		metrics:  metrics,
		delayMin: delayMin,
		delayMax: delayMax,
		sleep:    sleep,

		urlTimeout: defaultURLTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run loads the addresses, prepares the output, opens the browser session and
// processes every address. The session is closed before Run returns, whatever happened.
// Errors returned by Run are fatal: missing input column, unwritable output, no search box
// or a cancelled context. Failures of single addresses are recorded as fail rows.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	defer r.session.Close()

	addresses, err := r.loader.LoadAddresses()
	if err != nil {
		return summary, fmt.Errorf("failed to load addresses: %w", err)
	}

	if err = r.writer.Initialize(); err != nil {
		return summary, fmt.Errorf("failed to initialize output: %w", err)
	}
	defer func() {
		if errClose := r.writer.Close(); errClose != nil {
			r.log.ErrorContext(ctx, "Failed to close output", "error", errClose)
		}
	}()

	r.metrics.AddressesTotal.Set(float64(len(addresses)))

	if err = r.session.Open(ctx); err != nil {
		return summary, fmt.Errorf("failed to open browser session: %w", err)
	}

	r.log.InfoContext(ctx, "Finding search box...")
	box, err := r.session.SearchBox(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to locate search box: %w", err)
	}

	r.log.InfoContext(ctx, "Processing addresses", "count", len(addresses))

	for idx, address := range addresses {
		r.log.InfoContext(ctx, "Processing address",
			"position", fmt.Sprintf("%d/%d", idx+1, len(addresses)),
			"address", truncate(address, 50))

		coords := r.geocode(ctx, box, address)
		if err = ctx.Err(); err != nil {
			return summary, err
		}

		result := models.NewResult(address, coords)
		if err = r.writer.Append(result); err != nil {
			return summary, fmt.Errorf("failed to write result: %w", err)
		}

		summary.Total++
		if result.Succeeded() {
			summary.Succeeded++
		}
		r.metrics.AddressesProcessed.WithLabelValues(string(result.Status)).Inc()
		r.mirror(ctx, result)

		if idx < len(addresses)-1 {
			delay := r.nextDelay()
			r.log.DebugContext(ctx, "Waiting before next address", "delay", delay)
			if err = r.sleep(ctx, delay); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

// geocode resolves address in the browser and, when that fails, through the fallback provider.
// It returns nil when neither found coordinates.
func (r *Runner) geocode(ctx context.Context, box geocoding.SearchBox, address string) *models.Coordinates {
	urlCtx, cancel := context.WithTimeout(ctx, r.urlTimeout)
	previousURL, err := r.session.CurrentURL(urlCtx)
	cancel()
	if err != nil {
		r.log.WarnContext(ctx, "Failed to read current url", "error", err)
	}

	if err == nil {
		startTime := time.Now()
		coords, errResolve := r.resolver.Resolve(ctx, r.session, box, address, previousURL)
		r.metrics.ResolveSeconds.Observe(time.Since(startTime).Seconds())
		if errResolve == nil {
			return coords
		}
		r.log.WarnContext(ctx, "Search failed", "address", address, "error", errResolve)
	}

	if r.fallback == nil || ctx.Err() != nil {
		return nil
	}

	coords, err := r.fallback.Geocode(ctx, address)
	if err != nil {
		r.log.WarnContext(ctx, "Fallback geocoding failed", "address", address, "error", err)
		r.metrics.FallbackLookups.WithLabelValues(string(models.StatusFail)).Inc()
		return nil
	}

	r.log.InfoContext(ctx, "Geocoded with fallback provider", "address", address)
	r.metrics.FallbackLookups.WithLabelValues(string(models.StatusSuccess)).Inc()

	return coords
}

// mirror saves result to the store, if any. Store failures never stop the run.
func (r *Runner) mirror(ctx context.Context, result models.Result) {
	if r.store == nil {
		return
	}

	if err := r.store.SaveResult(ctx, result); err != nil {
		r.log.ErrorContext(ctx, "Failed to store result", "address", result.Address, "error", err)
		r.metrics.StoreErrors.Inc()
	}
}

func (r *Runner) nextDelay() time.Duration {
	if r.delayMax <= r.delayMin {
		return r.delayMin
	}

	return r.delayMin + rand.N(r.delayMax-r.delayMin)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
