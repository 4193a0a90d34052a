package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/cartograph/internal/models"
)

// Page reports the URL the browser currently shows.
type Page interface {
	CurrentURL(ctx context.Context) (string, error)
}

// SearchBox is the map's search input. Implementations drive a real browser element.
type SearchBox interface {
	Clear(ctx context.Context) error
	Input(ctx context.Context, text string) error
	Submit(ctx context.Context) error
}

// Errors returned by Resolve when an address yields no coordinates.
var (
	ErrNoResult      = errors.New("url did not change to a location within the timeout")
	ErrStaleURL      = errors.New("url is unchanged since the previous search")
	ErrNoCoordinates = errors.New("no coordinates in url")
)

// Timings groups the pauses and bounds of a single search.
type Timings struct {
	ClearPause   time.Duration // ClearPause is waited after the search box was emptied.
	TypePause    time.Duration // TypePause is waited after the address was typed.
	Timeout      time.Duration // Timeout bounds the wait for a new location URL.
	PollInterval time.Duration // PollInterval is how often the URL is checked.
	Settle       time.Duration // Settle is waited once the URL changed.
}

// DefaultTimings returns the timings used against the live map.
func DefaultTimings() Timings {
	const (
		clearPause   = 200 * time.Millisecond
		typePause    = 500 * time.Millisecond
		timeout      = 10 * time.Second
		pollInterval = 250 * time.Millisecond
		settle       = 1500 * time.Millisecond
	)

	return Timings{
		ClearPause:   clearPause,
		TypePause:    typePause,
		Timeout:      timeout,
		PollInterval: pollInterval,
		Settle:       settle,
	}
}

// Resolver turns an address into coordinates by searching for it on the map page
// and reading the map centre back from the resulting URL.
type Resolver struct {
	log     *slog.Logger
	timings Timings
}

// NewResolver creates a Resolver.
func NewResolver(log *slog.Logger, timings Timings) *Resolver {
	if timings.PollInterval <= 0 {
		timings.PollInterval = DefaultTimings().PollInterval
	}
	if timings.Timeout <= 0 {
		timings.Timeout = DefaultTimings().Timeout
	}

	return &Resolver{log: log, timings: timings}
}

// Resolve types address into box, submits it and waits until the page URL differs from
// previousURL and carries a cp coordinate pair. It returns ErrNoResult on timeout,
// ErrStaleURL when the URL turned out unchanged, and a wrapped error when the browser
// interaction itself failed. Callers record every error as a failed lookup.
func (r *Resolver) Resolve(
	ctx context.Context,
	page Page,
	box SearchBox,
	address string,
	previousURL string,
) (*models.Coordinates, error) {
	if err := r.interact(ctx, box.Clear); err != nil {
		return nil, fmt.Errorf("failed to clear search box: %w", err)
	}
	if err := sleep(ctx, r.timings.ClearPause); err != nil {
		return nil, err
	}

	err := r.interact(ctx, func(actCtx context.Context) error {
		return box.Input(actCtx, address)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to type address: %w", err)
	}
	if err = sleep(ctx, r.timings.TypePause); err != nil {
		return nil, err
	}

	if err = r.interact(ctx, box.Submit); err != nil {
		return nil, fmt.Errorf("failed to submit search: %w", err)
	}
	r.log.DebugContext(ctx, "Searching...", "address", address)

	if err = r.waitForLocation(ctx, page, previousURL); err != nil {
		return nil, err
	}

	if err = sleep(ctx, r.timings.Settle); err != nil {
		return nil, err
	}

	var current string
	err = r.interact(ctx, func(actCtx context.Context) error {
		var errURL error
		current, errURL = page.CurrentURL(actCtx)
		return errURL
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read page url: %w", err)
	}

	// The wait may have observed a URL that has since reverted.
	if current == previousURL {
		return nil, ErrStaleURL
	}

	coords, ok := ParseCoordinates(current)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCoordinates, current)
	}

	r.log.InfoContext(ctx, "Found coordinates", "address", address, "lat", coords.Latitude, "lon", coords.Longitude)

	return &coords, nil
}

// interact runs one search box action with the search timeout, so an element that never
// becomes interactable fails the address instead of blocking the run.
func (r *Resolver) interact(ctx context.Context, action func(ctx context.Context) error) error {
	actCtx, cancel := context.WithTimeout(ctx, r.timings.Timeout)
	defer cancel()

	return action(actCtx)
}

// waitForLocation polls the page URL until it changed from previousURL and holds coordinates.
func (r *Resolver) waitForLocation(ctx context.Context, page Page, previousURL string) error {
	waitCtx, cancel := context.WithTimeout(ctx, r.timings.Timeout)
	defer cancel()

	ticker := time.NewTicker(r.timings.PollInterval)
	defer ticker.Stop()

	for {
		current, err := page.CurrentURL(waitCtx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if waitCtx.Err() == nil {
				return fmt.Errorf("failed to read page url: %w", err)
			}
		} else if current != previousURL {
			if _, ok := ParseCoordinates(current); ok {
				return nil
			}
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.DebugContext(ctx, "URL did not change", "url", current)
			return ErrNoResult
		case <-ticker.C:
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
