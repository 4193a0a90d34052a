package geocoding

import (
	"errors"
	"fmt"
	"log/slog"

	"googlemaps.github.io/maps"
)

// ErrMissingAPIKey is returned for a google fallback configured without a key.
var ErrMissingAPIKey = errors.New("fallback: google provider needs an api key")

// ProviderType names the API geocoder consulted when the browser search finds nothing.
type ProviderType string

const (
	ProviderTypeNone      ProviderType = ""          // no fallback
	ProviderTypeGoogle    ProviderType = "google"    // Google Maps Geocoding API
	ProviderTypeNominatim ProviderType = "nominatim" // OpenStreetMap Nominatim
)

// ProviderConfig selects and configures the fallback provider.
type ProviderConfig struct {
	Type      ProviderType
	APIKey    string // APIKey is only read by the google provider.
	RateLimit int    // RateLimit caps requests per second; 0 keeps the provider default.
	Logger    *slog.Logger
}

// NewProvider builds the fallback provider for config.Type.
// An empty type means the run has no fallback: the result is nil, nil.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeNone:
		return nil, nil //nolint:nilnil // fallback disabled
	case ProviderTypeGoogle:
		return newGoogleFallback(config)
	case ProviderTypeNominatim:
		return NewNominatimProvider(config.RateLimit, config.Logger), nil
	default:
		return nil, fmt.Errorf("fallback: unknown provider %q", config.Type)
	}
}

func newGoogleFallback(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []maps.ClientOption{maps.WithAPIKey(config.APIKey)}
	if config.RateLimit > 0 {
		opts = append(opts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("fallback: google client: %w", err)
	}

	return NewGoogleProvider(client, config.Logger), nil
}
