package geocoding

import (
	"context"

	"github.com/UnknownOlympus/cartograph/internal/models"
)

// Provider geocodes an address through an HTTP API. Providers back up the browser
// search: they are consulted only for addresses the map page could not locate.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}
