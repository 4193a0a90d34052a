package geocoding

import (
	"regexp"
	"strconv"

	"github.com/UnknownOlympus/cartograph/internal/models"
)

// cpPattern matches the map centre parameter, e.g. cp=40.7128~-74.006 or cp=40.7128%7E-74.006.
// Percent-encoding hex digits are case-insensitive (RFC 3986), so %7e is accepted as well.
var cpPattern = regexp.MustCompile(`cp=([+-]?\d+\.?\d*)(?:~|%7[Ee])([+-]?\d+\.?\d*)`)

// ParseCoordinates extracts the latitude/longitude pair from the cp query parameter of a map URL.
// The second return value is false when the URL carries no parseable pair.
func ParseCoordinates(rawURL string) (models.Coordinates, bool) {
	match := cpPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return models.Coordinates{}, false
	}

	lat, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return models.Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return models.Coordinates{}, false
	}

	return models.Coordinates{Latitude: lat, Longitude: lon}, true
}
