package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// mercatorLimit is the latitude beyond which web mercator is undefined.
const mercatorLimit = 85.05112878

// ParseLatLon parses "lat,lon" into degrees, rejecting out-of-range values.
func ParseLatLon(coords string) (lat, lon float64, err error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidCoordinates
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, ErrInvalidCoordinates
	}
	return lat, lon, nil
}

// ProbePoint projects a latitude/longitude into EPSG:3857 for probe reports.
// Latitudes past the mercator limit are clamped.
func ProbePoint(lat, lon float64) geom.Point {
	lat = math.Max(-mercatorLimit, math.Min(mercatorLimit, lat))
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(lon, lat, 0)
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}})
}

// ProbeWKT renders the projected probe point as WKT.
func ProbeWKT(lat, lon float64) string {
	return ProbePoint(lat, lon).AsText()
}
