package alerts

import "math"

// earthRadiusMiles is the mean Earth radius used by the haversine formula.
const earthRadiusMiles = 3959.0

// Distance returns the great-circle distance between two points in miles.
func Distance(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// Floating-point drift can push h a hair outside [0,1] for antipodal or
	// near-identical points; clamp before the square root.
	if h < 0 {
		h = 0
	} else if h > 1 {
		h = 1
	}

	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

// WithinRadius reports whether b lies within radiusMiles of a.
func WithinRadius(a, b Point, radiusMiles float64) bool {
	return Distance(a, b) <= radiusMiles
}
