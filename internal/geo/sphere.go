package geo

import "math"

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// Vec3 is a point in 3-D Cartesian space.
type Vec3 struct {
	X, Y, Z float64
}

// Len returns the Euclidean norm.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// SphericalToCartesian converts (rho, theta, phi) with theta the azimuth and phi the
// polar angle measured from +Z, both in degrees.
func SphericalToCartesian(rho, theta, phi float64) Vec3 {
	t := theta * degToRad
	p := phi * degToRad
	return Vec3{
		X: rho * math.Sin(p) * math.Cos(t),
		Y: rho * math.Sin(p) * math.Sin(t),
		Z: rho * math.Cos(p),
	}
}

// CartesianToSpherical is the inverse of SphericalToCartesian. Theta is returned in
// (-180, 180] and phi in [0, 180]. At the origin all angles are zero.
func CartesianToSpherical(v Vec3) (rho, theta, phi float64) {
	rho = v.Len()
	if rho == 0 {
		return 0, 0, 0
	}
	theta = math.Atan2(v.Y, v.X) * radToDeg
	phi = math.Acos(math.Max(-1, math.Min(1, v.Z/rho))) * radToDeg
	return rho, theta, phi
}

// SurfacePoint places a latitude/longitude on a sphere of the given radius.
// Latitude runs from -90 (phi 0) to 90 (phi 180) and the azimuth is 90-lon.
func SurfacePoint(radius, lat, lon float64) Vec3 {
	return SphericalToCartesian(radius, 90-lon, lat+90)
}

// PixelToLatLon maps a raster pixel to its latitude and longitude on a w x h
// equirectangular map. Row 0 is latitude -90 and column 0 is longitude 90.
func PixelToLatLon(x, y, w, h int) (lat, lon float64) {
	lat = float64(y)*180/float64(h) - 90
	lon = 90 - float64(x)*360/float64(w)
	return lat, lon
}

// LatLonToPixel is the inverse of PixelToLatLon, wrapping longitude and clamping to
// the raster bounds.
func LatLonToPixel(lat, lon float64, w, h int) (x, y int) {
	y = int(math.Floor((lat + 90) * float64(h) / 180))
	x = int(math.Floor((90 - lon) * float64(w) / 360))
	x %= w
	if x < 0 {
		x += w
	}
	y = max(0, min(h-1, y))
	return x, y
}
