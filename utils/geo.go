package utils

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371010.0

// RadiusBounds returns the lat/lng rectangle (degrees) enclosing a spherical
// cap of the given radius around the center. Used as an index-friendly
// prefilter before the exact ST_Distance_Sphere check in SQL.
func RadiusBounds(lat, lng, radiusMeters float64) (latLo, latHi, lngLo, lngHi float64) {
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lng))
	region := s2.CapFromCenterAngle(center, s1.Angle(radiusMeters/earthRadiusMeters))
	rect := region.RectBound()
	return s1.Angle(rect.Lat.Lo).Degrees(),
		s1.Angle(rect.Lat.Hi).Degrees(),
		s1.Angle(rect.Lng.Lo).Degrees(),
		s1.Angle(rect.Lng.Hi).Degrees()
}
