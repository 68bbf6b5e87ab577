package geo

import (
	"math"
)

/*
BearingTo. initial compass bearing of the segment (p1,p2), 0 = north, clockwise, normalized to [0,360).
https://www.movable-type.co.uk/scripts/latlong.html
*/
func BearingTo(p1Lat, p1Lon, p2Lat, p2Lon float64) float64 {

	dLon := (p2Lon - p1Lon) * math.Pi / 180.0

	lat1 := p1Lat * math.Pi / 180.0
	lat2 := p2Lat * math.Pi / 180.0

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brng := math.Atan2(y, x) * 180.0 / math.Pi

	return NormalizeBearing(brng)
}

// NormalizeBearing maps any angle in degrees into [0,360).
func NormalizeBearing(b float64) float64 {
	b = math.Mod(b, 360.0)
	if b < 0 {
		b += 360.0
	}
	if b >= 360.0 {
		b = 0
	}
	return b
}

// ReverseBearing bearing of the same segment traversed the other way.
func ReverseBearing(b float64) float64 {
	return NormalizeBearing(b + 180.0)
}

// AngleDiff smallest angle between two bearings, in [0,180].
func AngleDiff(a, b float64) float64 {
	delta := math.Abs(NormalizeBearing(a) - NormalizeBearing(b))
	if delta > 180.0 {
		delta = 360.0 - delta
	}
	return delta
}
