package geo

import "math"

// haversine distance
const earthRadiusM = 6371000.0

type Location struct {
	Latitude  float64
	Longitude float64
}

func degreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

// NewLocation stores the coordinate in radians.
func NewLocation(latDegree float64, lonDegree float64) Location {
	return Location{
		Latitude:  degreeToRadians(latDegree),
		Longitude: degreeToRadians(lonDegree),
	}
}

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

// HaversineDistance great-circle distance between two locations in meters.
func HaversineDistance(from Location, to Location) float64 {
	havLat := havFunction(to.Latitude - from.Latitude)
	havLon := havFunction(to.Longitude - from.Longitude)
	h := havLat + math.Cos(from.Latitude)*math.Cos(to.Latitude)*havLon
	if h > 1 {
		h = 1
	}
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

// CalculateHaversineDistance same as HaversineDistance, takes degrees.
func CalculateHaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineDistance(NewLocation(lat1, lon1), NewLocation(lat2, lon2))
}
