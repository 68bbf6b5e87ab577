package geo

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// BoundingRect lat/lon rectangle enclosing the spherical cap of radiusM meters around (lat, lon).
func BoundingRect(lat, lon, radiusM float64) BoundingBox {
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	capRegion := s2.CapFromCenterAngle(center, s1.Angle(radiusM/earthRadiusM))
	rect := capRegion.RectBound()
	lo := rect.Lo()
	hi := rect.Hi()
	return BoundingBox{
		MinLat: lo.Lat.Degrees(),
		MaxLat: hi.Lat.Degrees(),
		MinLon: lo.Lng.Degrees(),
		MaxLon: hi.Lng.Degrees(),
	}
}
