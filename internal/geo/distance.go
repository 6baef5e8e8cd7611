// Package geo computes great-circle distances and resolves map share links
// to coordinates.
package geo

import (
	"fmt"
	"math"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
)

const earthRadiusKm = 6371.0

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects coordinates outside the WGS84 range and NaNs.
func (p Point) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "latitude %v out of range", p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "longitude %v out of range", p.Longitude)
	}
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Latitude, p.Longitude)
}

// DistanceKm returns the haversine distance between a and b.
func DistanceKm(a, b Point) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// RoundKm rounds a distance to two decimal places.
func RoundKm(d float64) float64 {
	return math.Round(d*100) / 100
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
