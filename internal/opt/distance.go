package opt

import (
	"math"

	"gasroute/internal/model"
)

// DistanceFunc returns the travel distance in meters between two points.
// The engine is agnostic to how the number is produced: great-circle math,
// a planar approximation, or a precomputed road-network matrix.
type DistanceFunc func(a, b model.GeoPoint) float64

// Haversine is the default great-circle distance.
func Haversine(a, b model.GeoPoint) float64 {
	const R = 6371000.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}

// Euclidean treats coordinates as planar meters. Useful for synthetic
// problems and tests where geography is irrelevant.
func Euclidean(a, b model.GeoPoint) float64 {
	dx := a.Lat - b.Lat
	dy := a.Lng - b.Lng
	return math.Sqrt(dx*dx + dy*dy)
}

// MatrixDistance serves lookups from an externally supplied cost matrix
// keyed by point index; points not in the matrix fall back to the base
// function. Index resolution is by exact coordinate match.
func MatrixDistance(points []model.GeoPoint, matrix [][]float64, fallback DistanceFunc) DistanceFunc {
	idx := make(map[model.GeoPoint]int, len(points))
	for i, pt := range points {
		idx[pt] = i
	}
	return func(a, b model.GeoPoint) float64 {
		i, ok1 := idx[a]
		j, ok2 := idx[b]
		if ok1 && ok2 && i < len(matrix) && j < len(matrix[i]) {
			return matrix[i][j]
		}
		return fallback(a, b)
	}
}
