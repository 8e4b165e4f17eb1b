package maps

import "math"

// EarthRadius is the mean earth radius in meters used for area computation.
const EarthRadius = 6371009.0

// ComputeArea returns the area in square meters of the closed path on a
// sphere of EarthRadius. Edges are great-circle segments. Paths with fewer
// than three points have zero area.
func ComputeArea(path []LatLng) float64 {
	return math.Abs(computeSignedArea(path, EarthRadius))
}

// computeSignedArea sums, over every edge, the signed area of the triangle
// the edge forms with the north pole.
func computeSignedArea(path []LatLng, radius float64) float64 {
	if len(path) < 3 {
		return 0
	}
	var total float64
	prev := path[len(path)-1]
	prevTanLat := math.Tan((math.Pi/2 - toRadians(prev.Latitude)) / 2)
	prevLng := toRadians(prev.Longitude)
	for _, p := range path {
		tanLat := math.Tan((math.Pi/2 - toRadians(p.Latitude)) / 2)
		lng := toRadians(p.Longitude)
		total += polarTriangleArea(tanLat, lng, prevTanLat, prevLng)
		prevTanLat, prevLng = tanLat, lng
	}
	return total * radius * radius
}

func polarTriangleArea(tan1, lng1, tan2, lng2 float64) float64 {
	deltaLng := lng1 - lng2
	t := tan1 * tan2
	return 2 * math.Atan2(t*math.Sin(deltaLng), 1+t*math.Cos(deltaLng))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
