package geo

import "math"

// EarthRadiusNM is the spherical Earth radius used for all distance
// computations, in nautical miles
const EarthRadiusNM = 3440.065

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// HaversineNM returns the great-circle distance between two points in
// nautical miles
func HaversineNM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Rounding can push a slightly past 1 for antipodal points
	c := 2 * math.Asin(math.Sqrt(math.Min(1, a)))
	return EarthRadiusNM * c
}

// Interpolate returns the point a given fraction of the way along the great
// circle from (lat1, lon1) to (lat2, lon2). A zero-length leg returns the
// start point.
func Interpolate(lat1, lon1, lat2, lon2, fraction float64) (float64, float64) {
	phi1, lambda1 := radians(lat1), radians(lon1)
	phi2, lambda2 := radians(lat2), radians(lon2)

	d := 2 * math.Asin(math.Sqrt(math.Min(1,
		math.Pow(math.Sin((phi2-phi1)/2), 2)+
			math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin((lambda2-lambda1)/2), 2))))
	if d == 0 || math.Sin(d) == 0 {
		return lat1, lon1
	}

	a := math.Sin((1-fraction)*d) / math.Sin(d)
	b := math.Sin(fraction*d) / math.Sin(d)
	x := a*math.Cos(phi1)*math.Cos(lambda1) + b*math.Cos(phi2)*math.Cos(lambda2)
	y := a*math.Cos(phi1)*math.Sin(lambda1) + b*math.Cos(phi2)*math.Sin(lambda2)
	z := a*math.Sin(phi1) + b*math.Sin(phi2)

	lat := math.Atan2(z, math.Sqrt(x*x+y*y))
	lon := math.Atan2(y, x)
	return degrees(lat), degrees(lon)
}
