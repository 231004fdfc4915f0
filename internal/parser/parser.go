package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is a parsed route coordinate in signed decimal degrees
type Point struct {
	Latitude  float64
	Longitude float64
}

// RouteTokens splits a route string into its waypoint tokens
func RouteTokens(route string) []string {
	return strings.Fields(route)
}

// ParsePoint parses a route token such as "49.64N/92.114W". Hemisphere
// suffixes are honoured; a bare number is taken as signed degrees.
func ParsePoint(token string) (Point, error) {
	parts := strings.Split(strings.TrimSpace(token), "/")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("invalid route point %q: expected lat/lon", token)
	}

	lat, err := parseCoordinate(parts[0], 'N', 'S')
	if err != nil {
		return Point{}, fmt.Errorf("invalid latitude in %q: %w", token, err)
	}
	if lat < -90 || lat > 90 {
		return Point{}, fmt.Errorf("invalid latitude in %q: %v out of range", token, lat)
	}

	lon, err := parseCoordinate(parts[1], 'E', 'W')
	if err != nil {
		return Point{}, fmt.Errorf("invalid longitude in %q: %w", token, err)
	}
	if lon < -180 || lon > 180 {
		return Point{}, fmt.Errorf("invalid longitude in %q: %v out of range", token, lon)
	}

	return Point{Latitude: lat, Longitude: lon}, nil
}

// parseCoordinate parses a number with an optional hemisphere suffix
func parseCoordinate(s string, positive, negative byte) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}

	sign := 1.0
	last := s[len(s)-1]
	switch {
	case last == positive || last == positive+('a'-'A'):
		s = s[:len(s)-1]
	case last == negative || last == negative+('a'-'A'):
		sign = -1
		s = s[:len(s)-1]
	case (last >= 'A' && last <= 'Z') || (last >= 'a' && last <= 'z'):
		return 0, fmt.Errorf("unexpected hemisphere %q", last)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if sign < 0 && v < 0 {
		return 0, fmt.Errorf("negative value with hemisphere suffix")
	}
	return sign * v, nil
}

// ParseRoute parses every token of a route string
func ParseRoute(route string) ([]Point, error) {
	tokens := RouteTokens(route)
	points := make([]Point, 0, len(tokens))
	for _, tok := range tokens {
		p, err := ParsePoint(tok)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}
