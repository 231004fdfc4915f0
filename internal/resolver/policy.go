package resolver

// Policy holds the tunable parameters of the resolver
type Policy struct {
	// AltitudeStep is the size of one altitude adjustment, in feet
	AltitudeStep int
	// SpeedStep is the size of one speed adjustment, in knots
	SpeedStep float64
	// OscillationThreshold is the change count above which an aircraft
	// is deprioritized for further adjustment
	OscillationThreshold int
	// OscillationPenalty is added to the sort key of deprioritized
	// aircraft. It must exceed any realistic change count.
	OscillationPenalty int
	// SeparationFloor is the altitude spread above which a cluster is
	// considered already separated, in feet
	SeparationFloor int
}

// DefaultPolicy returns the standard resolver parameters
func DefaultPolicy() Policy {
	return Policy{
		AltitudeStep:         1000,
		SpeedStep:            20,
		OscillationThreshold: 50,
		OscillationPenalty:   1000000,
		SeparationFloor:      2000,
	}
}

// priority is the member sort key: fewer changes first, chronically
// adjusted aircraft last
func (p Policy) priority(changes int) int {
	if changes > p.OscillationThreshold {
		return changes + p.OscillationPenalty
	}
	return changes
}
