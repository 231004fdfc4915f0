package convergence

// Outcome is the verdict of the monitor after a pass
type Outcome string

const (
	Continue       Outcome = "continue"
	Resolved       Outcome = "resolved"
	BoundedSuccess Outcome = "bounded_success"
	Stuck          Outcome = "stuck"
	Oscillating    Outcome = "oscillating"
	Exhausted      Outcome = "exhausted"
)

// Rules holds the stopping parameters of an iterative run
type Rules struct {
	// SuccessThreshold is the conflict count accepted as irreducible
	SuccessThreshold int
	// StuckWindow is the number of consecutive repeats of the same count
	// that ends the run
	StuckWindow int
	// OscillationWindow is the number of recent counts inspected for a
	// repeating pattern
	OscillationWindow int
	// OscillationPeriods are the pattern lengths checked. A period p needs
	// 2p counts in the window to be detected.
	OscillationPeriods []int
	// OscillationDistinct is the most distinct counts the window may hold
	// for a pattern to count as an oscillation
	OscillationDistinct int
	// HistorySize bounds the sliding window of recent counts
	HistorySize int
	// MaxPasses is the hard cap on passes
	MaxPasses int
}

// DefaultRules returns the standard stopping rules
func DefaultRules() Rules {
	return Rules{
		SuccessThreshold:    3,
		StuckWindow:         5,
		OscillationWindow:   6,
		OscillationPeriods:  []int{2, 3, 4},
		OscillationDistinct: 3,
		HistorySize:         10,
		MaxPasses:           100,
	}
}

// Verdict is the monitor decision after one observation
type Verdict struct {
	Outcome Outcome
	Success bool
}

// Terminal reports whether the run should stop
func (v Verdict) Terminal() bool {
	return v.Outcome != Continue
}

// Monitor applies the stopping rules to the conflict count of each pass
type Monitor struct {
	rules   Rules
	window  []int
	passes  int
	repeats int
}

// NewMonitor creates a monitor with the given rules
func NewMonitor(rules Rules) *Monitor {
	if rules.HistorySize < rules.OscillationWindow {
		rules.HistorySize = rules.OscillationWindow
	}
	return &Monitor{rules: rules}
}

// Passes returns the number of observed passes
func (m *Monitor) Passes() int {
	return m.passes
}

// Window returns a copy of the recent counts, oldest first
func (m *Monitor) Window() []int {
	out := make([]int, len(m.window))
	copy(out, m.window)
	return out
}

// Observe records the conflict count of a pass and decides whether to
// stop. Rules are checked in order: zero, bounded residual, stuck,
// oscillating, pass cap.
func (m *Monitor) Observe(count int) Verdict {
	m.passes++
	if n := len(m.window); n > 0 && m.window[n-1] == count {
		m.repeats++
	} else {
		m.repeats = 0
	}
	m.window = append(m.window, count)
	if len(m.window) > m.rules.HistorySize {
		m.window = m.window[len(m.window)-m.rules.HistorySize:]
	}

	switch {
	case count == 0:
		return Verdict{Outcome: Resolved, Success: true}
	case count <= m.rules.SuccessThreshold:
		return Verdict{Outcome: BoundedSuccess, Success: true}
	case m.repeats >= m.rules.StuckWindow:
		return Verdict{Outcome: Stuck}
	}

	if len(m.window) >= m.rules.OscillationWindow {
		recent := m.window[len(m.window)-m.rules.OscillationWindow:]
		if pattern := m.oscillation(recent); pattern != nil {
			return Verdict{Outcome: Oscillating, Success: maxOf(pattern) <= m.rules.SuccessThreshold}
		}
	}

	if m.passes >= m.rules.MaxPasses {
		return Verdict{Outcome: Exhausted}
	}
	return Verdict{Outcome: Continue}
}

// oscillation returns the repeating tail of w: the last p counts when
// they equal the p counts before them. A constant window is a plateau, not
// an oscillation, and a window with too many distinct counts is still
// moving.
func (m *Monitor) oscillation(w []int) []int {
	if constant(w) || distinct(w) > m.rules.OscillationDistinct {
		return nil
	}
	for _, p := range m.rules.OscillationPeriods {
		if repeatsTail(w, p) {
			return w[len(w)-p:]
		}
	}
	return nil
}

// repeatsTail reports whether the last p entries of w equal the p entries
// before them
func repeatsTail(w []int, p int) bool {
	if p <= 0 || 2*p > len(w) {
		return false
	}
	n := len(w)
	for i := 0; i < p; i++ {
		if w[n-p+i] != w[n-2*p+i] {
			return false
		}
	}
	return true
}

func distinct(w []int) int {
	seen := make(map[int]struct{}, len(w))
	for _, v := range w {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func constant(w []int) bool {
	for _, v := range w[1:] {
		if v != w[0] {
			return false
		}
	}
	return true
}

func maxOf(w []int) int {
	m := w[0]
	for _, v := range w[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
