package stats

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// Persister stores run totals
type Persister interface {
	StoreRunTotals(ctx context.Context, totals *types.RunTotals) error
}

// Stats tracks the cumulative counters of one run
type Stats struct {
	RunID string

	Passes           uint64
	ClustersDetected uint64
	AltitudeChanges  uint64
	SpeedChanges     uint64
	Unresolved       uint64
	Skipped          uint64

	// Timing
	LastPassTime   time.Time
	ProcessingTime time.Duration

	persister Persister

	mu sync.RWMutex
}

// New creates a new Stats instance for a run
func New(runID string) *Stats {
	return &Stats{RunID: runID}
}

// SetPersister sets the backend used by Persist
func (s *Stats) SetPersister(p Persister) {
	s.mu.Lock()
	s.persister = p
	s.mu.Unlock()
}

// RecordPass folds one pass result into the totals
func (s *Stats) RecordPass(event *types.PassEvent) {
	atomic.AddUint64(&s.Passes, 1)
	atomic.AddUint64(&s.ClustersDetected, uint64(event.Conflicts))
	atomic.AddUint64(&s.AltitudeChanges, uint64(event.AltitudeChanges))
	atomic.AddUint64(&s.SpeedChanges, uint64(event.SpeedChanges))
	atomic.AddUint64(&s.Unresolved, uint64(event.Unresolved))
	atomic.AddUint64(&s.Skipped, uint64(event.Skipped))

	s.mu.Lock()
	s.LastPassTime = event.Timestamp
	s.ProcessingTime += time.Duration(event.Duration * float64(time.Millisecond))
	s.mu.Unlock()
}

// Totals returns a copy of the current counters
func (s *Stats) Totals() types.RunTotals {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.RunTotals{
		RunID:            s.RunID,
		Passes:           atomic.LoadUint64(&s.Passes),
		ClustersDetected: atomic.LoadUint64(&s.ClustersDetected),
		AltitudeChanges:  atomic.LoadUint64(&s.AltitudeChanges),
		SpeedChanges:     atomic.LoadUint64(&s.SpeedChanges),
		Unresolved:       atomic.LoadUint64(&s.Unresolved),
		Skipped:          atomic.LoadUint64(&s.Skipped),
		ProcessingTime:   s.ProcessingTime,
		LastPassTime:     s.LastPassTime,
	}
}

// Persist stores the current totals through the persister
func (s *Stats) Persist(ctx context.Context) error {
	s.mu.RLock()
	p := s.persister
	s.mu.RUnlock()
	if p == nil {
		return fmt.Errorf("stats persister not set")
	}

	totals := s.Totals()
	return p.StoreRunTotals(ctx, &totals)
}

// String returns a string representation of the statistics
func (s *Stats) String() string {
	t := s.Totals()
	return fmt.Sprintf(
		"Run: %s\n"+
			"Passes: %d\n"+
			"Clusters Detected: %d\n"+
			"Altitude Changes: %d\n"+
			"Speed Changes: %d\n"+
			"Unresolved: %d\n"+
			"Skipped: %d\n"+
			"Processing Time: %s",
		t.RunID,
		t.Passes,
		t.ClustersDetected,
		t.AltitudeChanges,
		t.SpeedChanges,
		t.Unresolved,
		t.Skipped,
		t.ProcessingTime,
	)
}
