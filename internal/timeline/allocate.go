package timeline

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// Static errors for duration allocation.
var (
	// ErrNoItems is returned when there is nothing to allocate durations for.
	ErrNoItems = errors.New("timeline: no items to allocate")
	// ErrInvalidTotal is returned when the aggregate target is not positive.
	ErrInvalidTotal = errors.New("timeline: total duration must be positive")
)

// Allocation range defaults. Videos look best near their native length;
// stills tolerate anything between a glance and a long hold.
const (
	videoBandRatio = 0.3
	imageMinSec    = 1.0
	imageMaxSec    = 15.0
)

// Scoring weights. Range violations dominate, preference deviation matters,
// adjacent jumps are a tiebreaker for pacing.
const (
	rangePenaltyWeight  = 10.0
	prefPenaltyWeight   = 1.0
	smoothPenaltyWeight = 0.1
)

// Pref describes one item's duration flexibility for allocation.
type Pref struct {
	// Preferred is the duration the item looks best at; zero means no
	// preference.
	Preferred float64
	// Min and Max bound the acceptable duration.
	Min, Max float64
}

// VideoPref returns the allocation preference for a video with the given
// native duration: prefer native, allow a tolerance band around it.
func VideoPref(native float64) Pref {
	return Pref{
		Preferred: native,
		Min:       native * (1 - videoBandRatio),
		Max:       native * (1 + videoBandRatio),
	}
}

// ImagePref returns the flexible preference used for stills and placeholder
// slots.
func ImagePref() Pref {
	return Pref{Min: imageMinSec, Max: imageMaxSec}
}

// Allocator assigns per-item durations summing to an aggregate target.
// Implementations are heuristics; exactness is not guaranteed when ranges
// cannot accommodate the target.
type Allocator interface {
	Allocate(prefs []Pref, total float64) ([]float64, error)
}

// LocalSearch allocates durations with a randomized paired-adjustment search:
// starting from a proportional seed, it repeatedly moves a small step of
// duration from one item to another and keeps the move only when the overall
// score improves.
type LocalSearch struct {
	iterations int
	delta      float64
	patience   int
	rng        *rand.Rand
}

var _ Allocator = (*LocalSearch)(nil)

// LocalSearchOption configures a LocalSearch allocator.
type LocalSearchOption func(*LocalSearch)

// WithIterations sets the proposal budget.
func WithIterations(n int) LocalSearchOption {
	return func(ls *LocalSearch) {
		if n > 0 {
			ls.iterations = n
		}
	}
}

// WithDelta sets the size in seconds of each paired adjustment.
func WithDelta(d float64) LocalSearchOption {
	return func(ls *LocalSearch) {
		if d > 0 {
			ls.delta = d
		}
	}
}

// WithPatience sets how many consecutive rejected proposals end the search
// early.
func WithPatience(n int) LocalSearchOption {
	return func(ls *LocalSearch) {
		if n > 0 {
			ls.patience = n
		}
	}
}

// WithSeed fixes the random source, for reproducible allocations in tests.
func WithSeed(seed int64) LocalSearchOption {
	return func(ls *LocalSearch) {
		ls.rng = rand.New(rand.NewSource(seed))
	}
}

// NewLocalSearch creates a LocalSearch allocator with sensible defaults.
func NewLocalSearch(opts ...LocalSearchOption) *LocalSearch {
	ls := &LocalSearch{
		iterations: 500,
		delta:      0.25,
		patience:   50,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(ls)
	}
	return ls
}

// Allocate distributes total across the items. The paired search keeps the
// running sum constant; any residual against the exact total left by the
// seed or the final clamp is nudged back within the allowed ranges. When
// every item is pinned at a range boundary the residual is accepted rather
// than violating a range.
func (ls *LocalSearch) Allocate(prefs []Pref, total float64) ([]float64, error) {
	if len(prefs) == 0 {
		return nil, ErrNoItems
	}
	if total <= 0 {
		return nil, ErrInvalidTotal
	}

	durations := proportionalSeed(prefs, total)

	if len(prefs) > 1 {
		ls.search(durations, prefs)
	}

	for i := range durations {
		durations[i] = clamp(durations[i], prefs[i].Min, prefs[i].Max)
	}
	nudgeResidual(durations, prefs, total)

	return durations, nil
}

// search mutates durations in place, accepting only score-improving paired
// moves.
func (ls *LocalSearch) search(durations []float64, prefs []Pref) {
	current := score(durations, prefs)
	rejected := 0

	for it := 0; it < ls.iterations && rejected < ls.patience; it++ {
		i := ls.rng.Intn(len(durations))
		j := ls.rng.Intn(len(durations))
		if i == j {
			continue
		}

		durations[i] += ls.delta
		durations[j] -= ls.delta

		if next := score(durations, prefs); next < current {
			current = next
			rejected = 0
			continue
		}

		// Revert the move
		durations[i] -= ls.delta
		durations[j] += ls.delta
		rejected++
	}
}

// score is the penalty being minimized: out-of-range mass, deviation from
// preferred durations, and squared jumps between adjacent items.
func score(durations []float64, prefs []Pref) float64 {
	var s float64
	for i, d := range durations {
		if d < prefs[i].Min {
			s += (prefs[i].Min - d) * rangePenaltyWeight
		}
		if d > prefs[i].Max {
			s += (d - prefs[i].Max) * rangePenaltyWeight
		}
		if prefs[i].Preferred > 0 {
			s += math.Abs(d-prefs[i].Preferred) * prefPenaltyWeight
		}
		if i > 0 {
			jump := d - durations[i-1]
			s += jump * jump * smoothPenaltyWeight
		}
	}
	return s
}

// proportionalSeed scales each item's base duration so the seed sums exactly
// to total. Items without a preference use the midpoint of their range as
// base.
func proportionalSeed(prefs []Pref, total float64) []float64 {
	bases := make([]float64, len(prefs))
	var sum float64
	for i, p := range prefs {
		base := p.Preferred
		if base <= 0 {
			base = (p.Min + p.Max) / 2
		}
		if base <= 0 {
			base = 1
		}
		bases[i] = base
		sum += base
	}

	scale := total / sum
	for i := range bases {
		bases[i] *= scale
	}
	return bases
}

// nudgeResidual pushes the difference between total and the current sum into
// whatever headroom the ranges still offer, front to back.
func nudgeResidual(durations []float64, prefs []Pref, total float64) {
	var sum float64
	for _, d := range durations {
		sum += d
	}
	residual := total - sum

	for i := range durations {
		if math.Abs(residual) < 1e-9 {
			return
		}
		var headroom float64
		if residual > 0 {
			headroom = prefs[i].Max - durations[i]
		} else {
			headroom = prefs[i].Min - durations[i] // negative
		}
		step := residual
		if math.Abs(step) > math.Abs(headroom) {
			step = headroom
		}
		durations[i] += step
		residual -= step
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
