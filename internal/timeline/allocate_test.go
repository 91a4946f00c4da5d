package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(durations []float64) float64 {
	var s float64
	for _, d := range durations {
		s += d
	}
	return s
}

func TestLocalSearch_Allocate_Errors(t *testing.T) {
	ls := NewLocalSearch(WithSeed(1))

	t.Run("no items", func(t *testing.T) {
		_, err := ls.Allocate(nil, 10)
		assert.ErrorIs(t, err, ErrNoItems)
	})

	t.Run("non-positive total", func(t *testing.T) {
		_, err := ls.Allocate([]Pref{ImagePref()}, 0)
		assert.ErrorIs(t, err, ErrInvalidTotal)
	})
}

func TestLocalSearch_Allocate_SingleVideoMatchesNative(t *testing.T) {
	ls := NewLocalSearch(WithSeed(1))

	durations, err := ls.Allocate([]Pref{VideoPref(5)}, 5)
	require.NoError(t, err)
	require.Len(t, durations, 1)
	assert.InDelta(t, 5.0, durations[0], 1e-9)
}

func TestLocalSearch_Allocate_PinnedBoundaryAcceptsDrift(t *testing.T) {
	ls := NewLocalSearch(WithSeed(1))

	// A 10s video cannot shrink to 5s inside its band; the allocation pins
	// at the band floor and the remaining drift is accepted.
	durations, err := ls.Allocate([]Pref{VideoPref(10)}, 5)
	require.NoError(t, err)
	require.Len(t, durations, 1)
	assert.InDelta(t, 7.0, durations[0], 1e-9)
}

func TestLocalSearch_Allocate_ImagesShareTotal(t *testing.T) {
	ls := NewLocalSearch(WithSeed(42))

	prefs := []Pref{ImagePref(), ImagePref(), ImagePref()}
	durations, err := ls.Allocate(prefs, 12)
	require.NoError(t, err)
	require.Len(t, durations, 3)

	assert.InDelta(t, 12.0, sum(durations), 1e-6)
	for i, d := range durations {
		assert.GreaterOrEqual(t, d, prefs[i].Min, "item %d below range", i)
		assert.LessOrEqual(t, d, prefs[i].Max, "item %d above range", i)
	}
}

func TestLocalSearch_Allocate_MixedSequence(t *testing.T) {
	ls := NewLocalSearch(WithSeed(42))

	prefs := []Pref{VideoPref(10), ImagePref(), ImagePref()}
	durations, err := ls.Allocate(prefs, 20)
	require.NoError(t, err)
	require.Len(t, durations, 3)

	assert.InDelta(t, 20.0, sum(durations), 1e-6)
	for i, d := range durations {
		assert.GreaterOrEqual(t, d, prefs[i].Min, "item %d below range", i)
		assert.LessOrEqual(t, d, prefs[i].Max, "item %d above range", i)
	}
}

func TestLocalSearch_Allocate_Deterministic(t *testing.T) {
	prefs := []Pref{VideoPref(4), ImagePref(), VideoPref(8), ImagePref()}

	first, err := NewLocalSearch(WithSeed(7)).Allocate(prefs, 18)
	require.NoError(t, err)
	second, err := NewLocalSearch(WithSeed(7)).Allocate(prefs, 18)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLocalSearch_Options(t *testing.T) {
	ls := NewLocalSearch(WithIterations(10), WithDelta(0.5), WithPatience(3))

	assert.Equal(t, 10, ls.iterations)
	assert.InDelta(t, 0.5, ls.delta, 1e-9)
	assert.Equal(t, 3, ls.patience)

	t.Run("non-positive values ignored", func(t *testing.T) {
		ls := NewLocalSearch(WithIterations(0), WithDelta(-1), WithPatience(0))
		assert.Equal(t, 500, ls.iterations)
		assert.InDelta(t, 0.25, ls.delta, 1e-9)
		assert.Equal(t, 50, ls.patience)
	})
}

func TestVideoPref(t *testing.T) {
	p := VideoPref(10)

	assert.InDelta(t, 10.0, p.Preferred, 1e-9)
	assert.InDelta(t, 7.0, p.Min, 1e-9)
	assert.InDelta(t, 13.0, p.Max, 1e-9)
}

func TestImagePref(t *testing.T) {
	p := ImagePref()

	assert.Zero(t, p.Preferred)
	assert.InDelta(t, 1.0, p.Min, 1e-9)
	assert.InDelta(t, 15.0, p.Max, 1e-9)
}

func TestScore_PenalizesViolationsAndJumps(t *testing.T) {
	prefs := []Pref{VideoPref(10), VideoPref(10)}

	inRange := score([]float64{10, 10}, prefs)
	outOfRange := score([]float64{5, 10}, prefs)
	assert.Greater(t, outOfRange, inRange, "range violation should raise the score")

	smooth := score([]float64{9, 10}, []Pref{ImagePref(), ImagePref()})
	spiky := score([]float64{2, 15}, []Pref{ImagePref(), ImagePref()})
	assert.Greater(t, spiky, smooth, "adjacent jump should raise the score")
}
