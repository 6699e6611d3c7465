package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"mbo-features/internal/obslog"
)

// Feed five FeatureSets with midprice in {10,11,12,13,14} and all other
// fields zero; normalize a sixth with midprice=15 and expect
// z = (15-12)/sqrt(2) ~= 2.1213.
func TestNormalizerZScoreScenario(t *testing.T) {
	n := NewNormalizer(30000, obslog.Nop())
	for _, mid := range []float64{10, 11, 12, 13, 14} {
		n.Add(Set{Midprice: mid})
	}
	sixth := Set{Midprice: 15}
	out := n.Normalize(sixth)
	assert.InDelta(t, 2.1213, out.Midprice, 1e-3)
}

func TestNormalizerVarianceNonPositiveFallback(t *testing.T) {
	n := NewNormalizer(30000, obslog.Nop())
	for i := 0; i < 5; i++ {
		n.Add(Set{Midprice: 7})
	}
	out := n.Normalize(Set{Midprice: 7})
	assert.Equal(t, 0.0, out.Midprice)
}

func TestNormalizerOldMidprice(t *testing.T) {
	n := NewNormalizer(30000, obslog.Nop())
	for _, mid := range []float64{10, 11, 12} {
		n.Add(Set{Midprice: mid})
	}
	assert.Equal(t, 12.0, n.OldMidprice(0))
	assert.Equal(t, 11.0, n.OldMidprice(1))
	assert.Equal(t, 10.0, n.OldMidprice(2))
	assert.Equal(t, 0.0, n.OldMidprice(5))
}

func TestNormalizerWindowEviction(t *testing.T) {
	n := NewNormalizer(3, obslog.Nop())
	n.Add(Set{Midprice: 1})
	n.Add(Set{Midprice: 2})
	n.Add(Set{Midprice: 3})
	n.Add(Set{Midprice: 4})
	assert.Equal(t, 3, n.Len())
	// window is now {2,3,4}; mean=3
	out := n.Normalize(Set{Midprice: 4})
	assert.False(t, math.IsNaN(out.Midprice))
}
