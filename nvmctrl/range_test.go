package nvmctrl

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRange_Overlap(t *testing.T) {
	tests := []struct {
		a, b     Range
		expected bool
	}{
		{Range{0, 10}, Range{5, 15}, true},
		{Range{0, 10}, Range{10, 20}, true}, // touching ranges count
		{Range{0, 10}, Range{11, 20}, false},
		{Range{100, 200}, Range{0, 50}, false},
		{Range{0, 0}, Range{0, 10}, false}, // empty never overlaps
		{Range{5, 5}, Range{0, 10}, false},
		{Range{0, 10}, Range{7, 7}, false},
		{Range{0, 0}, Range{0, 0}, false},
		{Range{0, 0x1_0000}, Range{0x8000, 0x8004}, true},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s_%s", test.a, test.b), func(t *testing.T) {
			assert.Equal(t, test.expected, test.a.Overlap(test.b))
			// Overlap is symmetric.
			assert.Equal(t, test.expected, test.b.Overlap(test.a))
		})
	}
}

func TestRange_Empty(t *testing.T) {
	assert.True(t, Range{42, 42}.Empty())
	assert.False(t, Range{42, 43}.Empty())
}

func TestController_Reserve(t *testing.T) {
	sim := NewSimulator(256)
	c, err := Open(sim)
	assert.NoError(t, err)
	defer c.Release()

	assert.False(t, c.containsReserved(Range{0, 0x1000}))

	c.Reserve(Range{0x8000, 0xA000})
	c.Reserve(Range{0, 0}) // empty reservations are dropped

	assert.Len(t, c.Reserved(), 1)
	assert.True(t, c.containsReserved(Range{0x9000, 0x9004}))
	assert.False(t, c.containsReserved(Range{0x4000, 0x5000}))
}
