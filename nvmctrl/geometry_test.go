package nvmctrl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry_Sizing(t *testing.T) {
	sim := NewSimulator(2048) // 1 MiB part
	c, err := Open(sim)
	require.NoError(t, err)
	defer c.Release()

	assert.Equal(t, uint32(1024*1024), c.FlashSize())
	// Identical on every call within a session.
	assert.Equal(t, c.FlashSize(), c.FlashSize())
	assert.Equal(t, c.FlashSize()/2, c.BankSize())

	g := c.Geometry()
	assert.Equal(t, uint32(512*1024), g.BankSize())
}

func TestGeometry_BankAddresses(t *testing.T) {
	for _, pages := range []int{512, 1024, 2048} {
		sim := NewSimulator(pages)
		c, err := Open(sim)
		require.NoError(t, err)

		g := c.Geometry()
		assert.Equal(t, uint32(0), BankActive.Address(g))
		assert.Equal(t, g.BankSize(), BankInactive.Address(g))
		assert.Equal(t, g.BankSize(), BankActive.Length(g))
		assert.Equal(t, g.BankSize(), BankInactive.Length(g))

		c.Release()
	}
}

// unsupportedTarget reports a page size encoding other than 512 bytes.
type unsupportedTarget struct {
	*Simulator
}

func (u unsupportedTarget) Read32(off uint32) uint32 {
	if off == regPARAM {
		return 64 | 0x5<<paramPSZShift // 256 byte pages
	}
	return u.Simulator.Read32(off)
}

func TestGeometry_UnsupportedPageSize(t *testing.T) {
	c, err := Open(unsupportedTarget{NewSimulator(64)})
	require.NoError(t, err)
	defer c.Release()

	assert.Panics(t, func() { c.Geometry() })
}
