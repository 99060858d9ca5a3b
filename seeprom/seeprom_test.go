package seeprom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/nvm/nvmctrl"
)

func userPageWithSEE(blocks, psz byte) []byte {
	page := make([]byte, 16)
	page[4] = blocks&0xF | psz<<4
	return page
}

func TestRetrieve_Disabled(t *testing.T) {
	sim := nvmctrl.NewSimulator(2048)
	require.NoError(t, sim.LoadUserPage(make([]byte, 16)))

	c, err := nvmctrl.Open(sim)
	require.NoError(t, err)
	defer c.Release()

	_, err = Retrieve(c)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Empty(t, c.Reserved())
}

func TestRetrieve_ReservesTopOfBothBanks(t *testing.T) {
	sim := nvmctrl.NewSimulator(2048) // 1 MiB, 512 KiB banks
	require.NoError(t, sim.LoadUserPage(userPageWithSEE(2, 3)))

	c, err := nvmctrl.Open(sim)
	require.NoError(t, err)
	defer c.Release()

	s, err := Retrieve(c)
	require.NoError(t, err)

	assert.Equal(t, uint32(2), s.Blocks())
	assert.Equal(t, uint32(32), s.PageSize())

	bankSize := c.BankSize()
	expected := []nvmctrl.Range{
		{Start: bankSize - 2*nvmctrl.BlockSize, End: bankSize},
		{Start: 2*bankSize - 2*nvmctrl.BlockSize, End: 2 * bankSize},
	}
	assert.Equal(t, expected, s.Reserved())
	assert.Equal(t, expected, c.Reserved())
}

func TestRetrieve_BlocksProgramming(t *testing.T) {
	sim := nvmctrl.NewSimulator(2048)
	require.NoError(t, sim.LoadUserPage(userPageWithSEE(1, 0)))

	c, err := nvmctrl.Open(sim)
	require.NoError(t, err)
	defer c.Release()

	_, err = Retrieve(c)
	require.NoError(t, err)

	top := c.BankSize() - nvmctrl.BlockSize
	err = c.Write(top, 0x2000_0000, 4)
	assert.ErrorIs(t, err, nvmctrl.ErrReservedRegion)

	err = c.Erase(top, 1, nvmctrl.EraseBlock)
	assert.ErrorIs(t, err, nvmctrl.ErrReservedRegion)

	// The rest of the bank stays writable.
	assert.NoError(t, c.Erase(4*nvmctrl.BlockSize, 1, nvmctrl.EraseBlock))
}
