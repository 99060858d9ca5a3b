package nvmctrl

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ramBase uint32 = 0x2000_0000

func openSim(t *testing.T, pages int) (*Simulator, *Controller) {
	t.Helper()
	sim := NewSimulator(pages)
	c, err := Open(sim)
	require.NoError(t, err)
	t.Cleanup(c.Release)
	return sim, c
}

func words(n int, seed uint32) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = seed + uint32(i)*0x0101_0101
	}
	return out
}

func TestWrite_Alignment(t *testing.T) {
	tests := []struct {
		name     string
		dst, src uint32
	}{
		{"destination", 0x1_0002, ramBase},
		{"source", 0x1_0000, ramBase + 1},
		{"both", 0x1_0003, ramBase + 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sim, c := openSim(t, 2048)
			err := c.Write(test.dst, test.src, 4)
			assert.ErrorIs(t, err, ErrAlignment)
			assert.Zero(t, sim.TotalIssued())
		})
	}
}

func TestWrite_BootProtected(t *testing.T) {
	sim, c := openSim(t, 2048)
	sim.SetBootProt(14) // 8 KiB protected at the base of the active bank

	for _, count := range []uint32{1, 128, 4096} {
		err := c.Write(0, ramBase, count)
		assert.ErrorIs(t, err, ErrProtected)
	}
	assert.Zero(t, sim.TotalIssued())
}

func TestWrite_ProtectionDisabled(t *testing.T) {
	sim, c := openSim(t, 2048)
	// Maximum protected size, but enforcement switched off.
	sim.SetBootProt(0)
	sim.SetBootProtectionDisabled(true)

	sim.LoadRAM(ramBase, words(2, 0xCAFE_0000))
	assert.NoError(t, c.Write(0, ramBase, 2))
}

func TestWrite_ReservedRegion(t *testing.T) {
	sim, c := openSim(t, 2048)
	c.Reserve(Range{0x2_0000, 0x2_2000})

	err := c.Write(0x2_1000, ramBase, 8)
	assert.ErrorIs(t, err, ErrReservedRegion)
	assert.Zero(t, sim.TotalIssued())
}

func TestWrite_SinglePartialPage(t *testing.T) {
	sim, c := openSim(t, 2048)
	src := words(2, 0xDEAD_0001)
	sim.LoadRAM(ramBase, src)

	require.NoError(t, c.Write(0x1_0000, ramBase, 2))

	assert.Equal(t, 1, sim.Issued(CmdPBC))
	// A trailing partial page needs exactly one commit.
	assert.Equal(t, 1, sim.Issued(CmdWP))

	expected := make([]byte, 8)
	binary.LittleEndian.PutUint32(expected[0:], src[0])
	binary.LittleEndian.PutUint32(expected[4:], src[1])
	assert.Equal(t, expected, sim.ReadFlash(0x1_0000, 8))
}

func TestWrite_ExactPage(t *testing.T) {
	sim, c := openSim(t, 2048)
	sim.LoadRAM(ramBase, words(128, 0xAA00_0000))

	require.NoError(t, c.Write(0x1_0000, ramBase, 128))

	// One buffer clear, one page commit at the boundary, nothing trailing.
	assert.Equal(t, 1, sim.Issued(CmdPBC))
	assert.Equal(t, 1, sim.Issued(CmdWP))
}

func TestWrite_PageBoundaryCrossing(t *testing.T) {
	sim, c := openSim(t, 2048)
	src := words(130, 0xBB00_0000)
	sim.LoadRAM(ramBase, src)

	require.NoError(t, c.Write(0x1_0000, ramBase, 130))

	assert.Equal(t, 1, sim.Issued(CmdPBC))
	// One commit at the page boundary, one for the trailing two words.
	assert.Equal(t, 2, sim.Issued(CmdWP))

	expected := make([]byte, 520)
	for i, w := range src {
		binary.LittleEndian.PutUint32(expected[i*4:], w)
	}
	assert.Equal(t, expected, sim.ReadFlash(0x1_0000, 520))
}

func TestWrite_TrailingPageTailStaysErased(t *testing.T) {
	sim, c := openSim(t, 2048)
	sim.LoadRAM(ramBase, words(130, 0xAAAA_AAAA))

	require.NoError(t, c.Write(0x1_0000, ramBase, 130))

	// The page buffer comes back erased after each commit, so the two
	// trailing words must not drag bytes of the first page into the
	// rest of the second one.
	for _, b := range sim.ReadFlash(0x1_0000+520, PageSize-8) {
		require.Equal(t, byte(0xFF), b)
	}
}

func TestWrite_UnalignedPageStart(t *testing.T) {
	sim, c := openSim(t, 2048)
	sim.LoadRAM(ramBase, words(128, 0xCC00_0000))

	// Starts mid-page, so a full page worth of words crosses one boundary
	// and leaves a trailing partial page.
	require.NoError(t, c.Write(0x1_0100, ramBase, 128))

	assert.Equal(t, 1, sim.Issued(CmdPBC))
	assert.Equal(t, 2, sim.Issued(CmdWP))
}

func TestErase_RoundsDownToUnit(t *testing.T) {
	sim, c := openSim(t, 2048)
	src := words(4, 0x1234_0000)
	sim.LoadRAM(ramBase, src)

	block := uint32(3) * BlockSize
	require.NoError(t, c.Write(block, ramBase, 4))
	require.NotEqual(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, sim.ReadFlash(block, 4))

	// A mid-block address erases the whole containing block.
	require.NoError(t, c.Erase(block+100, 1, EraseBlock))

	assert.Equal(t, 1, sim.Issued(CmdEB))
	for _, b := range sim.ReadFlash(block, BlockSize) {
		require.Equal(t, byte(0xFF), b)
	}
}

func TestErase_RoundedRangeChecksProtection(t *testing.T) {
	sim, c := openSim(t, 2048)
	sim.SetBootProt(13) // 16 KiB protected

	// 0x4004 rounds down to 0x4000, which still touches the protected
	// range, so the whole request is rejected before any command.
	err := c.Erase(0x4004, 1, EraseBlock)
	assert.ErrorIs(t, err, ErrProtected)
	assert.Zero(t, sim.TotalIssued())

	// Further up the bank the rounded range is clear of the guard.
	assert.NoError(t, c.Erase(3*BlockSize+4, 1, EraseBlock))
	assert.Equal(t, 1, sim.Issued(CmdEB))
}

func TestErase_MultipleUnits(t *testing.T) {
	sim, c := openSim(t, 2048)

	require.NoError(t, c.Erase(4*BlockSize, 3, EraseBlock))
	assert.Equal(t, 3, sim.Issued(CmdEB))

	sim.ResetCounters()
	require.NoError(t, c.Erase(4*BlockSize, 2, ErasePage))
	assert.Equal(t, 2, sim.Issued(CmdEP))
}

func TestErase_ReservedRegion(t *testing.T) {
	sim, c := openSim(t, 2048)
	c.Reserve(Range{0x4_0000, 0x4_2000})

	err := c.Erase(0x4_0000, 1, EraseBlock)
	assert.ErrorIs(t, err, ErrReservedRegion)
	assert.Zero(t, sim.TotalIssued())
}

func TestErase_StopsOnFirstError(t *testing.T) {
	sim, c := openSim(t, 2048)
	sim.InjectError(LockError)

	err := c.Erase(4*BlockSize, 3, EraseBlock)
	assert.ErrorIs(t, err, LockError)
	// The loop stops immediately; the remaining units are never touched.
	assert.Equal(t, 1, sim.Issued(CmdEB))
}

func TestEraseGranularity(t *testing.T) {
	assert.Equal(t, uint32(512), ErasePage.Size())
	assert.Equal(t, uint32(8192), EraseBlock.Size())
	assert.Equal(t, CmdEP, ErasePage.command())
	assert.Equal(t, CmdEB, EraseBlock.command())
}
