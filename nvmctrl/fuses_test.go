package nvmctrl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userPageImage = []byte{
	0xA5, 0x3C, 0x96, 0x01, 0x5A, 0xC3, 0x0F, 0xF0,
	0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88,
}

func TestUserPage_Decode(t *testing.T) {
	p, err := ParseUserPage(userPageImage)
	require.NoError(t, err)

	assert.True(t, p.BOD33Disable())
	assert.Equal(t, uint32(0x52), p.BOD33Level())
	assert.Equal(t, uint32(2), p.BOD33Action())
	assert.Equal(t, uint32(7), p.BOD33Hysteresis())
	assert.Equal(t, uint32(0x1963), p.BOD12Calibration())
	assert.Equal(t, uint32(0), p.NVMBootloaderSize())
	assert.Equal(t, uint32(10), p.SEEBlocks())
	assert.Equal(t, uint32(5), p.SEEPageSize())
	assert.False(t, p.RAMECCDisable())
	assert.True(t, p.WDTEnable())
	assert.True(t, p.WDTAlwaysOn())
	assert.Equal(t, uint32(3), p.WDTPeriod())
	assert.Equal(t, uint32(0), p.WDTWindow())
	assert.Equal(t, uint32(12), p.WDTEWOffset())
	assert.True(t, p.WDTWindowEnable())
	assert.Equal(t, uint32(0x44332211), p.NVMLocks())
	assert.Equal(t, uint32(0x88776655), p.UserDefined())
}

func TestUserPage_ParseLength(t *testing.T) {
	_, err := ParseUserPage(userPageImage[:10])
	assert.Error(t, err)
	_, err = ParseUserPage(append([]byte{}, make([]byte, 32)...))
	assert.Error(t, err)
}

func TestCalibrationArea_Decode(t *testing.T) {
	a, err := ParseCalibrationArea([]byte{0xB7, 0x5E, 0x21, 0x00, 0x9A, 0x4D})
	require.NoError(t, err)

	assert.Equal(t, uint32(3), a.ACBias())
	assert.Equal(t, uint32(5), a.ADC0BiasComp())
	assert.Equal(t, uint32(5), a.ADC0BiasRefBuf())
	assert.Equal(t, uint32(6), a.ADC0BiasR2R())
	assert.Equal(t, uint32(1), a.ADC1BiasComp())
	assert.Equal(t, uint32(4), a.ADC1BiasRefBuf())
	assert.Equal(t, uint32(0), a.ADC1BiasR2R())
	assert.Equal(t, uint32(26), a.USBTransN())
	assert.Equal(t, uint32(12), a.USBTransP())
	assert.Equal(t, uint32(3), a.USBTrim())
}

func TestTemperaturesCalibrationArea_Decode(t *testing.T) {
	a, err := ParseTemperaturesCalibrationArea([]byte{
		0x7F, 0xA3, 0x52, 0x06, 0x00, 0x12, 0xA3, 0x45, 0x3C, 0x5A, 0x07,
	})
	require.NoError(t, err)

	assert.Equal(t, uint32(127), a.TLI())
	assert.Equal(t, uint32(3), a.TLD())
	assert.Equal(t, uint32(42), a.THI())
	assert.Equal(t, uint32(5), a.THD())
	assert.Equal(t, uint32(0x312), a.VPL())
	assert.Equal(t, uint32(0x45A), a.VPH())
	// VCL crosses the 64 bit boundary of the accumulator.
	assert.Equal(t, uint32(0x1478), a.VCL())
	assert.Equal(t, uint32(0x75), a.VCH())
}

func TestFixedRegions_ReadThroughController(t *testing.T) {
	sim, c := openSim(t, 256)
	require.NoError(t, sim.LoadUserPage(userPageImage))
	require.NoError(t, sim.LoadCalibrationArea([]byte{0xB7, 0x5E, 0x21, 0x00, 0x9A, 0x4D}))
	require.NoError(t, sim.LoadTemperaturesCalibrationArea([]byte{
		0x7F, 0xA3, 0x52, 0x06, 0x00, 0x12, 0xA3, 0x45, 0x3C, 0x5A, 0x07,
	}))

	parsed, err := ParseUserPage(userPageImage)
	require.NoError(t, err)
	assert.Equal(t, parsed, c.UserPage())

	assert.Equal(t, uint32(3), c.CalibrationArea().ACBias())
	assert.Equal(t, uint32(127), c.TemperaturesCalibrationArea().TLI())

	// Reads are fresh snapshots, not cached.
	require.NoError(t, sim.LoadUserPage(make([]byte, 16)))
	assert.False(t, c.UserPage().BOD33Disable())
}

func TestFixedRegions_LoadLengthChecks(t *testing.T) {
	sim := NewSimulator(64)
	assert.Error(t, sim.LoadUserPage(make([]byte, 15)))
	assert.Error(t, sim.LoadCalibrationArea(make([]byte, 8)))
	assert.Error(t, sim.LoadTemperaturesCalibrationArea(make([]byte, 16)))
}
