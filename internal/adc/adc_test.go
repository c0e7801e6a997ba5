package adc_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/powermon/internal/adc"
	"codeberg.org/mutker/powermon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingDevice struct {
	err error
}

func (d failingDevice) Read(int) (int, error) { return 0, d.err }
func (failingDevice) Close() error            { return nil }

func TestSimulatorCycles(t *testing.T) {
	sim := adc.NewSimulator(1, 2, 3)

	var got []int
	for i := 0; i < 5; i++ {
		v, err := sim.Read(0)
		require.NoError(t, err)
		got = append(got, v)
	}

	assert.Equal(t, []int{1, 2, 3, 1, 2}, got)
	assert.Equal(t, 5, sim.Reads())

	require.NoError(t, sim.Close())
	assert.True(t, sim.Closed())

	_, err := sim.Read(0)
	require.Error(t, err)
}

func TestChannelSampler(t *testing.T) {
	sampler := adc.NewChannelSampler(adc.NewSimulator(0, 512, 1023), 0, 1023)

	for _, want := range []int{0, 512, 1023} {
		got, err := sampler.ReadSample()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestChannelSamplerRejectsOutOfRange(t *testing.T) {
	for _, raw := range []int{-1, 1024} {
		sampler := adc.NewChannelSampler(adc.NewSimulator(raw), 0, 1023)

		_, err := sampler.ReadSample()
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrAcquisition))
		assert.True(t, errors.HasCode(err, adc.ErrSampleRange))
	}
}

func TestChannelSamplerWrapsDeviceFailure(t *testing.T) {
	cause := stderrors.New("bus unavailable")
	sampler := adc.NewChannelSampler(failingDevice{err: cause}, 0, 1023)

	_, err := sampler.ReadSample()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAcquisition))
	assert.ErrorIs(t, err, cause)
}

func TestChannelSamplerClosedDevice(t *testing.T) {
	sim := adc.NewSimulator(10)
	require.NoError(t, sim.Close())

	_, err := adc.NewChannelSampler(sim, 0, 1023).ReadSample()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAcquisition))
	assert.True(t, errors.HasCode(err, adc.ErrDeviceClosed))
}
