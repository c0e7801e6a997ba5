package adc

import (
	"codeberg.org/mutker/powermon/internal/errors"
)

// ChannelSampler reads a single channel of a Device and rejects codes
// outside the converter's resolution.
type ChannelSampler struct {
	device  Device
	channel int
	maxCode int
}

func NewChannelSampler(device Device, channel, maxCode int) *ChannelSampler {
	return &ChannelSampler{
		device:  device,
		channel: channel,
		maxCode: maxCode,
	}
}

// ReadSample performs one hardware read. Any failure is an acquisition error.
func (s *ChannelSampler) ReadSample() (int, error) {
	errFactory := errors.New()

	raw, err := s.device.Read(s.channel)
	if err != nil {
		if errors.HasCode(err, ErrReadFailed) {
			return 0, err
		}
		return 0, errFactory.Wrap(ErrReadFailed, err)
	}

	if raw < 0 || raw > s.maxCode {
		return 0, errFactory.Wrap(ErrReadFailed, errFactory.WithData(ErrSampleRange, struct {
			Channel int
			Raw     int
			Max     int
		}{
			Channel: s.channel,
			Raw:     raw,
			Max:     s.maxCode,
		}))
	}

	return raw, nil
}
