//go:build !linux

package adc

import "codeberg.org/mutker/powermon/internal/errors"

// MCP3008 is only available on linux spidev
type MCP3008 struct{}

func OpenMCP3008(path string, _ uint32) (*MCP3008, error) {
	return nil, errors.New().WithData(ErrUnsupported, path)
}

func (*MCP3008) Read(int) (int, error) {
	return 0, errors.New().New(ErrUnsupported)
}

func (*MCP3008) Close() error {
	return nil
}
