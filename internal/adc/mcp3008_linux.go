//go:build linux

package adc

import (
	"runtime"
	"unsafe"

	"codeberg.org/mutker/powermon/internal/errors"
	"golang.org/x/sys/unix"
)

// spidev ioctl requests (linux/spi/spidev.h)
const (
	spiIocWrMode        = 0x40016b01
	spiIocWrBitsPerWord = 0x40016b03
	spiIocWrMaxSpeedHz  = 0x40046b04
	spiIocMessage1      = 0x40206b00

	spiMode0    = 0
	bitsPerWord = 8

	mcp3008Channels = 8
)

// spiIocTransfer mirrors struct spi_ioc_transfer
type spiIocTransfer struct {
	txBuf          uint64
	rxBuf          uint64
	length         uint32
	speedHz        uint32
	delayUsecs     uint16
	bitsPerWord    uint8
	csChange       uint8
	txNbits        uint8
	rxNbits        uint8
	wordDelayUsecs uint8
	pad            uint8
}

// MCP3008 reads a 10-bit MCP3008 converter attached to a spidev node.
// The transfer buffers live on the heap-allocated handle so their addresses
// stay fixed while the kernel reads them.
type MCP3008 struct {
	fd      int
	speedHz uint32
	closed  bool
	tx      [3]byte
	rx      [3]byte
}

// OpenMCP3008 claims the spidev node at path and configures SPI mode 0
func OpenMCP3008(path string, speedHz uint32) (*MCP3008, error) {
	errFactory := errors.New()

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errFactory.WithData(ErrOpenFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "open_device",
			Path:  path,
			Error: err.Error(),
		})
	}

	mode := uint8(spiMode0)
	bits := uint8(bitsPerWord)
	setup := []struct {
		phase string
		req   uintptr
		arg   unsafe.Pointer
	}{
		{"set_mode", spiIocWrMode, unsafe.Pointer(&mode)},
		{"set_bits_per_word", spiIocWrBitsPerWord, unsafe.Pointer(&bits)},
		{"set_speed", spiIocWrMaxSpeedHz, unsafe.Pointer(&speedHz)},
	}
	for _, s := range setup {
		if err := ioctl(fd, s.req, s.arg); err != nil {
			unix.Close(fd)
			return nil, errFactory.WithData(ErrOpenFailed, struct {
				Phase string
				Path  string
				Error string
			}{
				Phase: s.phase,
				Path:  path,
				Error: err.Error(),
			})
		}
	}

	return &MCP3008{fd: fd, speedHz: speedHz}, nil
}

// Read performs a single-ended conversion on channel 0..7
func (m *MCP3008) Read(channel int) (int, error) {
	errFactory := errors.New()

	if m.closed {
		return 0, errFactory.Wrap(ErrReadFailed, errFactory.New(ErrDeviceClosed))
	}
	if channel < 0 || channel >= mcp3008Channels {
		return 0, errFactory.WithData(ErrBadChannel, channel)
	}

	// start bit, single-ended mode with channel select, padding
	m.tx = [3]byte{0x01, byte(0x80 | channel<<4), 0x00}
	m.rx = [3]byte{}

	xfer := spiIocTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&m.tx[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&m.rx[0]))),
		length:      uint32(len(m.tx)),
		speedHz:     m.speedHz,
		bitsPerWord: bitsPerWord,
	}

	err := ioctl(m.fd, spiIocMessage1, unsafe.Pointer(&xfer))
	runtime.KeepAlive(m)
	if err != nil {
		return 0, errFactory.Wrap(ErrReadFailed, err)
	}

	return int(m.rx[1]&0x03)<<8 | int(m.rx[2]), nil
}

// Close releases the spidev node. Closing twice is a no-op.
func (m *MCP3008) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	if err := unix.Close(m.fd); err != nil {
		return errors.New().Wrap(ErrCloseFailed, err)
	}

	return nil
}

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}

	return nil
}
