// Package uart implements a minimal memory-mapped serial port: one
// byte-wide data register and one status register, enough for a guest
// console driver and for internal/console to bridge to a host
// terminal. It is the kind of device spec.md §6 leaves as "any
// VirtIO-MMIO or simple MMIO device may be mapped into the device
// band"; this one exists so internal/console and the boot command
// have somewhere concrete to plug in.
package uart

import (
	"fmt"
	"sync"
)

// Size is the MMIO footprint reserved for one UART instance.
const Size = 0x1000

const (
	offData   = 0x00 // read: pop next RX byte (0 if empty); write: transmit.
	offStatus = 0x04 // bit0: RX has data; bit1: TX always ready.

	statusRXReady = 1 << 0
	statusTXReady = 1 << 1
)

// UART is a serial port with an unbounded RX queue. RX bytes pushed by
// the host (Push) are delivered in order, one per data-register read;
// bytes the guest writes to the data register are delivered to the
// host via the onTX callback, e.g. into a terminal or a log.
type UART struct {
	mu sync.Mutex

	rx   []byte
	onTX func(byte)
	irq  func()
}

// New returns a UART with an empty RX buffer. onTX is called
// synchronously for every byte the guest writes; a nil onTX discards
// transmitted bytes. irq, if non-nil, is called whenever Push makes
// the RX buffer non-empty, for wiring into the PLIC.
func New(onTX func(byte), irq func()) *UART {
	return &UART{onTX: onTX, irq: irq}
}

// Push appends a byte to the RX buffer, as if received from the host
// keyboard or a pty.
func (u *UART) Push(b byte) {
	u.mu.Lock()
	u.rx = append(u.rx, b)
	u.mu.Unlock()

	if u.irq != nil {
		u.irq()
	}
}

func (u *UART) Load(off uint64, width int) (uint64, error) {
	if width != 32 && width != 8 {
		return 0, fmt.Errorf("uart: unsupported load width %d", width)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	switch off {
	case offData:
		if len(u.rx) == 0 {
			return 0, nil
		}

		b := u.rx[0]
		u.rx = u.rx[1:]

		return uint64(b), nil

	case offStatus:
		var v uint64 = statusTXReady
		if len(u.rx) > 0 {
			v |= statusRXReady
		}

		return v, nil
	}

	return 0, nil
}

func (u *UART) Store(off uint64, width int, val uint64) error {
	if width != 32 && width != 8 {
		return fmt.Errorf("uart: unsupported store width %d", width)
	}

	switch off {
	case offData:
		if u.onTX != nil {
			u.onTX(byte(val))
		}
	case offStatus:
		// Status is read-only from the guest's side; writes are ignored.
	}

	return nil
}
