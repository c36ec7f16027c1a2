// Package syscon implements the platform's system controller: a single
// 32-bit MMIO register that resets or powers the machine off when
// written a magic value, per spec.md §6.
package syscon

import "fmt"

const (
	// ValueReset and ValuePoweroff are the only two writes with defined
	// behaviour; any other value is accepted and dropped.
	ValueReset    = 0x5555
	ValuePoweroff = 0x7777
)

// SysCon is the system controller. It holds no state of its own; a write
// of a magic value invokes the corresponding callback synchronously,
// which the platform wires to the hart's Reset/PoweredOff flags.
type SysCon struct {
	onReset    func()
	onPoweroff func()
}

// New returns a SysCon that calls onReset/onPoweroff when the guest
// writes the corresponding magic value.
func New(onReset, onPoweroff func()) *SysCon {
	return &SysCon{onReset: onReset, onPoweroff: onPoweroff}
}

func (s *SysCon) Load(off uint64, width int) (uint64, error) {
	return 0, nil
}

func (s *SysCon) Store(off uint64, width int, val uint64) error {
	if off != 0 {
		return fmt.Errorf("syscon: unsupported offset %#x", off)
	}

	switch val {
	case ValueReset:
		if s.onReset != nil {
			s.onReset()
		}
	case ValuePoweroff:
		if s.onPoweroff != nil {
			s.onPoweroff()
		}
	}

	return nil
}
