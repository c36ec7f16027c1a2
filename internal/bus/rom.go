package bus

import "encoding/binary"

// BootROM is the tiny reset-vector stub the platform installs at 0x1000.
// It hands the guest firmware the two values it needs before jumping in:
// the devicetree blob address (in a1, per the RISC-V supervisor boot
// convention) and the firmware entry point (via an indirect jump).
//
// The stub is four 32-bit words followed by the two 64-bit data words it
// reads from:
//
//	auipc t0, 0         ; t0 = 0x1000
//	ld    a1, 16(t0)    ; a1 = dtbAddr
//	ld    t0, 24(t0)    ; t0 = entryAddr
//	jalr  x0, 0(t0)     ; pc = entryAddr
//	.quad dtbAddr
//	.quad entryAddr
//
// spec.md describes this as a "three-instruction stub"; the auipc that
// seeds t0 with its own address is a preparatory instruction a real
// reset vector needs before either load can reach an absolute 64-bit
// address, so the stub is four instructions plus the two data words it
// loads through t0.
type BootROM struct {
	code [32]byte
}

// NewBootROM builds the stub for the given devicetree and firmware
// entry addresses.
func NewBootROM(dtbAddr, entryAddr uint64) *BootROM {
	r := &BootROM{}

	const (
		auipcT0    = 0x00000297 // auipc t0, 0
		ldA1_16T0  = 0x0102b583 // ld a1, 16(t0)
		ldT0_24T0  = 0x0182b283 // ld t0, 24(t0)
		jalrX0T0_0 = 0x00028067 // jalr x0, 0(t0)
	)

	binary.LittleEndian.PutUint32(r.code[0:4], auipcT0)
	binary.LittleEndian.PutUint32(r.code[4:8], ldA1_16T0)
	binary.LittleEndian.PutUint32(r.code[8:12], ldT0_24T0)
	binary.LittleEndian.PutUint32(r.code[12:16], jalrX0T0_0)
	binary.LittleEndian.PutUint64(r.code[16:24], dtbAddr)
	binary.LittleEndian.PutUint64(r.code[24:32], entryAddr)

	return r
}

func (r *BootROM) Fetchable() bool { return true }

func (r *BootROM) Load(off uint64, width int) (uint64, error) {
	n := uint64(width / 8)
	if off+n > uint64(len(r.code)) {
		return 0, nil
	}

	var v uint64
	for i := uint64(0); i < n; i++ {
		v |= uint64(r.code[off+i]) << (8 * i)
	}

	return v, nil
}

func (r *BootROM) Store(off uint64, width int, val uint64) error {
	return nil // ROM: writes are silently dropped.
}
