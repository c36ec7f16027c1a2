// Package hart implements a single RV64IMAFDC_Zifencei hart: integer and
// float register files, the privileged CSR file, Sv39/Sv48 address
// translation, the A-extension reservation set, and the per-instruction
// interpreter loop.
package hart

import (
	"github.com/arcbound/rv64hart/internal/bus"
	"github.com/arcbound/rv64hart/internal/decode"
	"github.com/arcbound/rv64hart/internal/log"
)

// Privilege is one of the three modes a hart may execute in.
type Privilege uint8

const (
	User       Privilege = 0
	Supervisor Privilege = 1
	Machine    Privilege = 3
)

func (p Privilege) String() string {
	switch p {
	case User:
		return "U"
	case Supervisor:
		return "S"
	case Machine:
		return "M"
	default:
		return "?"
	}
}

// NumGPR is the size of the integer and float register files.
const NumGPR = 32

// ResetPC is the address execution resumes at after construction or a
// system-controller reset, mirroring the boot ROM's reset vector.
const ResetPC = 0x1000

// reservationNone is the sentinel "no reservation held" value.
const reservationNone = ^uint64(0)

// CSRFile holds the privileged state addressed by Zicsr instructions.
// Fields that back a real control path (mstatus, mie, mip, satp, the trap
// vectors/scratch/epc/cause/tval pairs) are named; fields kept only for
// OpenSBI/Linux boot compatibility (PMP, trigger module, vendor IDs) are
// grouped at the bottom, per SPEC_FULL.md §5.
type CSRFile struct {
	MStatus  uint64
	MEDeleg  uint64
	MIDeleg  uint64
	MIE      uint64
	MIP      uint64
	MTVec    uint64
	MCounterEn uint32
	MScratch uint64
	MEPC     uint64
	MCause   uint64
	MTVal    uint64
	MEnvCfg  uint64

	STVec    uint64
	SCounterEn uint32
	SScratch uint64
	SEPC     uint64
	SCause   uint64
	STVal    uint64
	SEnvCfg  uint64

	SATP uint64

	FCSR uint8 // {frm[7:5], fflags[4:0]}

	// Boot-compatibility stubs; see SPEC_FULL.md §5.
	MTInst  uint64
	MTVal2  uint64
	TSelect uint64
	TData   [3]uint64
	PMPCfg  [16]uint64
	PMPAddr [64]uint64
}

// mip/mie bit positions, per spec.md §6.
const (
	SSIP = 1 << 1
	MSIP = 1 << 3
	STIP = 1 << 5
	MTIP = 1 << 7
	SEIP = 1 << 9
	MEIP = 1 << 11
)

// mstatus field masks/shifts used by csr.go and trap.go.
const (
	statusSIE  = 1 << 1
	statusMIE  = 1 << 3
	statusSPIE = 1 << 5
	statusMPIE = 1 << 7
	statusSPP  = 1 << 8
	statusMPPShift = 11
	statusMPPMask  = 0x3 << statusMPPShift
	statusFSShift  = 13
	statusFSMask   = 0x3 << statusFSShift
	statusMPRV = 1 << 17
	statusSUM  = 1 << 18
	statusMXR  = 1 << 19
	statusSD   = 1 << 63
)

// Wire is a level-sensitive external line (CLINT/PLIC output) the
// platform wires into a mip bit. It is polled once per interpreter
// boundary rather than pushed, matching the single-threaded cooperative
// scheduling model in spec.md §5.
type Wire func() bool

// Hart is one RV64IMAFDC_Zifencei core.
type Hart struct {
	PC uint64
	X  [NumGPR]uint64
	F  [NumGPR]uint64

	Priv Privilege

	MCycle   uint64
	MInstret uint64

	CSR CSRFile

	ReservationAddr uint64

	WaitingForInterrupt bool

	Bus     *bus.Bus
	Decoder *decode.Decoder

	tlb tlbSet

	// wires maps a mip bit (SSIP, MSIP, ...) to the external line that
	// asserts it. CLINT drives MSIP/MTIP; PLIC drives MEIP/SEIP. SSIP/
	// STIP are software/CLINT-timer-delegated bits set directly by CSR
	// writes, so they have no wire entry.
	wires map[uint64]Wire

	// Reset and PoweredOff are set by the system-controller device and
	// observed by Step at the instruction boundary (spec.md §5).
	Reset      bool
	PoweredOff bool

	// pcWritten records whether the instruction just executed by execute
	// redirected control flow itself (branch, jump, trap return), so
	// stepOnce knows not to also apply the fall-through PC increment.
	// Reset at the top of every execute call.
	pcWritten bool

	log *log.Logger
}

// New constructs a hart wired to bus and decoder, reset to the boot ROM
// vector.
func New(b *bus.Bus, d *decode.Decoder) *Hart {
	h := &Hart{
		PC:              ResetPC,
		Priv:            Machine,
		ReservationAddr: reservationNone,
		Bus:             b,
		Decoder:         d,
		wires:           make(map[uint64]Wire),
		log:             log.DefaultLogger(),
	}

	h.tlb.reset()

	// menvcfg resets to 0. misa (RV64IMAFDCSU) is not stored; misaValue
	// computes it on read.
	h.CSR.MEnvCfg = 0

	return h
}

// Wire registers fn as the source of mip bit. Called during platform
// assembly to connect CLINT's MSIP/MTIP and PLIC's MEIP/SEIP outputs.
func (h *Hart) Wire(bit uint64, fn Wire) {
	h.wires[bit] = fn
}

// syncWires folds every registered external line into mip, preserving
// the software/CLINT-set SSIP/STIP bits that have no wire.
func (h *Hart) syncWires() {
	for bit, fn := range h.wires {
		if fn() {
			h.CSR.MIP |= bit
		} else {
			h.CSR.MIP &^= bit
		}
	}
}

// GPR reads integer register i; x0 always reads zero.
func (h *Hart) GPR(i int) uint64 {
	if i == 0 {
		return 0
	}

	return h.X[i]
}

// SetGPR writes integer register i; writes to x0 are discarded.
func (h *Hart) SetGPR(i int, v uint64) {
	if i != 0 {
		h.X[i] = v
	}
}
