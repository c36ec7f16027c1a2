package hart

// trap.go implements the privilege FSM: synchronous exception and
// interrupt delivery, delegation, and MRET/SRET, per spec.md §4.3.

// Cause numbers for synchronous exceptions, per spec.md §6.
const (
	CauseInstrAddrMisaligned = 0
	CauseInstrAccessFault    = 1
	CauseIllegalInstruction  = 2
	CauseBreakpoint          = 3
	CauseLoadAddrMisaligned  = 4
	CauseLoadAccessFault     = 5
	CauseStoreAddrMisaligned = 6
	CauseStoreAccessFault    = 7
	CauseECallFromU          = 8
	CauseECallFromS          = 9
	CauseECallFromM          = 11
	CauseInstrPageFault      = 12
	CauseLoadPageFault       = 13
	CauseStorePageFault      = 15
)

// Interrupt cause numbers (the bit position within mip/mie); the taken
// mcause/scause value additionally sets the top bit.
const (
	InterruptSSI = 1
	InterruptMSI = 3
	InterruptSTI = 5
	InterruptMTI = 7
	InterruptSEI = 9
	InterruptMEI = 11
)

const interruptCauseBit = uint64(1) << 63

// CPUException is a guest exception: expected control flow, delivered as
// a RISC-V trap and never surfaced to the host as an error (spec.md §7).
type CPUException struct {
	Cause uint64
	Tval  uint64
}

func (e *CPUException) Error() string {
	return "hart: guest exception"
}

// raise records a pending synchronous exception for the caller to hand
// to enterTrap. Handlers return this instead of a Go error.
func raise(cause, tval uint64) *CPUException {
	return &CPUException{Cause: cause, Tval: tval}
}

// pollInterrupt returns the highest-priority deliverable interrupt's
// cause (with the interrupt bit set) and whether it should be delivered
// to S instead of M, or ok=false if nothing is deliverable right now.
func (h *Hart) pollInterrupt() (cause uint64, toS bool, ok bool) {
	h.syncWires()

	pending := h.CSR.MIP & h.CSR.MIE
	if pending == 0 {
		return 0, false, false
	}

	// Priority order highest to lowest, per spec.md §4.3.
	order := []uint64{MEIP, MSIP, MTIP, SEIP, SSIP, STIP}
	bits := map[uint64]uint64{
		MEIP: InterruptMEI, MSIP: InterruptMSI, MTIP: InterruptMTI,
		SEIP: InterruptSEI, SSIP: InterruptSSI, STIP: InterruptSTI,
	}

	for _, bit := range order {
		if pending&bit == 0 {
			continue
		}

		num := bits[bit]
		delegated := h.CSR.MIDeleg&(1<<num) != 0

		switch {
		case delegated && h.Priv < Supervisor:
			return interruptCauseBit | num, true, true
		case delegated && h.Priv == Supervisor && h.CSR.MStatus&statusSIE != 0:
			return interruptCauseBit | num, true, true
		case !delegated || h.Priv == Machine:
			if h.Priv < Machine || h.CSR.MStatus&statusMIE != 0 {
				return interruptCauseBit | num, false, true
			}
		}
	}

	return 0, false, false
}

// enterTrap performs trap entry to either M or S mode for the given
// cause/tval, per spec.md §4.3.
func (h *Hart) enterTrap(cause, tval uint64, toS bool) {
	h.ReservationAddr = reservationNone

	if toS {
		h.CSR.SCause = cause
		h.CSR.STVal = tval
		h.CSR.SEPC = h.PC

		if h.CSR.MStatus&statusSIE != 0 {
			h.CSR.MStatus |= statusSPIE
		} else {
			h.CSR.MStatus &^= statusSPIE
		}

		h.CSR.MStatus &^= statusSIE

		if h.Priv == User {
			h.CSR.MStatus &^= statusSPP
		} else {
			h.CSR.MStatus |= statusSPP
		}

		h.Priv = Supervisor
		h.PC = trapTarget(h.CSR.STVec, cause)

		return
	}

	h.CSR.MCause = cause
	h.CSR.MTVal = tval
	h.CSR.MEPC = h.PC

	if h.CSR.MStatus&statusMIE != 0 {
		h.CSR.MStatus |= statusMPIE
	} else {
		h.CSR.MStatus &^= statusMPIE
	}

	h.CSR.MStatus &^= statusMIE
	h.CSR.MStatus = (h.CSR.MStatus &^ statusMPPMask) | (uint64(h.Priv) << statusMPPShift)

	h.Priv = Machine
	h.PC = trapTarget(h.CSR.MTVec, cause)
}

// trapTarget applies tvec's MODE bit: vectored (mode 1) offsets by
// 4*cause for interrupts only; direct (mode 0) always uses BASE.
func trapTarget(tvec, cause uint64) uint64 {
	base := tvec &^ 0x3
	mode := tvec & 0x3

	if mode == 1 && cause&interruptCauseBit != 0 {
		return base + 4*(cause&^interruptCauseBit)
	}

	return base
}

// deliver is called once per interpreter boundary: it handles a pending
// synchronous exception (exc != nil) or, absent one, polls for an
// interrupt to take.
func (h *Hart) deliver(exc *CPUException) {
	if exc != nil {
		cause := exc.Cause
		toS := h.Priv <= Supervisor && h.CSR.MEDeleg&(1<<cause) != 0
		h.enterTrap(cause, exc.Tval, toS)

		return
	}

	if cause, toS, ok := h.pollInterrupt(); ok {
		h.WaitingForInterrupt = false
		h.enterTrap(cause, 0, toS)
	}
}

// mret returns from an M-mode trap.
func (h *Hart) mret() {
	h.ReservationAddr = reservationNone

	if h.CSR.MStatus&statusMPIE != 0 {
		h.CSR.MStatus |= statusMIE
	} else {
		h.CSR.MStatus &^= statusMIE
	}

	h.CSR.MStatus |= statusMPIE

	mpp := Privilege((h.CSR.MStatus & statusMPPMask) >> statusMPPShift)
	h.Priv = mpp

	h.CSR.MStatus &^= statusMPPMask
	h.CSR.MStatus = (h.CSR.MStatus &^ statusMPPMask) | (uint64(User) << statusMPPShift)

	if mpp != Machine {
		h.CSR.MStatus &^= statusMPRV
	}

	h.setPC(h.CSR.MEPC)
}

// sret returns from an S-mode trap.
func (h *Hart) sret() {
	h.ReservationAddr = reservationNone

	if h.CSR.MStatus&statusSPIE != 0 {
		h.CSR.MStatus |= statusSIE
	} else {
		h.CSR.MStatus &^= statusSIE
	}

	h.CSR.MStatus |= statusSPIE

	var spp Privilege
	if h.CSR.MStatus&statusSPP != 0 {
		spp = Supervisor
	} else {
		spp = User
	}

	h.Priv = spp
	h.CSR.MStatus &^= statusSPP

	if spp != Machine {
		h.CSR.MStatus &^= statusMPRV
	}

	h.setPC(h.CSR.SEPC)
}
