package hart

// csr.go dispatches Zicsr reads/writes through a single entry point with
// field-granular WARL/WLRL masks, per spec.md §4.3. Unknown CSR numbers
// raise illegal-instruction.

const (
	csrFFlags = 0x001
	csrFRM    = 0x002
	csrFCSR   = 0x003

	csrCycle   = 0xC00
	csrTime    = 0xC01
	csrInstret = 0xC02

	csrSStatus    = 0x100
	csrSIE        = 0x104
	csrSTVec      = 0x105
	csrSCounterEn = 0x106
	csrSEnvCfg    = 0x10A
	csrSScratch   = 0x140
	csrSEPC       = 0x141
	csrSCause     = 0x142
	csrSTVal      = 0x143
	csrSIP        = 0x144
	csrSATP       = 0x180

	csrMStatus    = 0x300
	csrMISA       = 0x301
	csrMEDeleg    = 0x302
	csrMIDeleg    = 0x303
	csrMIE        = 0x304
	csrMTVec      = 0x305
	csrMCounterEn = 0x306
	csrMEnvCfg    = 0x30A
	csrMScratch   = 0x340
	csrMEPC       = 0x341
	csrMCause     = 0x342
	csrMTVal      = 0x343
	csrMIP        = 0x344
	csrMTInst     = 0x34A
	csrMTVal2     = 0x34B

	csrTSelect = 0x7A0
	csrTData1  = 0x7A1
	csrTData2  = 0x7A2
	csrTData3  = 0x7A3

	csrMCycle   = 0xB00
	csrMInstret = 0xB02

	csrMVendorID  = 0xF11
	csrMArchID    = 0xF12
	csrMImpID     = 0xF13
	csrMHartID    = 0xF14
	csrMConfigPtr = 0xF15

	csrPMPCfg0  = 0x3A0
	csrPMPAddr0 = 0x3B0
)

const sstatusMask = statusSIE | statusSPIE | statusSPP | statusFSMask | statusSUM | statusMXR | statusSD
const sipSieMask = SSIP | STIP | SEIP

// isFloatCSR reports whether addr names one of the F/D extension's CSRs
// (fflags, frm, fcsr), which trap when mstatus.FS is Off, per spec.md
// §3.
func isFloatCSR(addr uint16) bool {
	return addr == csrFFlags || addr == csrFRM || addr == csrFCSR
}

// ReadCSR reads CSR addr, returning ok=false for an unimplemented
// register (the caller raises illegal-instruction).
func (h *Hart) ReadCSR(addr uint16) (uint64, bool) {
	switch {
	case addr == csrFFlags:
		return uint64(h.CSR.FCSR & 0x1F), true
	case addr == csrFRM:
		return uint64(h.CSR.FCSR >> 5), true
	case addr == csrFCSR:
		return uint64(h.CSR.FCSR), true

	case addr == csrCycle, addr == csrMCycle:
		return h.MCycle, true
	case addr == csrTime:
		return 0, true // the hart has no direct mtime view; platform reads CLINT.
	case addr == csrInstret, addr == csrMInstret:
		return h.MInstret, true

	case addr == csrSStatus:
		return h.CSR.MStatus & sstatusMask, true
	case addr == csrSIE:
		return h.CSR.MIE & sipSieMask, true
	case addr == csrSTVec:
		return h.CSR.STVec, true
	case addr == csrSCounterEn:
		return uint64(h.CSR.SCounterEn), true
	case addr == csrSEnvCfg:
		return h.CSR.SEnvCfg, true
	case addr == csrSScratch:
		return h.CSR.SScratch, true
	case addr == csrSEPC:
		return h.CSR.SEPC, true
	case addr == csrSCause:
		return h.CSR.SCause, true
	case addr == csrSTVal:
		return h.CSR.STVal, true
	case addr == csrSIP:
		return h.CSR.MIP & sipSieMask, true
	case addr == csrSATP:
		return h.CSR.SATP, true

	case addr == csrMStatus:
		return h.CSR.MStatus, true
	case addr == csrMISA:
		return misaValue(), true
	case addr == csrMEDeleg:
		return h.CSR.MEDeleg, true
	case addr == csrMIDeleg:
		return h.CSR.MIDeleg, true
	case addr == csrMIE:
		return h.CSR.MIE, true
	case addr == csrMTVec:
		return h.CSR.MTVec, true
	case addr == csrMCounterEn:
		return uint64(h.CSR.MCounterEn), true
	case addr == csrMEnvCfg:
		return h.CSR.MEnvCfg, true
	case addr == csrMScratch:
		return h.CSR.MScratch, true
	case addr == csrMEPC:
		return h.CSR.MEPC, true
	case addr == csrMCause:
		return h.CSR.MCause, true
	case addr == csrMTVal:
		return h.CSR.MTVal, true
	case addr == csrMIP:
		return h.CSR.MIP, true
	case addr == csrMTInst:
		return h.CSR.MTInst, true
	case addr == csrMTVal2:
		return h.CSR.MTVal2, true

	case addr == csrTSelect:
		return h.CSR.TSelect, true
	case addr >= csrTData1 && addr <= csrTData3:
		return h.CSR.TData[addr-csrTData1], true

	case addr == csrMVendorID, addr == csrMArchID, addr == csrMImpID,
		addr == csrMHartID, addr == csrMConfigPtr:
		return 0, true

	case addr >= csrPMPCfg0 && addr < csrPMPCfg0+16:
		return h.CSR.PMPCfg[addr-csrPMPCfg0], true
	case addr >= csrPMPAddr0 && addr < csrPMPAddr0+64:
		return h.CSR.PMPAddr[addr-csrPMPAddr0], true

	default:
		return 0, false
	}
}

// WriteCSR writes val to CSR addr, applying WARL/WLRL masks; ok=false
// for an unimplemented register.
func (h *Hart) WriteCSR(addr uint16, val uint64) bool {
	switch {
	case addr == csrFFlags:
		h.CSR.FCSR = (h.CSR.FCSR &^ 0x1F) | uint8(val&0x1F)
	case addr == csrFRM:
		h.CSR.FCSR = (h.CSR.FCSR &^ 0xE0) | uint8((val&0x7)<<5)
	case addr == csrFCSR:
		h.CSR.FCSR = uint8(val & 0xFF)

	case addr == csrMCycle:
		h.MCycle = val
	case addr == csrMInstret:
		h.MInstret = val
	case addr == csrCycle, addr == csrTime, addr == csrInstret:
		// read-only shadow views; writes are dropped (WARL).

	case addr == csrSStatus:
		h.CSR.MStatus = (h.CSR.MStatus &^ sstatusMask) | (val & sstatusMask)
	case addr == csrSIE:
		h.CSR.MIE = (h.CSR.MIE &^ sipSieMask) | (val & sipSieMask)
	case addr == csrSTVec:
		h.CSR.STVec = val
	case addr == csrSCounterEn:
		h.CSR.SCounterEn = uint32(val)
	case addr == csrSEnvCfg:
		h.CSR.SEnvCfg = val & 1 // only FIOM tracked, per SPEC_FULL.md §5.
	case addr == csrSScratch:
		h.CSR.SScratch = val
	case addr == csrSEPC:
		h.CSR.SEPC = val &^ 1
	case addr == csrSCause:
		h.CSR.SCause = val
	case addr == csrSTVal:
		h.CSR.STVal = val
	case addr == csrSIP:
		h.CSR.MIP = (h.CSR.MIP &^ SSIP) | (val & SSIP)
	case addr == csrSATP:
		h.writeSATP(val)

	case addr == csrMStatus:
		h.CSR.MStatus = val
	case addr == csrMISA:
		// read-only in this implementation (WARL: ignore the write).
	case addr == csrMEDeleg:
		h.CSR.MEDeleg = val
	case addr == csrMIDeleg:
		h.CSR.MIDeleg = val
	case addr == csrMIE:
		h.CSR.MIE = val
	case addr == csrMTVec:
		h.CSR.MTVec = val
	case addr == csrMCounterEn:
		h.CSR.MCounterEn = uint32(val)
	case addr == csrMEnvCfg:
		h.CSR.MEnvCfg = val & 1
	case addr == csrMScratch:
		h.CSR.MScratch = val
	case addr == csrMEPC:
		h.CSR.MEPC = val &^ 1
	case addr == csrMCause:
		h.CSR.MCause = val
	case addr == csrMTVal:
		h.CSR.MTVal = val
	case addr == csrMIP:
		// software may only set the bits it actually owns (SSIP/STIP);
		// wire-driven bits are re-synced every boundary regardless.
		h.CSR.MIP = (h.CSR.MIP &^ (SSIP | STIP)) | (val & (SSIP | STIP))
	case addr == csrMTInst:
		h.CSR.MTInst = val
	case addr == csrMTVal2:
		h.CSR.MTVal2 = val

	case addr == csrTSelect:
		h.CSR.TSelect = 0 // no hardware breakpoints: stays read-only zero.
	case addr >= csrTData1 && addr <= csrTData3:
		// stubbed read-only zero, per SPEC_FULL.md §5.

	case addr == csrMVendorID, addr == csrMArchID, addr == csrMImpID,
		addr == csrMHartID, addr == csrMConfigPtr:
		// read-only.

	case addr >= csrPMPCfg0 && addr < csrPMPCfg0+16:
		h.CSR.PMPCfg[addr-csrPMPCfg0] = val
	case addr >= csrPMPAddr0 && addr < csrPMPAddr0+64:
		h.CSR.PMPAddr[addr-csrPMPAddr0] = val

	default:
		return false
	}

	return true
}

// writeSATP applies satp's WARL mode field: an unsupported MODE value
// leaves satp unchanged entirely, per spec.md §4.3.
func (h *Hart) writeSATP(val uint64) {
	mode := val >> 60

	switch mode {
	case satpModeBare, satpModeSv39, satpModeSv48:
		h.CSR.SATP = val
		h.tlb.reset()
	default:
		// WARL: reject, leave satp unchanged.
	}
}
