package hart

// ops.go dispatches decoded declarations to their RISC-V semantics, per
// spec.md §4.4: numeric edge cases (division by zero, signed-overflow
// division, shift-amount masking, SLT(U) 0/1 results, *W sign-extension)
// follow the ISA manual exactly as named there. Compressed mnemonics
// reuse the same argument names (rd/rs1/rs2/imm/shamt) the table
// normalizes them to, so most C.* forms fall through to their base
// instruction's case.

import (
	"github.com/arcbound/rv64hart/internal/decode"
	"github.com/arcbound/rv64hart/internal/fpu"
)

func sext32(v uint32) uint64 { return uint64(int64(int32(v))) }

// baseReg resolves the implicit stack-pointer base register the table
// omits for the SP-relative compressed forms.
func baseReg(name string, rs1 int) int {
	switch name {
	case "C.LWSP", "C.LDSP", "C.SWSP", "C.SDSP", "C.ADDI16SP":
		return 2
	default:
		return rs1
	}
}

// floatOp reports whether name reads or writes f registers, gating the
// FS-off trap and FS-dirty marking per spec.md §3. Mirrors the F/D case
// list below exactly.
func floatOp(name string) bool {
	switch name {
	case "FLW", "FLD", "FSW", "FSD",
		"FMADD.S", "FMSUB.S", "FNMSUB.S", "FNMADD.S",
		"FMADD.D", "FMSUB.D", "FNMSUB.D", "FNMADD.D",
		"FADD.S", "FSUB.S", "FMUL.S", "FDIV.S", "FSQRT.S",
		"FADD.D", "FSUB.D", "FMUL.D", "FDIV.D", "FSQRT.D",
		"FSGNJ.S", "FSGNJN.S", "FSGNJX.S",
		"FSGNJ.D", "FSGNJN.D", "FSGNJX.D",
		"FMIN.S", "FMAX.S", "FMIN.D", "FMAX.D",
		"FCVT.S.D", "FCVT.D.S",
		"FEQ.S", "FLT.S", "FLE.S", "FEQ.D", "FLT.D", "FLE.D",
		"FCLASS.S", "FCLASS.D",
		"FMV.X.W", "FMV.X.D", "FMV.W.X", "FMV.D.X",
		"FCVT.W.S", "FCVT.WU.S", "FCVT.L.S", "FCVT.LU.S",
		"FCVT.W.D", "FCVT.WU.D", "FCVT.L.D", "FCVT.LU.D",
		"FCVT.S.W", "FCVT.S.WU", "FCVT.S.L", "FCVT.S.LU",
		"FCVT.D.W", "FCVT.D.WU", "FCVT.D.L", "FCVT.D.LU":
		return true
	default:
		return false
	}
}

// csrOp reports whether name is a Zicsr instruction, so its csr operand
// can be checked against isFloatCSR.
func csrOp(name string) bool {
	switch name {
	case "CSRRW", "CSRRS", "CSRRC", "CSRRWI", "CSRRSI", "CSRRCI":
		return true
	default:
		return false
	}
}

// rmMode resolves a 3-bit rm field to an fpu.RM, reading frm for the
// dynamic encoding 0x7 and raising illegal-instruction for the reserved
// encodings 5 and 6, per spec.md §3.
func (h *Hart) rmMode(bits uint) (fpu.RM, *CPUException) {
	if bits == 7 {
		bits = uint(h.CSR.FCSR >> 5)
	}

	switch bits {
	case 0, 1, 2, 3, 4:
		return fpu.RM(bits), nil
	default:
		return 0, raise(CauseIllegalInstruction, uint64(bits))
	}
}

// accrueFlags ORs f into fflags, the sticky accumulated exception bits
// CSR reads observe at fflags/fcsr, per spec.md §3.
func (h *Hart) accrueFlags(f fpu.Flags) {
	h.CSR.FCSR |= uint8(f) & 0x1F
}

// markFPDirty sets mstatus.FS to Dirty; called once execute completes
// successfully for any instruction that touched f registers or the
// float CSRs.
func (h *Hart) markFPDirty() {
	h.CSR.MStatus = (h.CSR.MStatus &^ statusFSMask) | statusFSMask
}

// fusedSigns decodes a fused multiply-add mnemonic's operand negation,
// per the RISC-V FMADD/FMSUB/FNMSUB/FNMADD naming convention.
func fusedSigns(name string) (negMul, negAdd bool) {
	switch name {
	case "FMADD.S", "FMADD.D":
		return false, false
	case "FMSUB.S", "FMSUB.D":
		return false, true
	case "FNMSUB.S", "FNMSUB.D":
		return true, true
	case "FNMADD.S", "FNMADD.D":
		return true, false
	default:
		return false, false
	}
}

// setPC writes the next PC and records that this instruction redirected
// control flow explicitly, so stepOnce must not also apply the
// fall-through increment — even when the new PC equals the old one
// (e.g. a jump-to-self).
func (h *Hart) setPC(v uint64) {
	h.PC = v
	h.pcWritten = true
}

// execute runs decl's semantics against args (keyed exactly as the
// instruction table's ARGS column names them) and returns a guest
// exception if one was raised, or nil on normal completion.
func (h *Hart) execute(decl *decode.Declaration, args map[string]int64) *CPUException {
	name := decl.Name

	rd := int(args["rd"])
	rs1 := baseReg(name, int(args["rs1"]))
	rs2 := int(args["rs2"])
	rs3 := int(args["rs3"])
	imm := args["imm"]
	shamt := uint(args["shamt"]) & 0x3F
	csr := uint16(args["csr"])
	zimm := uint64(args["zimm"])
	rmBits := uint(args["rm"])

	h.pcWritten = false

	touchesFloat := floatOp(name) || (csrOp(name) && isFloatCSR(csr))
	if touchesFloat && h.CSR.MStatus&statusFSMask == 0 {
		return raise(CauseIllegalInstruction, 0)
	}

	x1 := func() uint64 { return h.GPR(rs1) }
	x2 := func() uint64 { return h.GPR(rs2) }

	switch name {

	// --- U-type -----------------------------------------------------
	case "LUI":
		h.SetGPR(rd, sext32(uint32(imm)))
	case "AUIPC":
		h.SetGPR(rd, h.PC+sext32(uint32(imm)))
	case "C.LUI":
		h.SetGPR(rd, uint64(imm))
	case "C.ADDI16SP":
		h.SetGPR(2, h.GPR(2)+uint64(imm))

	// --- jumps/branches ----------------------------------------------
	case "JAL":
		h.SetGPR(rd, h.PC+uint64(decl.Size))
		h.setPC(uint64(int64(h.PC) + imm))
	case "C.J":
		h.setPC(uint64(int64(h.PC) + imm))
	case "JALR":
		link := h.PC + uint64(decl.Size)
		target := (x1() + uint64(imm)) &^ 1
		h.SetGPR(rd, link)
		h.setPC(target)
	case "C.JR":
		h.setPC(x1() &^ 1)
	case "C.JALR":
		link := h.PC + uint64(decl.Size)
		target := x1() &^ 1
		h.SetGPR(1, link)
		h.setPC(target)

	case "BEQ":
		if x1() == x2() {
			h.setPC(uint64(int64(h.PC) + imm))
		}
	case "BNE":
		if x1() != x2() {
			h.setPC(uint64(int64(h.PC) + imm))
		}
	case "BLT":
		if int64(x1()) < int64(x2()) {
			h.setPC(uint64(int64(h.PC) + imm))
		}
	case "BGE":
		if int64(x1()) >= int64(x2()) {
			h.setPC(uint64(int64(h.PC) + imm))
		}
	case "BLTU":
		if x1() < x2() {
			h.setPC(uint64(int64(h.PC) + imm))
		}
	case "BGEU":
		if x1() >= x2() {
			h.setPC(uint64(int64(h.PC) + imm))
		}
	case "C.BEQZ":
		if x1() == 0 {
			h.setPC(uint64(int64(h.PC) + imm))
		}
	case "C.BNEZ":
		if x1() != 0 {
			h.setPC(uint64(int64(h.PC) + imm))
		}

	// --- integer loads -------------------------------------------------
	case "LB":
		v, exc := h.loadMem(x1()+uint64(imm), 8, true)
		if exc != nil {
			return exc
		}
		h.SetGPR(rd, v)
	case "LH":
		v, exc := h.loadMem(x1()+uint64(imm), 16, true)
		if exc != nil {
			return exc
		}
		h.SetGPR(rd, v)
	case "LW", "C.LWSP":
		v, exc := h.loadMem(h.GPR(rs1)+uint64(imm), 32, true)
		if exc != nil {
			return exc
		}
		h.SetGPR(rd, v)
	case "LD", "C.LD", "C.LDSP":
		v, exc := h.loadMem(h.GPR(rs1)+uint64(imm), 64, true)
		if exc != nil {
			return exc
		}
		h.SetGPR(rd, v)
	case "LBU":
		v, exc := h.loadMem(x1()+uint64(imm), 8, false)
		if exc != nil {
			return exc
		}
		h.SetGPR(rd, v)
	case "LHU":
		v, exc := h.loadMem(x1()+uint64(imm), 16, false)
		if exc != nil {
			return exc
		}
		h.SetGPR(rd, v)
	case "LWU":
		v, exc := h.loadMem(x1()+uint64(imm), 32, false)
		if exc != nil {
			return exc
		}
		h.SetGPR(rd, v)
	case "C.LW":
		v, exc := h.loadMem(h.GPR(rs1)+uint64(imm), 32, true)
		if exc != nil {
			return exc
		}
		h.SetGPR(rd, v)

	// --- integer stores -------------------------------------------------
	case "SB":
		if exc := h.storeMem(x1()+uint64(imm), 8, x2()); exc != nil {
			return exc
		}
	case "SH":
		if exc := h.storeMem(x1()+uint64(imm), 16, x2()); exc != nil {
			return exc
		}
	case "SW", "C.SW":
		if exc := h.storeMem(h.GPR(rs1)+uint64(imm), 32, h.GPR(rs2)); exc != nil {
			return exc
		}
	case "SD", "C.SD":
		if exc := h.storeMem(h.GPR(rs1)+uint64(imm), 64, h.GPR(rs2)); exc != nil {
			return exc
		}
	case "C.SWSP":
		if exc := h.storeMem(h.GPR(rs1)+uint64(imm), 32, h.GPR(rs2)); exc != nil {
			return exc
		}
	case "C.SDSP":
		if exc := h.storeMem(h.GPR(rs1)+uint64(imm), 64, h.GPR(rs2)); exc != nil {
			return exc
		}

	// --- ALU-immediate ----------------------------------------------
	case "ADDI", "C.ADDI", "C.LI":
		h.SetGPR(rd, x1()+uint64(imm))
	case "C.ADDI4SPN":
		h.SetGPR(rd, h.GPR(2)+uint64(imm))
	case "SLTI":
		h.SetGPR(rd, boolBits(int64(x1()) < imm))
	case "SLTIU":
		h.SetGPR(rd, boolBits(x1() < uint64(imm)))
	case "XORI":
		h.SetGPR(rd, x1()^uint64(imm))
	case "ORI":
		h.SetGPR(rd, x1()|uint64(imm))
	case "ANDI", "C.ANDI":
		h.SetGPR(rd, x1()&uint64(imm))
	case "SLLI", "C.SLLI":
		h.SetGPR(rd, x1()<<shamt)
	case "SRLI", "C.SRLI":
		h.SetGPR(rd, x1()>>shamt)
	case "SRAI", "C.SRAI":
		h.SetGPR(rd, uint64(int64(x1())>>shamt))

	// --- ALU-register -------------------------------------------------
	case "ADD", "C.ADD", "C.MV":
		h.SetGPR(rd, x1()+x2())
	case "SUB", "C.SUB":
		h.SetGPR(rd, x1()-x2())
	case "SLL":
		h.SetGPR(rd, x1()<<(x2()&0x3F))
	case "SLT":
		h.SetGPR(rd, boolBits(int64(x1()) < int64(x2())))
	case "SLTU":
		h.SetGPR(rd, boolBits(x1() < x2()))
	case "XOR", "C.XOR":
		h.SetGPR(rd, x1()^x2())
	case "SRL":
		h.SetGPR(rd, x1()>>(x2()&0x3F))
	case "SRA":
		h.SetGPR(rd, uint64(int64(x1())>>(x2()&0x3F)))
	case "OR", "C.OR":
		h.SetGPR(rd, x1()|x2())
	case "AND", "C.AND":
		h.SetGPR(rd, x1()&x2())

	// --- 32-bit-result W variants ---------------------------------------
	case "ADDIW", "C.ADDIW":
		h.SetGPR(rd, sext32(uint32(x1())+uint32(imm)))
	case "SLLIW":
		h.SetGPR(rd, sext32(uint32(x1())<<(shamt&0x1F)))
	case "SRLIW":
		h.SetGPR(rd, sext32(uint32(x1())>>(shamt&0x1F)))
	case "SRAIW":
		h.SetGPR(rd, sext32(uint32(int32(uint32(x1()))>>(shamt&0x1F))))
	case "ADDW", "C.ADDW":
		h.SetGPR(rd, sext32(uint32(x1())+uint32(x2())))
	case "SUBW", "C.SUBW":
		h.SetGPR(rd, sext32(uint32(x1())-uint32(x2())))
	case "SLLW":
		h.SetGPR(rd, sext32(uint32(x1())<<(x2()&0x1F)))
	case "SRLW":
		h.SetGPR(rd, sext32(uint32(x1())>>(x2()&0x1F)))
	case "SRAW":
		h.SetGPR(rd, sext32(uint32(int32(uint32(x1()))>>(x2()&0x1F))))

	// --- M extension ----------------------------------------------------
	case "MUL":
		h.SetGPR(rd, x1()*x2())
	case "MULH":
		h.SetGPR(rd, uint64(mulHigh(int64(x1()), int64(x2()))))
	case "MULHSU":
		h.SetGPR(rd, uint64(mulHighSU(int64(x1()), x2())))
	case "MULHU":
		h.SetGPR(rd, mulHighU(x1(), x2()))
	case "DIV":
		h.SetGPR(rd, uint64(sdiv(int64(x1()), int64(x2()))))
	case "DIVU":
		h.SetGPR(rd, udiv(x1(), x2()))
	case "REM":
		h.SetGPR(rd, uint64(srem(int64(x1()), int64(x2()))))
	case "REMU":
		h.SetGPR(rd, urem(x1(), x2()))
	case "MULW":
		h.SetGPR(rd, sext32(uint32(x1())*uint32(x2())))
	case "DIVW":
		h.SetGPR(rd, sext32(uint32(sdiv(int64(int32(uint32(x1()))), int64(int32(uint32(x2())))))))
	case "DIVUW":
		h.SetGPR(rd, sext32(uint32(udiv(uint64(uint32(x1())), uint64(uint32(x2()))))))
	case "REMW":
		h.SetGPR(rd, sext32(uint32(srem(int64(int32(uint32(x1()))), int64(int32(uint32(x2())))))))
	case "REMUW":
		h.SetGPR(rd, sext32(uint32(urem(uint64(uint32(x1())), uint64(uint32(x2()))))))

	// --- A extension ------------------------------------------------
	case "LR.W":
		v, exc := h.loadAligned(x1(), 32, accessLoad)
		if exc != nil {
			return exc
		}
		h.LoadReserved(x1())
		h.SetGPR(rd, sext32(uint32(v)))
	case "LR.D":
		v, exc := h.loadAligned(x1(), 64, accessLoad)
		if exc != nil {
			return exc
		}
		h.LoadReserved(x1())
		h.SetGPR(rd, v)
	case "SC.W":
		ok := h.StoreConditional(x1())
		if ok {
			if exc := h.storeAligned(x1(), 32, x2()); exc != nil {
				return exc
			}
		}
		h.SetGPR(rd, boolBits(!ok))
	case "SC.D":
		ok := h.StoreConditional(x1())
		if ok {
			if exc := h.storeAligned(x1(), 64, x2()); exc != nil {
				return exc
			}
		}
		h.SetGPR(rd, boolBits(!ok))

	case "AMOSWAP.W", "AMOADD.W", "AMOXOR.W", "AMOAND.W", "AMOOR.W",
		"AMOMIN.W", "AMOMAX.W", "AMOMINU.W", "AMOMAXU.W":
		old, exc := h.loadAligned(x1(), 32, accessLoad)
		if exc != nil {
			return exc
		}
		h.ReservationAddr = reservationNone
		result := amoCompute32(name, uint32(old), uint32(x2()))
		if exc := h.storeAligned(x1(), 32, uint64(result)); exc != nil {
			return exc
		}
		h.SetGPR(rd, sext32(uint32(old)))

	case "AMOSWAP.D", "AMOADD.D", "AMOXOR.D", "AMOAND.D", "AMOOR.D",
		"AMOMIN.D", "AMOMAX.D", "AMOMINU.D", "AMOMAXU.D":
		old, exc := h.loadAligned(x1(), 64, accessLoad)
		if exc != nil {
			return exc
		}
		h.ReservationAddr = reservationNone
		result := amoCompute64(name, old, x2())
		if exc := h.storeAligned(x1(), 64, result); exc != nil {
			return exc
		}
		h.SetGPR(rd, old)

	// --- F/D loads and stores ----------------------------------------
	case "FLW":
		v, exc := h.loadMem(x1()+uint64(imm), 32, false)
		if exc != nil {
			return exc
		}
		h.F[rd] = fpu.Box64(uint32(v))
	case "FLD":
		v, exc := h.loadMem(x1()+uint64(imm), 64, false)
		if exc != nil {
			return exc
		}
		h.F[rd] = v
	case "FSW":
		if exc := h.storeMem(x1()+uint64(imm), 32, uint64(fpu.Unbox32(h.F[rs2]))); exc != nil {
			return exc
		}
	case "FSD":
		if exc := h.storeMem(x1()+uint64(imm), 64, h.F[rs2]); exc != nil {
			return exc
		}

	// --- F/D fused multiply-add family ---------------------------------
	case "FMADD.S", "FMSUB.S", "FNMSUB.S", "FNMADD.S":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}

		negMul, negAdd := fusedSigns(name)
		v, flags := fpu.FusedS(h.F[rs1], h.F[rs2], h.F[rs3], negMul, negAdd, rm)
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FMADD.D", "FMSUB.D", "FNMSUB.D", "FNMADD.D":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}

		negMul, negAdd := fusedSigns(name)
		v, flags := fpu.FusedD(h.F[rs1], h.F[rs2], h.F[rs3], negMul, negAdd, rm)
		h.F[rd] = v
		h.accrueFlags(flags)

	// --- F/D arithmetic -------------------------------------------------
	case "FADD.S":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}
		v, flags := fpu.AddS(h.F[rs1], h.F[rs2], rm)
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FSUB.S":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}
		v, flags := fpu.SubS(h.F[rs1], h.F[rs2], rm)
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FMUL.S":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}
		v, flags := fpu.MulS(h.F[rs1], h.F[rs2], rm)
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FDIV.S":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}
		v, flags := fpu.DivS(h.F[rs1], h.F[rs2], rm)
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FSQRT.S":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}
		v, flags := fpu.SqrtS(h.F[rs1], rm)
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FADD.D":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}
		v, flags := fpu.AddD(h.F[rs1], h.F[rs2], rm)
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FSUB.D":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}
		v, flags := fpu.SubD(h.F[rs1], h.F[rs2], rm)
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FMUL.D":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}
		v, flags := fpu.MulD(h.F[rs1], h.F[rs2], rm)
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FDIV.D":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}
		v, flags := fpu.DivD(h.F[rs1], h.F[rs2], rm)
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FSQRT.D":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}
		v, flags := fpu.SqrtD(h.F[rs1], rm)
		h.F[rd] = v
		h.accrueFlags(flags)

	case "FSGNJ.S":
		h.F[rd] = fpu.SgnjS(h.F[rs1], h.F[rs2])
	case "FSGNJN.S":
		h.F[rd] = fpu.SgnjnS(h.F[rs1], h.F[rs2])
	case "FSGNJX.S":
		h.F[rd] = fpu.SgnjxS(h.F[rs1], h.F[rs2])
	case "FSGNJ.D":
		h.F[rd] = fpu.SgnjD(h.F[rs1], h.F[rs2])
	case "FSGNJN.D":
		h.F[rd] = fpu.SgnjnD(h.F[rs1], h.F[rs2])
	case "FSGNJX.D":
		h.F[rd] = fpu.SgnjxD(h.F[rs1], h.F[rs2])

	case "FMIN.S":
		v, flags := fpu.MinS(h.F[rs1], h.F[rs2])
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FMAX.S":
		v, flags := fpu.MaxS(h.F[rs1], h.F[rs2])
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FMIN.D":
		v, flags := fpu.MinD(h.F[rs1], h.F[rs2])
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FMAX.D":
		v, flags := fpu.MaxD(h.F[rs1], h.F[rs2])
		h.F[rd] = v
		h.accrueFlags(flags)

	case "FCVT.S.D":
		rm, rmExc := h.rmMode(rmBits)
		if rmExc != nil {
			return rmExc
		}
		v, flags := fpu.ConvDToS(h.F[rs1], rm)
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FCVT.D.S":
		v, flags := fpu.ConvSToD(h.F[rs1])
		h.F[rd] = v
		h.accrueFlags(flags)

	case "FEQ.S":
		v, flags := fpu.EqS(h.F[rs1], h.F[rs2])
		h.SetGPR(rd, v)
		h.accrueFlags(flags)
	case "FLT.S":
		v, flags := fpu.LtS(h.F[rs1], h.F[rs2])
		h.SetGPR(rd, v)
		h.accrueFlags(flags)
	case "FLE.S":
		v, flags := fpu.LeS(h.F[rs1], h.F[rs2])
		h.SetGPR(rd, v)
		h.accrueFlags(flags)
	case "FEQ.D":
		v, flags := fpu.EqD(h.F[rs1], h.F[rs2])
		h.SetGPR(rd, v)
		h.accrueFlags(flags)
	case "FLT.D":
		v, flags := fpu.LtD(h.F[rs1], h.F[rs2])
		h.SetGPR(rd, v)
		h.accrueFlags(flags)
	case "FLE.D":
		v, flags := fpu.LeD(h.F[rs1], h.F[rs2])
		h.SetGPR(rd, v)
		h.accrueFlags(flags)

	case "FCLASS.S":
		h.SetGPR(rd, fpu.ClassS(h.F[rs1]))
	case "FCLASS.D":
		h.SetGPR(rd, fpu.ClassD(h.F[rs1]))

	case "FMV.X.W":
		h.SetGPR(rd, sext32(fpu.Unbox32(h.F[rs1])))
	case "FMV.X.D":
		h.SetGPR(rd, h.F[rs1])
	case "FMV.W.X":
		h.F[rd] = fpu.Box64(uint32(x1()))
	case "FMV.D.X":
		h.F[rd] = x1()

	case "FCVT.W.S":
		v, flags := fpu.ConvSToW(h.F[rs1])
		h.SetGPR(rd, sext32(uint32(v)))
		h.accrueFlags(flags)
	case "FCVT.WU.S":
		v, flags := fpu.ConvSToWU(h.F[rs1])
		h.SetGPR(rd, sext32(v))
		h.accrueFlags(flags)
	case "FCVT.L.S":
		v, flags := fpu.ConvSToL(h.F[rs1])
		h.SetGPR(rd, uint64(v))
		h.accrueFlags(flags)
	case "FCVT.LU.S":
		v, flags := fpu.ConvSToLU(h.F[rs1])
		h.SetGPR(rd, v)
		h.accrueFlags(flags)
	case "FCVT.W.D":
		v, flags := fpu.ConvDToW(h.F[rs1])
		h.SetGPR(rd, sext32(uint32(v)))
		h.accrueFlags(flags)
	case "FCVT.WU.D":
		v, flags := fpu.ConvDToWU(h.F[rs1])
		h.SetGPR(rd, sext32(v))
		h.accrueFlags(flags)
	case "FCVT.L.D":
		v, flags := fpu.ConvDToL(h.F[rs1])
		h.SetGPR(rd, uint64(v))
		h.accrueFlags(flags)
	case "FCVT.LU.D":
		v, flags := fpu.ConvDToLU(h.F[rs1])
		h.SetGPR(rd, v)
		h.accrueFlags(flags)

	case "FCVT.S.W":
		v, flags := fpu.ConvWToS(int32(x1()))
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FCVT.S.WU":
		v, flags := fpu.ConvWUToS(uint32(x1()))
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FCVT.S.L":
		v, flags := fpu.ConvLToS(int64(x1()))
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FCVT.S.LU":
		v, flags := fpu.ConvLUToS(x1())
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FCVT.D.W":
		v, flags := fpu.ConvWToD(int32(x1()))
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FCVT.D.WU":
		v, flags := fpu.ConvWUToD(uint32(x1()))
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FCVT.D.L":
		v, flags := fpu.ConvLToD(int64(x1()))
		h.F[rd] = v
		h.accrueFlags(flags)
	case "FCVT.D.LU":
		v, flags := fpu.ConvLUToD(x1())
		h.F[rd] = v
		h.accrueFlags(flags)

	// --- Zicsr ----------------------------------------------------------
	case "CSRRW":
		old, ok := h.ReadCSR(csr)
		if !ok {
			return raise(CauseIllegalInstruction, uint64(csr))
		}
		if !h.WriteCSR(csr, x1()) {
			return raise(CauseIllegalInstruction, uint64(csr))
		}
		h.SetGPR(rd, old)
	case "CSRRS":
		old, ok := h.ReadCSR(csr)
		if !ok {
			return raise(CauseIllegalInstruction, uint64(csr))
		}
		if rs1 != 0 {
			if !h.WriteCSR(csr, old|x1()) {
				return raise(CauseIllegalInstruction, uint64(csr))
			}
		}
		h.SetGPR(rd, old)
	case "CSRRC":
		old, ok := h.ReadCSR(csr)
		if !ok {
			return raise(CauseIllegalInstruction, uint64(csr))
		}
		if rs1 != 0 {
			if !h.WriteCSR(csr, old&^x1()) {
				return raise(CauseIllegalInstruction, uint64(csr))
			}
		}
		h.SetGPR(rd, old)
	case "CSRRWI":
		old, ok := h.ReadCSR(csr)
		if !ok {
			return raise(CauseIllegalInstruction, uint64(csr))
		}
		if !h.WriteCSR(csr, zimm) {
			return raise(CauseIllegalInstruction, uint64(csr))
		}
		h.SetGPR(rd, old)
	case "CSRRSI":
		old, ok := h.ReadCSR(csr)
		if !ok {
			return raise(CauseIllegalInstruction, uint64(csr))
		}
		if zimm != 0 {
			if !h.WriteCSR(csr, old|zimm) {
				return raise(CauseIllegalInstruction, uint64(csr))
			}
		}
		h.SetGPR(rd, old)
	case "CSRRCI":
		old, ok := h.ReadCSR(csr)
		if !ok {
			return raise(CauseIllegalInstruction, uint64(csr))
		}
		if zimm != 0 {
			if !h.WriteCSR(csr, old&^zimm) {
				return raise(CauseIllegalInstruction, uint64(csr))
			}
		}
		h.SetGPR(rd, old)

	// --- system -----------------------------------------------------
	case "ECALL":
		switch h.Priv {
		case User:
			return raise(CauseECallFromU, 0)
		case Supervisor:
			return raise(CauseECallFromS, 0)
		default:
			return raise(CauseECallFromM, 0)
		}
	case "EBREAK", "C.EBREAK":
		return raise(CauseBreakpoint, h.PC)
	case "MRET":
		h.mret()
	case "SRET":
		h.sret()
	case "WFI":
		h.WaitingForInterrupt = true
	case "SFENCE.VMA":
		h.SFenceVMA(rs1 != 0, x1(), rs2 != 0, x2())

	// --- no-ops -------------------------------------------------------
	case "FENCE", "FENCE.I", "C.NOP":
		// Single-hart, in-order core: both are no-ops, per spec.md §5.

	default:
		return raise(CauseIllegalInstruction, 0)
	}

	if touchesFloat {
		h.markFPDirty()
	}

	return nil
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}

	return 0
}

func mulHigh(a, b int64) int64 {
	hi, _ := bitsMulS64(a, b)
	return hi
}

func mulHighSU(a int64, b uint64) int64 {
	neg := a < 0
	ua := uint64(a)
	if neg {
		ua = uint64(-a)
	}

	hi, lo := bitsMul64(ua, b)
	if !neg {
		return int64(hi)
	}

	// Negate the 128-bit product (hi:lo) and take the high word.
	lo = ^lo + 1
	borrow := uint64(0)
	if lo == 0 {
		borrow = 1
	}

	hi = ^hi + borrow

	return int64(hi)
}

func mulHighU(a, b uint64) uint64 {
	hi, _ := bitsMul64(a, b)
	return hi
}

// bitsMul64 returns the 128-bit unsigned product of a*b as (hi, lo).
func bitsMul64(a, b uint64) (hi, lo uint64) {
	const mask32 = 0xFFFFFFFF

	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	t := aLo * bLo
	w0 := t & mask32
	k := t >> 32

	t = aHi*bLo + k
	w1 := t & mask32
	w2 := t >> 32

	t = aLo*bHi + w1
	k = t >> 32

	lo = (t << 32) | w0
	hi = aHi*bHi + w2 + k

	return hi, lo
}

func bitsMulS64(a, b int64) (hi, lo int64) {
	uhi, ulo := bitsMul64(uint64(a), uint64(b))

	if a < 0 {
		uhi -= uint64(b)
	}

	if b < 0 {
		uhi -= uint64(a)
	}

	return int64(uhi), int64(ulo)
}

func sdiv(a, b int64) int64 {
	switch {
	case b == 0:
		return -1
	case a == -1<<63 && b == -1:
		return a
	default:
		return a / b
	}
}

func udiv(a, b uint64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}

	return a / b
}

func srem(a, b int64) int64 {
	switch {
	case b == 0:
		return a
	case a == -1<<63 && b == -1:
		return 0
	default:
		return a % b
	}
}

func urem(a, b uint64) uint64 {
	if b == 0 {
		return a
	}

	return a % b
}

func amoCompute32(name string, old, operand uint32) uint32 {
	switch name {
	case "AMOSWAP.W":
		return operand
	case "AMOADD.W":
		return old + operand
	case "AMOXOR.W":
		return old ^ operand
	case "AMOAND.W":
		return old & operand
	case "AMOOR.W":
		return old | operand
	case "AMOMIN.W":
		if int32(old) < int32(operand) {
			return old
		}
		return operand
	case "AMOMAX.W":
		if int32(old) > int32(operand) {
			return old
		}
		return operand
	case "AMOMINU.W":
		if old < operand {
			return old
		}
		return operand
	case "AMOMAXU.W":
		if old > operand {
			return old
		}
		return operand
	default:
		return old
	}
}

func amoCompute64(name string, old, operand uint64) uint64 {
	switch name {
	case "AMOSWAP.D":
		return operand
	case "AMOADD.D":
		return old + operand
	case "AMOXOR.D":
		return old ^ operand
	case "AMOAND.D":
		return old & operand
	case "AMOOR.D":
		return old | operand
	case "AMOMIN.D":
		if int64(old) < int64(operand) {
			return old
		}
		return operand
	case "AMOMAX.D":
		if int64(old) > int64(operand) {
			return old
		}
		return operand
	case "AMOMINU.D":
		if old < operand {
			return old
		}
		return operand
	case "AMOMAXU.D":
		if old > operand {
			return old
		}
		return operand
	default:
		return old
	}
}
