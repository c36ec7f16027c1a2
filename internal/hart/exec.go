package hart

// exec.go implements the interpreter loop per spec.md §4.4: fetch
// (compressed-aware), decode, dispatch, pc advance, counter increment,
// and the budget/reset/poweroff exit conditions.

import (
	"context"

	"github.com/arcbound/rv64hart/internal/log"
)

// StepResult reports what happened across a Step(budget) call, mirroring
// spec.md §5's host-facing cancellation model.
type StepResult struct {
	Retired    int
	Reset      bool
	PoweredOff bool
}

// Step executes up to budget instructions, or fewer if the hart goes
// idle on WFI or a device signals reset/poweroff. An instruction that
// traps still counts toward Retired and the budget.
func (h *Hart) Step(budget int) StepResult {
	var result StepResult

	for budget > 0 {
		if h.WaitingForInterrupt {
			if _, _, ok := h.pollInterrupt(); !ok {
				h.syncWires()
				break
			}
		}

		h.deliver(nil)

		if h.Reset || h.PoweredOff {
			break
		}

		if h.WaitingForInterrupt {
			// Observed a pending-enabled interrupt above; per spec.md
			// §5, WFI is a hint that may wake spuriously even when the
			// interrupt isn't actually deliverable (globally disabled).
			h.WaitingForInterrupt = false
		}

		h.stepOnce()
		h.MCycle++
		budget--
		result.Retired++

		if h.Reset || h.PoweredOff {
			break
		}
	}

	result.Reset = h.Reset
	result.PoweredOff = h.PoweredOff
	h.Reset = false
	h.PoweredOff = false

	return result
}

// stepOnce retires exactly one instruction: fetch, decode, execute,
// advance pc, bump minstret. Any exception raised along the way is
// delivered as a trap before returning.
func (h *Hart) stepOnce() {
	if h.WaitingForInterrupt {
		return
	}

	word, size, exc := h.fetchInstruction()
	if exc != nil {
		h.deliver(exc)
		return
	}

	decl, err := h.Decoder.Decode(word)
	if err != nil {
		h.deliver(raise(CauseIllegalInstruction, uint64(word)))
		return
	}

	args := h.Decoder.Args(decl, word)

	oldPC := h.PC

	exc = h.execute(decl, args)

	if h.log.Enabled(context.Background(), log.Debug) {
		h.log.Debug("retire", "pc", oldPC, "insn", decl.Name, "exc", exc != nil)
	}

	if exc != nil {
		h.deliver(exc)
		return
	}

	if !h.pcWritten {
		h.PC = oldPC + uint64(size)
	}

	h.MInstret++
}

// fetchInstruction reads one instruction word via the MMU's fetch
// channel, identifying compressed (16-bit) instructions by word[1:0] !=
// 0b11, per spec.md §4.4.
func (h *Hart) fetchInstruction() (uint32, int, *CPUException) {
	if h.PC&1 != 0 {
		return 0, 0, raise(CauseInstrAddrMisaligned, h.PC)
	}

	paddr, exc := h.translate(h.PC, accessFetch)
	if exc != nil {
		return 0, 0, exc
	}

	lo, err := h.Bus.Fetch(paddr, 16)
	if err != nil {
		return 0, 0, raise(CauseInstrAccessFault, h.PC)
	}

	if lo&0x3 != 0x3 {
		return uint32(lo), 2, nil
	}

	paddr2, exc := h.translate(h.PC+2, accessFetch)
	if exc != nil {
		return 0, 0, exc
	}

	hi, err := h.Bus.Fetch(paddr2, 16)
	if err != nil {
		return 0, 0, raise(CauseInstrAccessFault, h.PC)
	}

	return uint32(lo) | uint32(hi)<<16, 4, nil
}
