// Package plic implements a platform-level interrupt controller: per-
// source priority, per-context (M-mode and S-mode of the one hart)
// enable bitset, priority threshold, and claim/complete.
package plic

import "fmt"

const NumSources = 32 // source 0 is reserved ("no interrupt"); 1-31 usable.

const (
	ContextM = 0
	ContextS = 1
	numCtx   = 2
)

const (
	offPriorityBase = 0x0000 // 4 bytes per source, source*4
	offPendingBase  = 0x1000 // bitset, 1 bit per source
	offEnableBase   = 0x2000 // per-context bitset, 0x80 bytes apart
	enableStride    = 0x80
	offContextBase  = 0x20_0000 // per-context threshold+claim, 0x1000 apart
	contextStride   = 0x1000
	offThreshold    = 0x0000
	offClaim        = 0x0004
)

// Size is the MMIO footprint the platform reserves for the PLIC,
// generous enough to cover both contexts' threshold/claim registers.
const Size = 0x0040_0000

// PLIC is the platform interrupt controller.
type PLIC struct {
	priority [NumSources]uint32
	pending  [NumSources]bool
	claimed  [NumSources]bool // gated until the context completes it

	enable    [numCtx][NumSources]bool
	threshold [numCtx]uint32
}

// New returns a PLIC with all sources masked off.
func New() *PLIC { return &PLIC{} }

// Raise sets source's pending bit. Source 0 is reserved and ignored.
func (p *PLIC) Raise(source int) {
	if source <= 0 || source >= NumSources {
		return
	}

	p.pending[source] = true
}

// Lower clears source's pending bit, e.g. when a level-triggered device
// deasserts its line.
func (p *PLIC) Lower(source int) {
	if source <= 0 || source >= NumSources {
		return
	}

	p.pending[source] = false
}

// best returns the highest-priority pending, enabled, above-threshold
// source for ctx, or 0 if none.
func (p *PLIC) best(ctx int) int {
	bestSrc := 0
	bestPrio := uint32(0)

	for s := 1; s < NumSources; s++ {
		if !p.pending[s] || p.claimed[s] || !p.enable[ctx][s] {
			continue
		}

		prio := p.priority[s]
		if prio == 0 || prio <= p.threshold[ctx] {
			continue
		}

		if prio > bestPrio || (prio == bestPrio && (bestSrc == 0 || s < bestSrc)) {
			bestPrio = prio
			bestSrc = s
		}
	}

	return bestSrc
}

// Pending reports whether ctx has a deliverable interrupt (drives the
// hart's MEIP/SEIP wire for that context).
func (p *PLIC) Pending(ctx int) bool { return p.best(ctx) != 0 }

// MEIP and SEIP are convenience wrappers for the two contexts this
// single-hart platform exposes.
func (p *PLIC) MEIP() bool { return p.Pending(ContextM) }
func (p *PLIC) SEIP() bool { return p.Pending(ContextS) }

func (p *PLIC) Load(off uint64, width int) (uint64, error) {
	switch {
	case off < offPendingBase && width == 32:
		src := off / 4
		if src >= NumSources {
			return 0, nil
		}

		return uint64(p.priority[src]), nil

	case off >= offPendingBase && off < offEnableBase && width == 32:
		word := (off - offPendingBase) / 4
		var v uint32

		for i := 0; i < 32; i++ {
			src := int(word)*32 + i
			if src < NumSources && p.pending[src] {
				v |= 1 << i
			}
		}

		return uint64(v), nil

	case off >= offEnableBase && off < offContextBase && width == 32:
		rel := off - offEnableBase
		ctx := int(rel / enableStride)

		if ctx >= numCtx {
			return 0, nil
		}

		var v uint32
		for i := 0; i < 32 && i < NumSources; i++ {
			if p.enable[ctx][i] {
				v |= 1 << i
			}
		}

		return uint64(v), nil

	case off >= offContextBase && width == 32:
		rel := off - offContextBase
		ctx := int(rel / contextStride)
		reg := rel % contextStride

		if ctx >= numCtx {
			return 0, nil
		}

		switch reg {
		case offThreshold:
			return uint64(p.threshold[ctx]), nil
		case offClaim:
			src := p.best(ctx)
			if src != 0 {
				p.pending[src] = false
				p.claimed[src] = true
			}

			return uint64(src), nil
		}
	}

	return 0, fmt.Errorf("plic: unsupported load off=%#x width=%d", off, width)
}

func (p *PLIC) Store(off uint64, width int, val uint64) error {
	switch {
	case off < offPendingBase && width == 32:
		src := off / 4
		if src < NumSources {
			p.priority[src] = uint32(val)
		}

		return nil

	case off >= offPendingBase && off < offEnableBase:
		return nil // pending is read-only from the hart's side.

	case off >= offEnableBase && off < offContextBase && width == 32:
		rel := off - offEnableBase
		ctx := int(rel / enableStride)

		if ctx >= numCtx {
			return nil
		}

		for i := 0; i < 32 && i < NumSources; i++ {
			p.enable[ctx][i] = val&(1<<i) != 0
		}

		return nil

	case off >= offContextBase && width == 32:
		rel := off - offContextBase
		ctx := int(rel / contextStride)
		reg := rel % contextStride

		if ctx >= numCtx {
			return nil
		}

		switch reg {
		case offThreshold:
			p.threshold[ctx] = uint32(val)
			return nil
		case offClaim: // complete
			src := int(val)
			if src > 0 && src < NumSources {
				p.claimed[src] = false
			}

			return nil
		}
	}

	return fmt.Errorf("plic: unsupported store off=%#x width=%d", off, width)
}
