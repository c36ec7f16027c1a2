package hart

// mem.go implements the two load/store shapes spec.md §4.2/§4.5 need:
// byte-granular accesses for ordinary loads/stores (so a page-crossing
// misaligned access decomposes rather than faults), and single
// natural-width accesses for the atomic instructions (which must fault
// on misalignment instead).

// loadMem reads width bits (8/16/32/64) from vaddr one byte at a time,
// translating each byte independently so a page boundary crossing is
// handled correctly. signExt sign-extends the result to 64 bits.
func (h *Hart) loadMem(vaddr uint64, width int, signExt bool) (uint64, *CPUException) {
	n := width / 8

	var value uint64

	for i := 0; i < n; i++ {
		paddr, exc := h.translate(vaddr+uint64(i), accessLoad)
		if exc != nil {
			return 0, exc
		}

		b, err := h.Bus.Load(paddr, 8)
		if err != nil {
			return 0, raise(CauseLoadAccessFault, vaddr)
		}

		value |= b << (8 * uint(i))
	}

	if signExt && width < 64 {
		shift := 64 - uint(width)
		value = uint64(int64(value<<shift) >> shift)
	}

	return value, nil
}

// storeMem writes width bits of val to vaddr one byte at a time, clearing
// any reservation the store overlaps.
func (h *Hart) storeMem(vaddr uint64, width int, val uint64) *CPUException {
	h.invalidateReservation(vaddr, width)

	n := width / 8

	for i := 0; i < n; i++ {
		paddr, exc := h.translate(vaddr+uint64(i), accessStore)
		if exc != nil {
			return exc
		}

		b := (val >> (8 * uint(i))) & 0xFF

		if err := h.Bus.Store(paddr, 8, b); err != nil {
			return raise(CauseStoreAccessFault, vaddr)
		}
	}

	return nil
}

// loadAligned performs a single natural-width access for LR and AMO*,
// faulting on misalignment rather than decomposing it.
func (h *Hart) loadAligned(vaddr uint64, width int, kind accessKind) (uint64, *CPUException) {
	if vaddr%uint64(width/8) != 0 {
		return 0, raise(CauseLoadAddrMisaligned, vaddr)
	}

	paddr, exc := h.translate(vaddr, kind)
	if exc != nil {
		return 0, exc
	}

	v, err := h.Bus.Load(paddr, width)
	if err != nil {
		return 0, raise(CauseLoadAccessFault, vaddr)
	}

	return v, nil
}

// storeAligned is loadAligned's counterpart for SC and AMO*.
func (h *Hart) storeAligned(vaddr uint64, width int, val uint64) *CPUException {
	if vaddr%uint64(width/8) != 0 {
		return raise(CauseStoreAddrMisaligned, vaddr)
	}

	h.invalidateReservation(vaddr, width)

	paddr, exc := h.translate(vaddr, accessStore)
	if exc != nil {
		return exc
	}

	if err := h.Bus.Store(paddr, width, val); err != nil {
		return raise(CauseStoreAccessFault, vaddr)
	}

	return nil
}
