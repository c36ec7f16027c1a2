package hart

// tlb.go implements the small, direct-mapped software TLB described in
// spec.md §4.2: one set per access kind, indexed by VPN bits, tagged by
// ASID/privilege/SUM/MXR/MPRV so a context switch cannot observe a stale
// translation.

const tlbEntries = 256 // power of two, per spec.md §4.2.

type accessKind uint8

const (
	accessFetch accessKind = iota
	accessLoad
	accessStore
)

type tlbTag struct {
	asid uint64
	priv Privilege
	sum  bool
	mxr  bool
}

type tlbEntry struct {
	valid bool
	vpn   uint64
	tag   tlbTag
	ppn   uint64 // physical page number this VPN maps to.
	pageShift uint
}

type tlbSet struct {
	fetch [tlbEntries]tlbEntry
	load  [tlbEntries]tlbEntry
	store [tlbEntries]tlbEntry
}

func (t *tlbSet) reset() {
	*t = tlbSet{}
}

func (t *tlbSet) setFor(kind accessKind) *[tlbEntries]tlbEntry {
	switch kind {
	case accessFetch:
		return &t.fetch
	case accessLoad:
		return &t.load
	default:
		return &t.store
	}
}

func tlbIndex(vpn uint64) uint64 {
	return vpn & (tlbEntries - 1)
}

func (t *tlbSet) lookup(kind accessKind, vpn uint64, tag tlbTag) (tlbEntry, bool) {
	e := t.setFor(kind)[tlbIndex(vpn)]
	if e.valid && e.vpn == vpn && e.tag == tag {
		return e, true
	}

	return tlbEntry{}, false
}

func (t *tlbSet) insert(kind accessKind, vpn uint64, tag tlbTag, ppn uint64, pageShift uint) {
	t.setFor(kind)[tlbIndex(vpn)] = tlbEntry{
		valid: true, vpn: vpn, tag: tag, ppn: ppn, pageShift: pageShift,
	}
}

// flush implements SFENCE.VMA's by-address/by-ASID/all semantics. A zero
// operand (hasAddr or hasASID false) means "all" for that dimension.
func (t *tlbSet) flush(hasAddr bool, addr uint64, hasASID bool, asid uint64) {
	for _, set := range [][]tlbEntry{t.fetch[:], t.load[:], t.store[:]} {
		for i := range set {
			e := &set[i]
			if !e.valid {
				continue
			}

			if hasASID && e.tag.asid != asid {
				continue
			}

			if hasAddr && e.vpn != addr>>12 {
				continue
			}

			*e = tlbEntry{}
		}
	}
}
