// Package bus implements the platform's physical address space: a flat,
// non-overlapping set of device ranges addressed by a 64-bit physical
// address, with width-dispatched load/store/fetch and a single-entry
// last-hit cache for locality.
package bus

import (
	"fmt"
	"sort"

	"github.com/arcbound/rv64hart/internal/log"
)

// Band names one of the two regions first-fit automatic placement searches.
type Band uint8

const (
	// BandDevice is the MMIO band for UART, VirtIO-MMIO, RTC and similar.
	BandDevice Band = iota
	// BandMemory is the RAM/firmware-payload band.
	BandMemory
)

const (
	DeviceBandBase = 0x1000_0000
	DeviceBandEnd  = 0x7FFF_FFFF
	MemoryBandBase = 0x8000_0000
	MemoryBandEnd  = 0xFFFF_FFFF_FFFF_FFFF
)

// DeviceMapping names an extra device the platform should install in
// the MMIO device band at construction time, e.g. a UART or a
// VirtIO-MMIO transport. Name and Size are passed to MapAuto; the
// chosen base is not returned to the caller here (the platform logs it
// for diagnostics, and a guest discovers it via the devicetree).
type DeviceMapping struct {
	Name string
	Size uint64
	Dev  Device
}

// Device is anything the bus can route loads, stores and fetches to.
// Offsets are relative to the device's mapped base. Implementations that
// return ErrWidth for unsupported widths get the memory map's standard
// "zero on load, dropped on store" fallback applied by the bus; that is
// not an error the caller needs to handle specially.
type Device interface {
	Load(off uint64, width int) (uint64, error)
	Store(off uint64, width int, val uint64) error
}

// Fetchable is implemented by devices instructions may be fetched from.
// Plain MMIO devices (UART, CLINT, PLIC, ...) do not implement it; RAM
// and the boot ROM do.
type Fetchable interface {
	Fetchable() bool
}

// ErrWidth is returned by a Device that does not support the requested
// access width; the bus converts it to the spec's zero-on-load /
// dropped-on-store behaviour rather than propagating it as a fault.
var ErrWidth = fmt.Errorf("bus: unsupported access width")

type region struct {
	name string
	base uint64
	size uint64
	dev  Device
}

func (r region) end() uint64 { return r.base + r.size - 1 }

func (r region) contains(addr uint64) bool {
	return addr >= r.base && addr <= r.end()
}

// Bus is the platform's physical memory map. It is built once during
// platform construction and never mutated during execution: there is no
// concurrent writer, so no locking is needed on the hot load/store path.
type Bus struct {
	regions []region
	lastHit int

	log *log.Logger
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{lastHit: -1, log: log.DefaultLogger()}
}

// Map installs dev at an explicit [base, base+size) range.
func (b *Bus) Map(name string, base, size uint64, dev Device) error {
	if size == 0 {
		return fmt.Errorf("bus: cannot map zero-size region %q", name)
	}

	r := region{name: name, base: base, size: size, dev: dev}

	if err := b.checkOverlap(r); err != nil {
		return err
	}

	b.regions = append(b.regions, r)
	sort.Slice(b.regions, func(i, j int) bool { return b.regions[i].base < b.regions[j].base })
	b.lastHit = -1

	b.log.Debug("bus: mapped region", "name", name, "base", fmt.Sprintf("%#x", base), "size", size)

	return nil
}

// MapAuto finds the first gap of size bytes in band and maps dev there,
// 4 KiB aligned, returning the chosen base address.
func (b *Bus) MapAuto(name string, size uint64, band Band, dev Device) (uint64, error) {
	lo, hi := uint64(DeviceBandBase), uint64(DeviceBandEnd)
	if band == BandMemory {
		lo, hi = uint64(MemoryBandBase), uint64(MemoryBandEnd)
	}

	const align = 0x1000

	candidate := (lo + align - 1) &^ (align - 1)

	for _, r := range b.regions {
		if r.end() < lo || r.base > hi {
			continue
		}

		if candidate+size-1 < r.base {
			break
		}

		if candidate <= r.end() {
			candidate = (r.end() + 1 + align - 1) &^ (align - 1)
		}
	}

	if candidate < lo || candidate+size-1 > hi {
		return 0, fmt.Errorf("bus: no room for region %q (%d bytes) in band", name, size)
	}

	if err := b.Map(name, candidate, size, dev); err != nil {
		return 0, err
	}

	return candidate, nil
}

func (b *Bus) checkOverlap(r region) error {
	for _, other := range b.regions {
		if r.base <= other.end() && other.base <= r.end() {
			return fmt.Errorf("bus: region %q [%#x,%#x] overlaps %q [%#x,%#x]",
				r.name, r.base, r.end(), other.name, other.base, other.end())
		}
	}

	return nil
}

// find returns the region containing addr, consulting the last-hit cache
// first.
func (b *Bus) find(addr uint64) *region {
	if b.lastHit >= 0 && b.lastHit < len(b.regions) && b.regions[b.lastHit].contains(addr) {
		return &b.regions[b.lastHit]
	}

	lo, hi := 0, len(b.regions)-1

	for lo <= hi {
		mid := (lo + hi) / 2
		r := &b.regions[mid]

		switch {
		case addr < r.base:
			hi = mid - 1
		case addr > r.end():
			lo = mid + 1
		default:
			b.lastHit = mid
			return r
		}
	}

	return nil
}

// Load reads width bits (8, 16, 32 or 64) from addr.
func (b *Bus) Load(addr uint64, width int) (uint64, error) {
	r := b.find(addr)
	if r == nil {
		return 0, &AccessFault{Addr: addr, Op: "load"}
	}

	v, err := r.dev.Load(addr-r.base, width)
	if err == ErrWidth {
		return 0, nil
	}

	return v, err
}

// Store writes width bits (8, 16, 32 or 64) of val to addr.
func (b *Bus) Store(addr uint64, width int, val uint64) error {
	r := b.find(addr)
	if r == nil {
		return &AccessFault{Addr: addr, Op: "store"}
	}

	err := r.dev.Store(addr-r.base, width, val)
	if err == ErrWidth {
		return nil
	}

	return err
}

// Fetch reads a 32-bit-aligned-or-not instruction word for execution.
// The device at addr must implement Fetchable and report true, or this
// raises an access fault (per spec.md §4.6).
func (b *Bus) Fetch(addr uint64, width int) (uint64, error) {
	r := b.find(addr)
	if r == nil {
		return 0, &AccessFault{Addr: addr, Op: "fetch"}
	}

	f, ok := r.dev.(Fetchable)
	if !ok || !f.Fetchable() {
		return 0, &AccessFault{Addr: addr, Op: "fetch"}
	}

	v, err := r.dev.Load(addr-r.base, width)
	if err == ErrWidth {
		return 0, nil
	}

	return v, err
}

// AccessFault is raised when no device answers for addr, or a fetch
// targets a non-fetchable device. The hart converts this into the
// appropriate *_ACCESS_FAULT trap.
type AccessFault struct {
	Addr uint64
	Op   string // "load", "store", or "fetch"
}

func (e *AccessFault) Error() string {
	return fmt.Sprintf("bus: %s access fault at %#x", e.Op, e.Addr)
}
