package bus_test

import (
	"testing"

	"github.com/arcbound/rv64hart/internal/bus"
)

func TestMapOverlapRejected(t *testing.T) {
	b := bus.New()

	if err := b.Map("ram", 0x8000_0000, 0x1000, bus.NewRAM(0x1000)); err != nil {
		t.Fatalf("first Map: %v", err)
	}

	err := b.Map("other", 0x8000_0800, 0x1000, bus.NewRAM(0x1000))
	if err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestLoadStoreRoundTrip(t *testing.T) {
	b := bus.New()

	if err := b.Map("ram", 0x8000_0000, 0x10_0000, bus.NewRAM(0x10_0000)); err != nil {
		t.Fatal(err)
	}

	if err := b.Store(0x8000_0100, 64, 0xDEAD_BEEF_0000_0001); err != nil {
		t.Fatal(err)
	}

	v, err := b.Load(0x8000_0100, 64)
	if err != nil {
		t.Fatal(err)
	}

	if v != 0xDEAD_BEEF_0000_0001 {
		t.Fatalf("got %#x", v)
	}
}

func TestLoadUnmappedFaults(t *testing.T) {
	b := bus.New()

	if _, err := b.Load(0x1234, 32); err == nil {
		t.Fatal("expected access fault for unmapped address")
	}
}

func TestFetchRequiresFetchableDevice(t *testing.T) {
	b := bus.New()

	if err := b.Map("uart", 0x1000_0000, 0x100, &nonFetchable{}); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Fetch(0x1000_0000, 32); err == nil {
		t.Fatal("expected fetch access fault on non-fetchable device")
	}
}

func TestMapAutoPlacesInBand(t *testing.T) {
	b := bus.New()

	base, err := b.MapAuto("ram", 0x10_0000, bus.BandMemory, bus.NewRAM(0x10_0000))
	if err != nil {
		t.Fatal(err)
	}

	if base < bus.MemoryBandBase {
		t.Fatalf("base %#x below memory band", base)
	}

	base2, err := b.MapAuto("uart", 0x100, bus.BandDevice, &nonFetchable{})
	if err != nil {
		t.Fatal(err)
	}

	if base2 < bus.DeviceBandBase || base2 > bus.DeviceBandEnd {
		t.Fatalf("base2 %#x outside device band", base2)
	}
}

type nonFetchable struct{ v uint64 }

func (n *nonFetchable) Load(off uint64, width int) (uint64, error)  { return n.v, nil }
func (n *nonFetchable) Store(off uint64, width int, val uint64) error { n.v = val; return nil }
