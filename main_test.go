package main_test

import (
	"testing"
	"time"

	"github.com/arcbound/rv64hart/internal/bus"
	"github.com/arcbound/rv64hart/internal/log"
	"github.com/arcbound/rv64hart/internal/platform"
	"github.com/arcbound/rv64hart/internal/platform/config"
)

// timeout bounds how long a single smoke-test run is allowed to take;
// a correctly wired platform finishes well within it.
const timeout = 2 * time.Second

// TestPlatformBootsToPoweroff assembles a platform, installs a tiny
// program that writes the poweroff magic value to the system
// controller, and verifies Run observes it.
func TestPlatformBootsToPoweroff(t *testing.T) {
	log.LogLevel.Set(log.Error)

	plat, err := platform.New(config.Config{MemorySize: 1 << 20})
	if err != nil {
		t.Fatalf("platform.New: %v", err)
	}

	// Builds t0 = 0x7777 (the poweroff magic value) and t1 = the
	// syscon base address, then stores t0 at t1, per spec.md §6.
	const (
		luiT0_7     = 0x000072B7 // lui t0, 0x7        -> t0 = 0x0000_7000
		addiT0_777  = 0x77728293 // addi t0, t0, 0x777 -> t0 = 0x0000_7777
		luiT1Syscon = 0x01000337 // lui t1, 0x1000     -> t1 = 0x0100_0000
		swT0T1      = 0x00532023 // sw t0, 0(t1)
	)

	ram := plat.RAM()

	writeWord(ram, 0, luiT0_7)
	writeWord(ram, 4, addiT0_777)
	writeWord(ram, 8, luiT1Syscon)
	writeWord(ram, 12, swT0T1)

	deadline := time.Now().Add(timeout)

	var res platform.StepResult

	for time.Now().Before(deadline) {
		res = plat.Step(16)
		if res.PoweredOff || res.Retired == 0 {
			break
		}
	}

	if !res.PoweredOff {
		t.Fatalf("platform did not power off within %s (pc=%#x, priv=%s)", timeout, plat.Hart.PC, plat.Hart.Priv)
	}
}

func writeWord(ram *bus.RAM, off uint64, word uint32) {
	b := ram.Bytes()
	b[off+0] = byte(word)
	b[off+1] = byte(word >> 8)
	b[off+2] = byte(word >> 16)
	b[off+3] = byte(word >> 24)
}
