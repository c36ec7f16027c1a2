// Package platform assembles a hart with the bus, boot ROM, CLINT,
// PLIC and system controller it needs to boot a real OpenSBI+Linux
// image, per spec.md §6's fixed memory map. It plays the role the
// teacher's vm.New plays for the LC-3 machine: constructing the parts
// and handing back one object the host drives, per SPEC_FULL.md §6.9.
package platform

import (
	"fmt"

	"github.com/arcbound/rv64hart/internal/bus"
	"github.com/arcbound/rv64hart/internal/clint"
	"github.com/arcbound/rv64hart/internal/decode"
	"github.com/arcbound/rv64hart/internal/hart"
	"github.com/arcbound/rv64hart/internal/log"
	"github.com/arcbound/rv64hart/internal/platform/config"
	"github.com/arcbound/rv64hart/internal/plic"
	"github.com/arcbound/rv64hart/internal/syscon"
)

// Fixed addresses from spec.md §6.
const (
	AddrBootROM = 0x0000_1000
	AddrSysCon  = 0x0100_0000
	AddrCLINT   = 0x0200_0000
	AddrPLIC    = 0x0C00_0000
	AddrRAM     = 0x8000_0000
)

// Platform owns the hart and the devices wired to it. Step is the only
// entry point that advances emulated time, per spec.md §5.
type Platform struct {
	Hart  *hart.Hart
	Bus   *bus.Bus
	CLINT *clint.CLINT
	PLIC  *plic.PLIC
	ram   *bus.RAM

	timebaseHz uint64

	log *log.Logger
}

// RAM returns the platform's main memory, for loading firmware and
// devicetree payloads before the first Step.
func (p *Platform) RAM() *bus.RAM { return p.ram }

// StepResult mirrors hart.StepResult for the host driving loop.
type StepResult struct {
	Retired    int
	Reset      bool
	PoweredOff bool
}

// New builds a platform: bus, boot ROM, CLINT, PLIC, system controller,
// RAM, and any extra devices caller-supplied (UART, VirtIO-MMIO, ...)
// auto-placed in the device band. cfg's zero fields fall back to
// spec.md's fixed layout.
func New(cfg config.Config, devices ...bus.DeviceMapping) (*Platform, error) {
	cfg = cfg.WithDefaults()

	logger := log.DefaultLogger()
	b := bus.New()

	rom := bus.NewBootROM(cfg.DTBAddress, cfg.EntryAddress)
	if err := b.Map("boot-rom", AddrBootROM, 32, rom); err != nil {
		return nil, fmt.Errorf("platform: map boot rom: %w", err)
	}

	c := clint.New()
	if err := b.Map("clint", AddrCLINT, clint.Size, c); err != nil {
		return nil, fmt.Errorf("platform: map clint: %w", err)
	}

	pl := plic.New()
	if err := b.Map("plic", AddrPLIC, plic.Size, pl); err != nil {
		return nil, fmt.Errorf("platform: map plic: %w", err)
	}

	ram := bus.NewRAM(cfg.MemorySize)
	if err := b.Map("ram", AddrRAM, ram.Len(), ram); err != nil {
		return nil, fmt.Errorf("platform: map ram: %w", err)
	}

	table, err := decode.DefaultTable()
	if err != nil {
		return nil, fmt.Errorf("platform: build instruction table: %w", err)
	}

	dec, err := decode.New(table)
	if err != nil {
		return nil, fmt.Errorf("platform: build decoder: %w", err)
	}

	h := hart.New(b, dec)

	sc := syscon.New(func() { h.Reset = true }, func() { h.PoweredOff = true })
	if err := b.Map("syscon", AddrSysCon, 4, sc); err != nil {
		return nil, fmt.Errorf("platform: map syscon: %w", err)
	}

	for _, d := range devices {
		if _, err := b.MapAuto(d.Name, d.Size, bus.BandDevice, d.Dev); err != nil {
			return nil, fmt.Errorf("platform: map device %q: %w", d.Name, err)
		}
	}

	// CLINT drives MSIP/MTIP; PLIC aggregates external sources into
	// MEIP/SEIP. Neither wire pushes into mip directly: the hart polls
	// these closures once per interpreter boundary (spec.md §5).
	h.Wire(hart.MSIP, c.MSIP)
	h.Wire(hart.MTIP, c.MTIP)
	h.Wire(hart.MEIP, pl.MEIP)
	h.Wire(hart.SEIP, pl.SEIP)

	return &Platform{
		Hart:       h,
		Bus:        b,
		CLINT:      c,
		PLIC:       pl,
		ram:        ram,
		timebaseHz: cfg.TimebaseFrequency,
		log:        logger,
	}, nil
}

// Step drives the hart for up to budget instructions, ticking CLINT's
// mtime by the number actually retired (one mtime tick per retired
// instruction; the platform does not model cycles-per-instruction
// timing beyond that, per spec.md's Non-goals).
func (p *Platform) Step(budget int) StepResult {
	res := p.Hart.Step(budget)
	p.CLINT.Tick(uint64(res.Retired))

	return StepResult{Retired: res.Retired, Reset: res.Reset, PoweredOff: res.PoweredOff}
}

// Run steps the platform in budget-sized slices until it powers off or
// the total instruction count reaches max (max <= 0 means no limit). A
// reset request sets the hart's PC to ResetPC and its privilege to
// Machine, and stepping continues. It returns the final StepResult.
func (p *Platform) Run(budget int, max int64) StepResult {
	var total int64

	var last StepResult

	for max <= 0 || total < max {
		last = p.Step(budget)
		total += int64(last.Retired)

		if last.Reset {
			p.log.Info("platform: guest requested reset")
			p.Hart.PC = hart.ResetPC
			p.Hart.Priv = hart.Machine

			continue
		}

		if last.PoweredOff {
			p.log.Info("platform: guest requested poweroff")
			return last
		}
	}

	return last
}
