package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/arcbound/rv64hart/internal/bus"
	"github.com/arcbound/rv64hart/internal/cli"
	"github.com/arcbound/rv64hart/internal/console"
	"github.com/arcbound/rv64hart/internal/image"
	"github.com/arcbound/rv64hart/internal/log"
	"github.com/arcbound/rv64hart/internal/platform"
	"github.com/arcbound/rv64hart/internal/platform/config"
	"github.com/arcbound/rv64hart/internal/uart"
)

// Boot returns the "boot" sub-command, which assembles a platform,
// loads a firmware payload into RAM and runs it until reset, poweroff,
// or an instruction budget is exhausted.
func Boot() cli.Command {
	return &boot{budget: 4096}
}

type boot struct {
	configPath string
	budget     int
	interact   bool
	logLevel   slog.Level
}

func (boot) Description() string {
	return "boot a firmware image"
}

func (boot) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `boot [ -config FILE ] [ -interact ] FIRMWARE [ DTB ]

Assembles a platform per the fixed memory map, loads FIRMWARE at RAM's
base (and an optional devicetree blob DTB at the configured DTB address,
or at RAM offset 0x0210_0000 when that lies below RAM), then runs
the hart until it resets, powers off, or the budget is exhausted. With
-interact, stdin/stdout are bridged to the platform's UART.`)

	return err
}

func (b *boot) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("boot", flag.ExitOnError)

	fs.StringVar(&b.configPath, "config", "", "path to a platform config `file`")
	fs.IntVar(&b.budget, "budget", b.budget, "instructions to run per scheduling slice")
	fs.BoolVar(&b.interact, "interact", false, "bridge stdin/stdout to the platform UART")
	fs.Func("loglevel", "set log `level`", func(s string) error {
		return b.logLevel.UnmarshalText([]byte(s))
	})

	return fs
}

func (b *boot) Run(ctx context.Context, args []string, _ io.Writer, logger *log.Logger) int {
	log.LogLevel.Set(b.logLevel)

	if len(args) < 1 {
		logger.Error("boot: missing firmware argument")
		return 1
	}

	cfg := config.Config{}

	if b.configPath != "" {
		loaded, err := config.Load(b.configPath)
		if err != nil {
			logger.Error("boot: loading config", "err", err)
			return 1
		}

		cfg = loaded
	}

	var devices []bus.DeviceMapping

	var doneConsole func()

	if b.interact {
		c, err := console.New(os.Stdin, os.Stdout)
		if err != nil {
			logger.Warn("boot: no console available, running headless", "err", err)
		} else {
			u := uart.New(c.Write, nil)
			devices = append(devices, bus.DeviceMapping{Name: "uart0", Size: uart.Size, Dev: u})
			doneConsole = c.Bridge(ctx, u)
		}
	}

	if doneConsole != nil {
		defer doneConsole()
	}

	const defaultDTBOffset uint64 = 0x0210_0000 // clear of a modest kernel image.

	// The boot ROM hands cfg.DTBAddress to the guest in a1, so point it at
	// the RAM address the blob is loaded at.
	if len(args) > 1 && cfg.DTBAddress < platform.AddrRAM {
		cfg.DTBAddress = platform.AddrRAM + defaultDTBOffset
	}

	plat, err := platform.New(cfg, devices...)
	if err != nil {
		logger.Error("boot: building platform", "err", err)
		return 1
	}

	loader := image.NewLoader(plat.RAM())
	loader.Quiet = b.interact

	if _, err := loader.LoadFile(args[0], 0); err != nil {
		logger.Error("boot: loading firmware", "err", err)
		return 1
	}

	if len(args) > 1 {
		dtbAddr := cfg.WithDefaults().DTBAddress

		dtbOffset := defaultDTBOffset
		if dtbAddr >= platform.AddrRAM {
			dtbOffset = dtbAddr - platform.AddrRAM
		}

		if _, err := loader.LoadFile(args[1], dtbOffset); err != nil {
			logger.Error("boot: loading devicetree", "err", err)
			return 1
		}
	}

	logger.Info("booting", "firmware", args[0])

	res := plat.Run(b.budget, 0)

	switch {
	case res.PoweredOff:
		logger.Info("boot: guest powered off")
		return 0
	default:
		logger.Info("boot: stopped", "retired", res.Retired)
		return 0
	}
}
