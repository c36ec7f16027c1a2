package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/arcbound/rv64hart/internal/cli"
	"github.com/arcbound/rv64hart/internal/image"
	"github.com/arcbound/rv64hart/internal/log"
	"github.com/arcbound/rv64hart/internal/platform"
	"github.com/arcbound/rv64hart/internal/platform/config"
)

// Trace returns the "trace" sub-command, which single-steps a
// platform and logs the hart's PC and privilege level after every
// retired instruction, for debugging a decoder or a boot sequence.
func Trace() cli.Command {
	return &trace{count: 64}
}

type trace struct {
	count int
}

func (trace) Description() string {
	return "single-step a firmware image, logging pc and privilege per instruction"
}

func (trace) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `trace [ -count N ] FIRMWARE

Boots FIRMWARE at RAM's base and single-steps the hart for up to N
instructions (default 64), printing pc and privilege after each.`)

	return err
}

func (t *trace) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	fs.IntVar(&t.count, "count", t.count, "instructions to trace")

	return fs
}

func (t *trace) Run(_ context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if len(args) < 1 {
		logger.Error("trace: missing firmware argument")
		return 1
	}

	plat, err := platform.New(config.Config{})
	if err != nil {
		logger.Error("trace: building platform", "err", err)
		return 1
	}

	loader := image.NewLoader(plat.RAM())
	loader.Quiet = true

	if _, err := loader.LoadFile(args[0], 0); err != nil {
		logger.Error("trace: loading firmware", "err", err)
		return 1
	}

	for i := 0; i < t.count; i++ {
		pc := plat.Hart.PC
		priv := plat.Hart.Priv

		res := plat.Step(1)

		fmt.Fprintf(out, "%4d: pc=%#010x priv=%s retired=%d\n", i, pc, priv, res.Retired)

		if res.Retired == 0 || res.Reset || res.PoweredOff {
			break
		}
	}

	return 0
}
