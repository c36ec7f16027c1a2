package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/arcbound/rv64hart/internal/cli"
	"github.com/arcbound/rv64hart/internal/decode"
	"github.com/arcbound/rv64hart/internal/log"
)

// DecodeTable returns the "decode-table" sub-command, which dumps the
// embedded instruction table for inspection: one line per declaration,
// its bit pattern, mask, size, and argument bindings.
func DecodeTable() cli.Command {
	return new(decodeTable)
}

type decodeTable struct {
	sorted bool
}

func (decodeTable) Description() string {
	return "list the decoder's instruction table"
}

func (decodeTable) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `decode-table [ -sort ]

Prints every declaration in the embedded RV64IMAFDC_Zifencei table:
name, size, pattern/mask, and argument bindings.`)

	return err
}

func (d *decodeTable) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("decode-table", flag.ExitOnError)
	fs.BoolVar(&d.sorted, "sort", false, "sort output by mnemonic")

	return fs
}

func (d decodeTable) Run(_ context.Context, _ []string, out io.Writer, logger *log.Logger) int {
	table, err := decode.DefaultTable()
	if err != nil {
		logger.Error("decode-table: loading table", "err", err)
		return 1
	}

	decls := append([]*decode.Declaration(nil), table.Declarations...)

	if d.sorted {
		sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	}

	for _, decl := range decls {
		fmt.Fprintf(out, "%-12s size=%d pattern=%#010x mask=%#010x args=",
			decl.Name, decl.Size, decl.Pattern, decl.Mask)

		for i, a := range decl.Args {
			if i > 0 {
				fmt.Fprint(out, ",")
			}

			if a.HasLiteral {
				fmt.Fprintf(out, "%s=%d", a.Name, a.Literal)
			} else {
				fmt.Fprintf(out, "%s", a.Name)
			}
		}

		fmt.Fprintln(out)
	}

	return 0
}
