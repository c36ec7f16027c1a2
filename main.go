// Command rv64hart is the command-line interface to the emulator: a
// cycle-driven RV64IMAFDC_Zifencei hart with supervisor/user privilege,
// Sv39/Sv48 paging, CLINT and PLIC.
package main

import (
	"context"
	"os"

	"github.com/arcbound/rv64hart/internal/cli"
	"github.com/arcbound/rv64hart/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Boot(),
	cmd.DecodeTable(),
	cmd.Trace(),
}

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
