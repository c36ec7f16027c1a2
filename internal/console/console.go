// Package console adapts a host terminal to the platform's UART, the
// way the teacher's tty package adapts a host terminal to the LC-3's
// keyboard and display devices: raw mode in, a reader goroutine
// pushing bytes into the guest, and the guest's transmitted bytes
// written back out.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/arcbound/rv64hart/internal/uart"
)

// ErrNoTTY is returned when standard input is not a terminal.
var ErrNoTTY = errors.New("console: not a TTY")

// Console bridges a real terminal to a UART device.
type Console struct {
	in    *os.File
	out   *term.Terminal
	fd    int
	state *term.State
}

// Context and DoneFunc alias the context package to match the
// construction idiom this package borrows from the boot command's tty
// plumbing.
type (
	Context  = context.Context
	DoneFunc = context.CancelFunc
)

// New builds a Console over sin/sout, putting sin into raw mode.
// Callers must call Restore to return the terminal to cooked mode.
func New(sin, sout *os.File) (*Console, error) {
	fd := int(sin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTTY, err)
	}

	c := &Console{
		fd:    fd,
		in:    sin,
		out:   term.NewTerminal(sout, ""),
		state: saved,
	}

	if err := c.setTerminalParams(1, 0); err != nil {
		return nil, err
	}

	return c, nil
}

// Write sends guest-transmitted output to the terminal; it is the
// function a uart.UART's onTX callback should wrap.
func (c *Console) Write(b byte) {
	_, _ = c.out.Write([]byte{b})
}

// Bridge starts a reader goroutine that pushes every byte typed at the
// terminal into u's RX buffer, until ctx is cancelled or the terminal
// read fails. The returned DoneFunc restores the terminal and stops
// the reader; callers wire the UART's transmit side separately, via
// uart.New(c.Write, nil), before calling Bridge.
func (c *Console) Bridge(parent Context, u *uart.UART) DoneFunc {
	ctx, cancel := context.WithCancel(parent)

	go c.pump(ctx, u, cancel)

	return func() {
		c.Restore()
		cancel()
	}
}

// Restore returns the terminal to its original state.
func (c *Console) Restore() {
	_ = c.in.SetReadDeadline(time.Now())
	_ = term.Restore(c.fd, c.state)
}

func (c *Console) setTerminalParams(vmin, vtime byte) error {
	_ = syscall.SetNonblock(c.fd, true)

	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	if err := unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO); err != nil {
		return err
	}

	_ = c.in.SetReadDeadline(time.Time{})

	return nil
}

// pump reads bytes from the terminal and pushes each into u's RX
// buffer until ctx is cancelled or the read fails (e.g. the deadline
// Restore sets to unblock it).
func (c *Console) pump(ctx Context, u *uart.UART, cancel DoneFunc) {
	buf := bufio.NewReader(c.in)

	_ = syscall.SetNonblock(c.fd, false)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			b, err := buf.ReadByte()
			if err != nil {
				cancel()
				return
			}

			u.Push(b)
		}
	}
}
