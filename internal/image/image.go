// Package image loads a firmware payload (OpenSBI, a kernel, an
// initrd, or a devicetree blob) from the host filesystem into guest
// RAM before the platform's first Step, reporting progress the way
// tinyrange-cc's OCI blob fetcher does for long-running copies.
package image

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/arcbound/rv64hart/internal/bus"
)

// Loader copies files into a RAM's backing storage at caller-chosen
// offsets, e.g. OpenSBI at offset 0 and a kernel further up RAM.
type Loader struct {
	ram *bus.RAM

	// Quiet suppresses the terminal progress bar, for non-interactive
	// use (tests, scripted boots piping stdout elsewhere).
	Quiet bool
}

// NewLoader returns a Loader that writes into ram.
func NewLoader(ram *bus.RAM) *Loader {
	return &Loader{ram: ram}
}

// LoadFile reads path and copies its contents into the RAM starting at
// offset (relative to the RAM's own base, not the bus's physical
// address), returning the number of bytes copied.
func (l *Loader) LoadFile(path string, offset uint64) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("image: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("image: stat %s: %w", path, err)
	}

	size := info.Size()

	if offset+uint64(size) > l.ram.Len() {
		return 0, fmt.Errorf("image: %s (%d bytes) at offset %#x overflows %d-byte ram",
			path, size, offset, l.ram.Len())
	}

	dst := l.ram.Bytes()[offset : offset+uint64(size)]

	var writer io.Writer = &sliceWriter{dst}

	var bar *progressbar.ProgressBar
	if !l.Quiet {
		bar = progressbar.DefaultBytes(size, fmt.Sprintf("load %s", path))
		defer bar.Close()

		writer = io.MultiWriter(writer, bar)
	}

	n, err := io.Copy(writer, f)
	if err != nil {
		return n, fmt.Errorf("image: copy %s: %w", path, err)
	}

	return n, nil
}

// sliceWriter adapts a fixed-size byte slice to io.Writer, rejecting
// any write that would run past its end rather than growing.
type sliceWriter struct {
	buf []byte
}

func (w *sliceWriter) Write(p []byte) (int, error) {
	if len(p) > len(w.buf) {
		return 0, fmt.Errorf("image: write overflows destination region")
	}

	n := copy(w.buf, p)
	w.buf = w.buf[n:]

	return n, nil
}
