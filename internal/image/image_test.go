package image

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arcbound/rv64hart/internal/bus"
)

func TestLoadFileCopiesIntoRAMAtOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ram := bus.NewRAM(64)
	l := NewLoader(ram)
	l.Quiet = true

	n, err := l.LoadFile(path, 8)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if n != int64(len(payload)) {
		t.Fatalf("copied %d bytes, want %d", n, len(payload))
	}

	got := ram.Bytes()[8 : 8+len(payload)]
	for i, b := range payload {
		if got[i] != b {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], b)
		}
	}
}

func TestLoadFileRejectsOverflow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")

	if err := os.WriteFile(path, make([]byte, 128), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ram := bus.NewRAM(64)
	l := NewLoader(ram)
	l.Quiet = true

	if _, err := l.LoadFile(path, 0); err == nil {
		t.Fatalf("expected overflow error, got nil")
	}
}
