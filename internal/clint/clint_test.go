package clint_test

import (
	"testing"

	"github.com/arcbound/rv64hart/internal/clint"
)

func TestMTIPAssertsWhenTimeReachesCompare(t *testing.T) {
	c := clint.New()

	if c.MTIP() {
		t.Fatal("MTIP asserted before mtimecmp is programmed")
	}

	if err := c.Store(clint.OffMTimeCmp, 64, 100); err != nil {
		t.Fatal(err)
	}

	c.Tick(99)
	if c.MTIP() {
		t.Fatal("MTIP asserted early")
	}

	c.Tick(1)
	if !c.MTIP() {
		t.Fatal("MTIP not asserted at mtime == mtimecmp")
	}
}

func TestMSIPRoundTrip(t *testing.T) {
	c := clint.New()

	if err := c.Store(clint.OffMSIP, 32, 1); err != nil {
		t.Fatal(err)
	}

	if !c.MSIP() {
		t.Fatal("MSIP not asserted after write")
	}

	v, err := c.Load(clint.OffMSIP, 32)
	if err != nil {
		t.Fatal(err)
	}

	if v != 1 {
		t.Fatalf("got %d", v)
	}
}
