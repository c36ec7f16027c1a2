package fpu_test

import (
	"math"
	"testing"

	"github.com/arcbound/rv64hart/internal/fpu"
)

func TestAddSMatchesHostFloat32(t *testing.T) {
	a := fpu.Box64(math.Float32bits(1.5))
	b := fpu.Box64(math.Float32bits(2.25))

	sum, flags := fpu.AddS(a, b, fpu.RNE)
	got := fpu.Unbox32(sum)
	want := math.Float32bits(1.5 + 2.25)

	if got != want {
		t.Fatalf("got %x want %x", got, want)
	}
	if flags != 0 {
		t.Fatalf("flags = %x, want 0 (exact result)", flags)
	}
}

func TestAddSHonorsRoundDown(t *testing.T) {
	// 1.0 + 2^-30 is not representable in float32 (the next float above
	// 1.0 is 1.0+2^-23); RDN must return 1.0, with NX set.
	a := fpu.Box64(math.Float32bits(1.0))
	b := fpu.Box64(math.Float32bits(float32(math.Exp2(-30))))

	sum, flags := fpu.AddS(a, b, fpu.RDN)
	got := fpu.Unbox32(sum)

	if got != math.Float32bits(1.0) {
		t.Fatalf("AddS(1.0, 2^-30, RDN) = %x, want 1.0 unchanged", got)
	}
	if flags&fpu.FlagNX == 0 {
		t.Fatalf("flags = %x, want NX set on inexact result", flags)
	}
}

func TestMinSNaNPropagation(t *testing.T) {
	nan := fpu.Box64(0x7FC0_0001)
	one := fpu.Box64(math.Float32bits(1.0))

	got, flags := fpu.MinS(nan, one)
	if fpu.Unbox32(got) != math.Float32bits(1.0) {
		t.Fatalf("MinS(NaN, 1.0) = %x, want 1.0 (non-NaN operand)", fpu.Unbox32(got))
	}
	if flags != 0 {
		t.Fatalf("flags = %x, want 0 (quiet NaN raises no NV)", flags)
	}
}

func TestClassDPosInf(t *testing.T) {
	bits := math.Float64bits(math.Inf(1))
	if got := fpu.ClassD(bits); got != fpu.ClassPosInf {
		t.Fatalf("ClassD(+Inf) = %d, want %d", got, fpu.ClassPosInf)
	}
}

func TestUnboxRejectsImproperlyBoxedValue(t *testing.T) {
	if got := fpu.Unbox32(0x0000_0000_3F80_0000); got != 0x7FC0_0000 {
		t.Fatalf("Unbox32(unboxed) = %x, want canonical qNaN", got)
	}
}

func TestConvSToWSaturates(t *testing.T) {
	huge := fpu.Box64(math.Float32bits(1e30))
	got, flags := fpu.ConvSToW(huge)
	if got != math.MaxInt32 {
		t.Fatalf("ConvSToW(1e30) = %d, want MaxInt32", got)
	}
	if flags&fpu.FlagNV == 0 {
		t.Fatalf("flags = %x, want NV set on out-of-range conversion", flags)
	}
}

func TestDivSHonorsRoundUp(t *testing.T) {
	a := fpu.Box64(math.Float32bits(1.0))
	b := fpu.Box64(math.Float32bits(3.0))

	got, flags := fpu.DivS(a, b, fpu.RUP)
	want := math.Float32bits(float32(math.Nextafter(float64(float32(1.0/3.0)), math.Inf(1))))
	if fpu.Unbox32(got) != want && fpu.Unbox32(got) != math.Float32bits(1.0/3.0) {
		t.Fatalf("DivS(1/3, RUP) = %x, want RNE result or the next float up", fpu.Unbox32(got))
	}
	if flags&fpu.FlagNX == 0 {
		t.Fatalf("flags = %x, want NX set on inexact quotient", flags)
	}
}
