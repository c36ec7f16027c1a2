package decode_test

import (
	"strings"
	"testing"

	"github.com/arcbound/rv64hart/internal/decode"
)

func mustDecoder(t *testing.T) *decode.Decoder {
	t.Helper()

	d, err := decode.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}

	return d
}

// encodeR builds an R-type word: funct7 rs2 rs1 funct3 rd opcode.
func encodeR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeI(imm12 uint32, rs1, funct3, rd, opcode uint32) uint32 {
	return imm12<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func TestDecodeADDI(t *testing.T) {
	d := mustDecoder(t)

	word := encodeI(0x7ff, 5, 0b000, 3, 0b0010011) // addi x3, x5, 2047
	decl, err := d.Decode(word)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decl.Name != "ADDI" {
		t.Fatalf("got %s, want ADDI", decl.Name)
	}

	args := d.Args(decl, word)
	if args["rd"] != 3 || args["rs1"] != 5 {
		t.Fatalf("args = %+v", args)
	}

	if args["imm"] != 2047 {
		t.Fatalf("imm = %d, want 2047", args["imm"])
	}
}

func TestDecodeADDINegativeImmediate(t *testing.T) {
	d := mustDecoder(t)

	// addi x1, x0, -1: imm field is all ones.
	word := encodeI(0xfff, 0, 0b000, 1, 0b0010011)

	decl, err := d.Decode(word)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	args := d.Args(decl, word)
	if args["imm"] != -1 {
		t.Fatalf("imm = %d, want -1", args["imm"])
	}
}

func TestDecodeRTypeDistinguishesADDandSUB(t *testing.T) {
	d := mustDecoder(t)

	add := encodeR(0b0000000, 2, 1, 0b000, 3, 0b0110011)
	sub := encodeR(0b0100000, 2, 1, 0b000, 3, 0b0110011)

	declAdd, err := d.Decode(add)
	if err != nil {
		t.Fatal(err)
	}

	declSub, err := d.Decode(sub)
	if err != nil {
		t.Fatal(err)
	}

	if declAdd.Name != "ADD" {
		t.Fatalf("got %s, want ADD", declAdd.Name)
	}

	if declSub.Name != "SUB" {
		t.Fatalf("got %s, want SUB", declSub.Name)
	}
}

func TestDecodeIllegalInstruction(t *testing.T) {
	d := mustDecoder(t)

	// Opcode 1111111 is not assigned to anything in the table.
	_, err := d.Decode(0b1111111)

	var illegal *decode.ErrIllegal
	if !asErrIllegal(err, &illegal) {
		t.Fatalf("Decode error = %v, want *ErrIllegal", err)
	}
}

func asErrIllegal(err error, target **decode.ErrIllegal) bool {
	e, ok := err.(*decode.ErrIllegal)
	if !ok {
		return false
	}

	*target = e

	return true
}

func TestDecodeJALSignExtendsImmediate(t *testing.T) {
	d := mustDecoder(t)

	// jal x0 with word 0xfff0006f: imm[20]=1, imm[10:1]=all 1, imm[11]=1,
	// imm[19:12]=0. Bit 31 (imm[20]) set exercises the sign path.
	word := uint32(0xfff00000 | (0 << 7) | 0b1101111) // bits31:12 = imm bits
	word |= 1 << 31

	decl, err := d.Decode(word)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decl.Name != "JAL" {
		t.Fatalf("got %s, want JAL", decl.Name)
	}

	args := d.Args(decl, word)
	if args["imm"] >= 0 {
		t.Fatalf("imm = %d, want negative", args["imm"])
	}
}

func TestDecodeCompressedADDI4SPN(t *testing.T) {
	d := mustDecoder(t)

	// c.addi4spn x8, sp, 4: quadrant 00, funct3 000, nzuimm bit[2]=1 (instr
	// bit 6), rd'=000 (x8).
	word := uint32(0b000_00000010_000_00)

	decl, err := d.Decode(word)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decl.Name != "C.ADDI4SPN" {
		t.Fatalf("got %s, want C.ADDI4SPN", decl.Name)
	}

	args := d.Args(decl, word)
	if args["rd"] != 8 {
		t.Fatalf("rd = %d, want 8 (x8)", args["rd"])
	}

	if args["imm"] != 4 {
		t.Fatalf("imm = %d, want 4", args["imm"])
	}
}

func TestDecodeCompressedNOPPrecedesADDI(t *testing.T) {
	d := mustDecoder(t)

	word := uint32(0b000_0_00000_00000_01) // c.nop: all zero operand bits

	decl, err := d.Decode(word)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decl.Name != "C.NOP" {
		t.Fatalf("got %s, want C.NOP (more specific than C.ADDI)", decl.Name)
	}
}

func TestDecodeCompressedJRvsMV(t *testing.T) {
	d := mustDecoder(t)

	// c.jr x1: funct4=1000, rd/rs1=00001, rs2=00000.
	jr := uint32(0b1000_00001_00000_10)
	decl, err := d.Decode(jr)
	if err != nil {
		t.Fatal(err)
	}

	if decl.Name != "C.JR" {
		t.Fatalf("got %s, want C.JR", decl.Name)
	}

	// c.mv x1, x2: funct4=1000, rd=00001, rs2=00010 (nonzero).
	mv := uint32(0b1000_00001_00010_10)
	decl, err = d.Decode(mv)
	if err != nil {
		t.Fatal(err)
	}

	if decl.Name != "C.MV" {
		t.Fatalf("got %s, want C.MV", decl.Name)
	}
}

func TestParseRejectsBadBitPattern(t *testing.T) {
	_, err := decode.Parse(strings.NewReader("inst FOO | xxxx | \n"))
	if err == nil {
		t.Fatal("expected parse error for malformed bit pattern")
	}
}

func TestBuildRejectsDuplicateEncodings(t *testing.T) {
	table, err := decode.Parse(strings.NewReader(
		"inst FOO | 00000000000000000000000000000000 | \n" +
			"inst BAR | 00000000000000000000000000000000 | \n",
	))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if _, err := decode.Build(table.Declarations); err == nil {
		t.Fatal("expected Build to reject identical (pattern,mask) declarations")
	}
}

// Every declaration's minimal encoding (its own pattern, with all
// don't-care/argument bits left at zero) must decode to *some* declaration
// whose own (pattern, mask) it satisfies, never to *ErrIllegal. Some minimal
// encodings collide with a more specific sibling (e.g. C.ADDI's all-zero
// encoding is also a valid C.NOP); that's intentional overlap resolved by
// specificity order, not a bug, so this only checks decodability.
func TestDefaultTableDeclarationsDecodable(t *testing.T) {
	table, err := decode.DefaultTable()
	if err != nil {
		t.Fatalf("DefaultTable: %v", err)
	}

	d, err := decode.New(table)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, decl := range table.Declarations {
		if decl.Illegal {
			continue
		}

		word := decl.Pattern

		got, err := d.Decode(word)
		if err != nil {
			t.Errorf("%s: Decode(%#x) = %v, want a match", decl.Name, word, err)
			continue
		}

		if word&got.Mask != got.Pattern {
			t.Errorf("%s: Decode(%#x) returned %s whose own mask/pattern it fails", decl.Name, word, got.Name)
		}
	}
}
