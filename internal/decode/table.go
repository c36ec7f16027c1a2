package decode

// table.go parses the textual instruction table described in doc.go into
// Fields and Declarations.

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// PostProcess names a post-processing step applied to an extracted field
// value, e.g. widening a compressed 3-bit register index to the full
// 5-bit space by adding 8 (x8-x15).
type PostProcess uint8

const (
	PostNone PostProcess = iota
	PostAdd8
)

func parsePost(s string) (PostProcess, error) {
	switch s {
	case "", "none":
		return PostNone, nil
	case "add_8":
		return PostAdd8, nil
	default:
		return PostNone, fmt.Errorf("decode: unknown post-process %q", s)
	}
}

// bitToken is one "[s]MSB[:LSB][@DSTLSB]" slice of a field definition.
type bitToken struct {
	sign        bool
	msb, lsb    int
	dstLSB      int
	dstLSBGiven bool
}

var tokenRE = regexp.MustCompile(`^(s)?(\d+)(?::(\d+))?(?:@(\d+))?$`)

func parseBitToken(tok string) (bitToken, error) {
	m := tokenRE.FindStringSubmatch(tok)
	if m == nil {
		return bitToken{}, fmt.Errorf("decode: malformed bit token %q", tok)
	}

	var bt bitToken

	bt.sign = m[1] == "s"

	msb, err := strconv.Atoi(m[2])
	if err != nil {
		return bitToken{}, fmt.Errorf("decode: bad msb in %q: %w", tok, err)
	}

	bt.msb = msb
	bt.lsb = msb

	if m[3] != "" {
		lsb, err := strconv.Atoi(m[3])
		if err != nil {
			return bitToken{}, fmt.Errorf("decode: bad lsb in %q: %w", tok, err)
		}

		bt.lsb = lsb
	}

	if bt.msb < bt.lsb {
		return bitToken{}, fmt.Errorf("decode: msb < lsb in %q", tok)
	}

	if m[4] != "" {
		dst, err := strconv.Atoi(m[4])
		if err != nil {
			return bitToken{}, fmt.Errorf("decode: bad dest in %q: %w", tok, err)
		}

		bt.dstLSB = dst
		bt.dstLSBGiven = true
	}

	return bt, nil
}

// Field is a named bit-slice extractor built from one or more bitTokens.
type Field struct {
	Name   string
	Tokens []bitToken
	Sext   bool
	Post   PostProcess
}

// Extract pulls the field's value out of a 32-bit instruction word (callers
// decoding a 16-bit compressed word pass it zero-extended).
func (f *Field) Extract(word uint32) int64 {
	var (
		result     uint64
		next       int
		signDstBit = -1
	)

	for _, t := range f.Tokens {
		width := uint(t.msb - t.lsb + 1)
		mask := uint64(1)<<width - 1
		bits := (uint64(word) >> uint(t.lsb)) & mask

		dst := next
		if t.dstLSBGiven {
			dst = t.dstLSB
		}

		result |= bits << uint(dst)

		if dst+int(width) > next {
			next = dst + int(width)
		}

		if t.sign {
			signDstBit = dst + int(width) - 1
		}
	}

	if f.Sext && signDstBit >= 0 {
		shift := uint(63 - signDstBit)
		result = uint64(int64(result<<shift) >> shift)
	}

	switch f.Post {
	case PostAdd8:
		result += 8
	}

	return int64(result)
}

// ArgBinding describes one operand of an instruction declaration.
type ArgBinding struct {
	Name  string
	Field string // name of the Field supplying the value; empty if Literal is used.

	Literal    int64
	HasLiteral bool
}

// Declaration describes one real instruction, or an illegal/nop sink, as
// parsed from the table.
type Declaration struct {
	Name    string
	Display string
	Size    int // 2 or 4, in bytes
	Pattern uint32
	Mask    uint32
	Args    []ArgBinding

	Illegal bool
	Nop     bool
}

// Table is the parsed, but not yet assembled, instruction table: field
// definitions and declarations in source order.
type Table struct {
	Fields       map[string]*Field
	Declarations []*Declaration
}

// Parse reads the textual instruction table format described in doc.go.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{Fields: make(map[string]*Field)}

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var err error

		switch {
		case strings.HasPrefix(line, "field "):
			err = t.parseField(line)
		case strings.HasPrefix(line, "inst "):
			err = t.parseInst(line, false, false)
		case strings.HasPrefix(line, "illegal "), line == "illegal", strings.HasPrefix(line, "illegal|"):
			err = t.parseInst(strings.Replace(line, "illegal", "inst __illegal__", 1), true, false)
		case strings.HasPrefix(line, "nop "), line == "nop", strings.HasPrefix(line, "nop|"):
			err = t.parseInst(strings.Replace(line, "nop", "inst __nop__", 1), false, true)
		default:
			err = fmt.Errorf("unrecognized line: %q", line)
		}

		if err != nil {
			return nil, fmt.Errorf("decode: table line %d: %w", lineNo, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("decode: scanning table: %w", err)
	}

	return t, nil
}

func (t *Table) parseField(line string) error {
	fields := strings.Fields(strings.TrimPrefix(line, "field "))
	if len(fields) < 2 {
		return fmt.Errorf("malformed field line: %q", line)
	}

	name := fields[0]
	rest := fields[1:]

	post := PostProcess(PostNone)
	last := rest[len(rest)-1]

	if idx := strings.Index(last, "|"); idx >= 0 {
		rest[len(rest)-1] = last[:idx]

		p, err := parsePost(last[idx+1:])
		if err != nil {
			return err
		}

		post = p
	}

	f := &Field{Name: name, Post: post}

	for _, tokStr := range rest {
		tok, err := parseBitToken(tokStr)
		if err != nil {
			return err
		}

		if tok.sign {
			f.Sext = true
		}

		f.Tokens = append(f.Tokens, tok)
	}

	t.Fields[name] = f

	return nil
}

func (t *Table) parseInst(line string, illegal, nop bool) error {
	segments := strings.Split(strings.TrimPrefix(line, "inst "), "|")
	if len(segments) != 3 {
		return fmt.Errorf("malformed inst line (want 3 '|'-separated segments): %q", line)
	}

	head := strings.Fields(strings.TrimSpace(segments[0]))
	if len(head) == 0 {
		return fmt.Errorf("malformed inst head: %q", segments[0])
	}

	decl := &Declaration{
		Name:    head[0],
		Illegal: illegal,
		Nop:     nop,
	}

	if len(head) > 1 {
		decl.Display = strings.Trim(strings.Join(head[1:], " "), `"`)
	}

	patternStr := strings.TrimSpace(segments[1])

	switch len(patternStr) {
	case 32:
		decl.Size = 4
	case 16:
		decl.Size = 2
	default:
		return fmt.Errorf("bit pattern must be 16 or 32 characters, got %d: %q", len(patternStr), patternStr)
	}

	for i, c := range patternStr {
		bit := uint(len(patternStr) - 1 - i)

		switch c {
		case '0':
			decl.Mask |= 1 << bit
		case '1':
			decl.Mask |= 1 << bit
			decl.Pattern |= 1 << bit
		case '*', '.':
			// Don't-care or argument bit: excluded from the match mask.
		default:
			return fmt.Errorf("invalid bit pattern character %q in %q", c, patternStr)
		}
	}

	argsStr := strings.TrimSpace(segments[2])
	if argsStr != "" {
		for _, a := range strings.Fields(argsStr) {
			binding, err := parseArg(a)
			if err != nil {
				return fmt.Errorf("%s: %w", decl.Name, err)
			}

			decl.Args = append(decl.Args, binding)
		}
	}

	t.Declarations = append(t.Declarations, decl)

	return nil
}

func parseArg(a string) (ArgBinding, error) {
	if eq := strings.IndexByte(a, '='); eq >= 0 {
		name, rhs := a[:eq], a[eq+1:]

		if n, err := strconv.ParseInt(rhs, 0, 64); err == nil {
			return ArgBinding{Name: name, Literal: n, HasLiteral: true}, nil
		}

		return ArgBinding{Name: name, Field: rhs}, nil
	}

	return ArgBinding{Name: a, Field: a}, nil
}
