package decode

import (
	"embed"
	"fmt"
)

//go:embed rv64gc.table
var defaultTableFS embed.FS

// DefaultTable returns the instruction table covering RV64IMAFDC_Zifencei
// plus the system/CSR instructions this hart implements.
func DefaultTable() (*Table, error) {
	f, err := defaultTableFS.Open("rv64gc.table")
	if err != nil {
		return nil, fmt.Errorf("decode: open default table: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Decoder pairs the assembled tree with the field table needed to extract
// operands from a matched declaration.
type Decoder struct {
	table *Table
	root  *Node
}

// New builds a Decoder from a parsed Table.
func New(table *Table) (*Decoder, error) {
	root, err := Build(table.Declarations)
	if err != nil {
		return nil, err
	}

	return &Decoder{table: table, root: root}, nil
}

// NewDefault builds a Decoder from DefaultTable.
func NewDefault() (*Decoder, error) {
	table, err := DefaultTable()
	if err != nil {
		return nil, err
	}

	return New(table)
}

// Decode returns the declaration matching word, or *ErrIllegal.
func (d *Decoder) Decode(word uint32) (*Declaration, error) {
	return Query(d.root, word)
}

// Args extracts the operand values named by decl.Args out of word, keyed by
// argument name.
func (d *Decoder) Args(decl *Declaration, word uint32) map[string]int64 {
	out := make(map[string]int64, len(decl.Args))

	for _, a := range decl.Args {
		if a.HasLiteral {
			out[a.Name] = a.Literal
			continue
		}

		f, ok := d.table.Fields[a.Field]
		if !ok {
			continue
		}

		out[a.Name] = f.Extract(word)
	}

	return out
}

// Root returns the tree's root node, e.g. for a "decode-table" dump command.
func (d *Decoder) Root() *Node { return d.root }
