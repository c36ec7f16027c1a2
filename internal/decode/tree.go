package decode

// tree.go assembles parsed Declarations into an immutable decoder tree and
// implements Query. The tree is a tagged variant (NodeKind), not a class
// hierarchy: dispatch in Query is an explicit switch, never double dispatch
// through an interface method per node.

import (
	"fmt"
	"math/bits"
	"sort"
)

// NodeKind tags the variant held by a Node.
type NodeKind uint8

const (
	// KindLeaf nodes hold exactly one Declaration.
	KindLeaf NodeKind = iota
	// KindSwitch nodes index their Cases map by (word & Mask).
	KindSwitch
	// KindBranch nodes try Children in order, first (word & child.Mask) ==
	// child.Pattern wins.
	KindBranch
)

func (k NodeKind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSwitch:
		return "switch"
	case KindBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// Node is one node of the decoder tree. Exactly the fields relevant to Kind
// are populated; this mirrors the spec's Leaf/Switch/Branch sum type as a Go
// struct with a tag, rather than as an interface with three implementations,
// so Query can dispatch with a single switch instead of a visitor.
type Node struct {
	Kind NodeKind

	// Leaf
	Decl *Declaration

	// Switch
	Mask  uint32
	Cases map[uint32]*Node

	// Branch
	Children []*Node

	// Set on nodes that are themselves a Branch child, so the parent can
	// test (word & Pattern/Mask) without re-deriving it from Decl.
	Pattern uint32
}

// ErrIllegal is returned by Query when no declaration matches the word.
type ErrIllegal struct {
	Word uint32
}

func (e *ErrIllegal) Error() string {
	return fmt.Sprintf("decode: illegal instruction %#08x", e.Word)
}

// Build constructs the decoder tree from a set of declarations. It is called
// once at startup; the result is immutable and safe for concurrent Query
// calls.
func Build(decls []*Declaration) (*Node, error) {
	if len(decls) == 0 {
		return nil, fmt.Errorf("decode: empty declaration set")
	}

	if err := validateNoOverlap(decls); err != nil {
		return nil, err
	}

	return build(decls), nil
}

func build(decls []*Declaration) *Node {
	if len(decls) == 1 {
		d := decls[0]
		return &Node{Kind: KindLeaf, Decl: d, Mask: d.Mask, Pattern: d.Pattern}
	}

	commonMask := ^uint32(0)
	for _, d := range decls {
		commonMask &= d.Mask
	}

	if commonMask != 0 {
		groups := make(map[uint32][]*Declaration)

		for _, d := range decls {
			key := d.Pattern & commonMask
			groups[key] = append(groups[key], d)
		}

		if len(groups) >= 2 {
			cases := make(map[uint32]*Node, len(groups))
			for key, group := range groups {
				cases[key] = build(group)
			}

			return &Node{Kind: KindSwitch, Mask: commonMask, Cases: cases}
		}
	}

	// No window partitions the set cleanly: fall back to an ordered branch,
	// most-specific (highest popcount mask) first, ties broken by ascending
	// pattern, so real instructions are tried before don't-care aliases like
	// illegal/hint sinks.
	ordered := append([]*Declaration(nil), decls...)
	sort.Slice(ordered, func(i, j int) bool {
		pi, pj := bits.OnesCount32(ordered[i].Mask), bits.OnesCount32(ordered[j].Mask)
		if pi != pj {
			return pi > pj
		}

		return ordered[i].Pattern < ordered[j].Pattern
	})

	children := make([]*Node, len(ordered))
	for i, d := range ordered {
		children[i] = &Node{Kind: KindLeaf, Decl: d, Mask: d.Mask, Pattern: d.Pattern}
	}

	return &Node{Kind: KindBranch, Children: children}
}

// validateNoOverlap rejects declaration pairs with identical (pattern, mask):
// a genuine ambiguity the table author must resolve by narrowing one of the
// masks. Declarations that merely overlap (one's mask is a superset that
// happens to match the other's pattern too) are expected -- that's exactly
// what the Branch fallback orders by specificity to resolve -- and are not
// rejected here.
func validateNoOverlap(decls []*Declaration) error {
	seen := make(map[[2]uint32]*Declaration, len(decls))

	for _, d := range decls {
		key := [2]uint32{d.Pattern, d.Mask}
		if other, ok := seen[key]; ok {
			return fmt.Errorf("decode: %s and %s have identical (pattern,mask) %#08x/%#08x",
				d.Name, other.Name, d.Pattern, d.Mask)
		}

		seen[key] = d
	}

	return nil
}

// Query walks the tree from root and returns the matching Declaration, or an
// *ErrIllegal if no declaration matches.
func Query(root *Node, word uint32) (*Declaration, error) {
	node := root

	for {
		switch node.Kind {
		case KindLeaf:
			if node.Decl == nil || word&node.Decl.Mask != node.Decl.Pattern {
				return nil, &ErrIllegal{Word: word}
			}

			return node.Decl, nil

		case KindSwitch:
			child, ok := node.Cases[word&node.Mask]
			if !ok {
				return nil, &ErrIllegal{Word: word}
			}

			node = child

		case KindBranch:
			var next *Node

			for _, c := range node.Children {
				if word&c.Mask == c.Pattern {
					next = c
					break
				}
			}

			if next == nil {
				return nil, &ErrIllegal{Word: word}
			}

			node = next

		default:
			return nil, &ErrIllegal{Word: word}
		}
	}
}
