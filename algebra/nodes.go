// Package algebra is a small combinator language for building
// non-cryptographic structural hashes out of nested sub-hashes.
//
// A Hash is an expression tree describing how to combine hashes, not a
// hash number. Leaves are Label, Raw and Empty; composites are Ordered
// (digest depends on element order) and Unordered (digest is invariant
// under any permutation of its elements). Digest reduces a tree to a
// single int64.
package algebra

// ---------------------------------------------------------------------------
// Hash expression tree.
//
// Nodes are immutable once built. The constructors in build.go copy their
// arguments; code that builds nodes with composite literals must not mutate
// the Elements slice afterwards. A nil Hash reads as Empty everywhere.
// ---------------------------------------------------------------------------

// Hash is the interface implemented by the five node variants.
type Hash interface {
	hash() // marker method
}

// Ordered is an order-sensitive composite.
type Ordered struct{ Elements []Hash }

// Unordered is an order-insensitive composite: its digest is the wrapping
// sum of its children's digests.
type Unordered struct{ Elements []Hash }

// Label is a leaf naming something, such as a variant tag or field key.
type Label struct{ Text string }

// Raw embeds a digest computed outside the algebra.
type Raw struct{ Value int64 }

// Empty is the neutral leaf. Its digest is 0.
type Empty struct{}

func (*Ordered) hash()   {}
func (*Unordered) hash() {}
func (*Label) hash()     {}
func (*Raw) hash()       {}
func (*Empty) hash()     {}

// Kind identifies a node variant.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindLabel
	KindRaw
	KindOrdered
	KindUnordered
)

var kindNames = [...]string{
	KindEmpty:     "empty",
	KindLabel:     "label",
	KindRaw:       "raw",
	KindOrdered:   "ordered",
	KindUnordered: "unordered",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindOf reports the variant of h. A nil Hash, including a typed nil
// pointer, is KindEmpty.
func KindOf(h Hash) Kind {
	switch n := h.(type) {
	case *Ordered:
		if n != nil {
			return KindOrdered
		}
	case *Unordered:
		if n != nil {
			return KindUnordered
		}
	case *Label:
		if n != nil {
			return KindLabel
		}
	case *Raw:
		if n != nil {
			return KindRaw
		}
	}
	return KindEmpty
}

// children returns the elements of a composite node, or nil for a leaf.
func children(h Hash) []Hash {
	switch n := h.(type) {
	case *Ordered:
		if n != nil {
			return n.Elements
		}
	case *Unordered:
		if n != nil {
			return n.Elements
		}
	}
	return nil
}
