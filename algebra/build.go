package algebra

import (
	"errors"
	"fmt"
)

// ErrNotHashable is returned by From for values with no route into the
// algebra.
var ErrNotHashable = errors.New("value is not hashable")

// Hashable is implemented by values that produce their own canonical Hash
// tree ("algebraically hashable").
type Hashable interface {
	AlgebraicHash() Hash
}

// OpaqueHasher is implemented by values that only offer a precomputed
// integer hash. Such values enter the algebra as Raw leaves.
type OpaqueHasher interface {
	Hash64() int64
}

var empty = &Empty{}

// NewEmpty returns the neutral leaf.
func NewEmpty() *Empty { return empty }

// NewLabel returns a Label leaf for s.
func NewLabel(s string) *Label { return &Label{Text: s} }

// NewRaw embeds an externally computed digest.
func NewRaw(v int64) *Raw { return &Raw{Value: v} }

// NewOrdered returns an Ordered node over a copy of xs.
func NewOrdered(xs ...Hash) *Ordered {
	return &Ordered{Elements: cloneHashes(xs)}
}

// NewUnordered returns an Unordered node over a copy of xs.
func NewUnordered(xs ...Hash) *Unordered {
	return &Unordered{Elements: cloneHashes(xs)}
}

// Named tags a group with a leading label: Ordered(Label(name), xs...).
// Two groups with identical children but different names digest
// differently.
func Named(name string, xs ...Hash) *Ordered {
	elems := make([]Hash, 0, len(xs)+1)
	elems = append(elems, NewLabel(name))
	elems = append(elems, xs...)
	return &Ordered{Elements: elems}
}

// Lift delegates to v's own canonical tree. A nil v or a nil result
// reads as Empty.
func Lift(v Hashable) Hash {
	if v == nil {
		return empty
	}
	h := v.AlgebraicHash()
	if h == nil {
		return empty
	}
	return h
}

// LiftOpaque wraps v's integer hash in a Raw leaf. A nil v wraps 0.
func LiftOpaque(v OpaqueHasher) *Raw {
	if v == nil {
		return NewRaw(0)
	}
	return NewRaw(v.Hash64())
}

// From lifts an arbitrary value into the algebra. When a value offers both
// capabilities the algebraic route wins, so structure is never flattened
// into an opaque integer by accident. Strings become labels; booleans and
// integers become Raw leaves; nil becomes Empty.
func From(v any) (Hash, error) {
	switch x := v.(type) {
	case nil:
		return empty, nil
	case Hash:
		if KindOf(x) == KindEmpty {
			return empty, nil
		}
		return x, nil
	case Hashable:
		return Lift(x), nil
	case OpaqueHasher:
		return LiftOpaque(x), nil
	case string:
		return NewLabel(x), nil
	case bool:
		if x {
			return NewRaw(1), nil
		}
		return NewRaw(0), nil
	case int:
		return NewRaw(int64(x)), nil
	case int8:
		return NewRaw(int64(x)), nil
	case int16:
		return NewRaw(int64(x)), nil
	case int32:
		return NewRaw(int64(x)), nil
	case int64:
		return NewRaw(x), nil
	case uint:
		return NewRaw(int64(x)), nil
	case uint8:
		return NewRaw(int64(x)), nil
	case uint16:
		return NewRaw(int64(x)), nil
	case uint32:
		return NewRaw(int64(x)), nil
	case uint64:
		return NewRaw(int64(x)), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrNotHashable, v)
}

// FromAll lifts each value with From and returns the results in order.
func FromAll(vs ...any) ([]Hash, error) {
	out := make([]Hash, len(vs))
	for i, v := range vs {
		h, err := From(v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = h
	}
	return out, nil
}

// Derive returns the opaque view of an algebraically hashable value: its
// Hash64 is the Digest of its canonical tree.
func Derive(v Hashable) OpaqueHasher {
	return derived{v}
}

type derived struct{ v Hashable }

func (d derived) Hash64() int64 { return Digest(Lift(d.v)) }

// Every node is trivially hashable in both senses.

func (n *Ordered) AlgebraicHash() Hash   { return n }
func (n *Unordered) AlgebraicHash() Hash { return n }
func (n *Label) AlgebraicHash() Hash     { return n }
func (n *Raw) AlgebraicHash() Hash       { return n }
func (n *Empty) AlgebraicHash() Hash     { return n }

func (n *Ordered) Hash64() int64   { return Digest(n) }
func (n *Unordered) Hash64() int64 { return Digest(n) }
func (n *Label) Hash64() int64     { return Digest(n) }
func (n *Raw) Hash64() int64       { return Digest(n) }
func (n *Empty) Hash64() int64     { return 0 }

func cloneHashes(xs []Hash) []Hash {
	if len(xs) == 0 {
		return nil
	}
	out := make([]Hash, len(xs))
	copy(out, xs)
	return out
}
