package algebra

import "github.com/zeebo/xxh3"

// ---------------------------------------------------------------------------
// Digest evaluator.
//
// Width is fixed at 64 bits. All arithmetic wraps in two's complement and
// right shifts are arithmetic (sign-extending), which is what Go's >> does
// on int64. Digest values are not portable to a 32-bit rendition of the
// algebra.
// ---------------------------------------------------------------------------

// Cache lets a caller memoize the digests of composite nodes. Load is
// consulted before a composite is descended into and Store is called once
// its digest is known. Implementations must be safe for the concurrency
// the caller uses them with.
type Cache interface {
	Load(h Hash) (int64, bool)
	Store(h Hash, digest int64)
}

// Digest reduces h to its 64-bit digest.
//
// Digest is pure and safe to call concurrently, including on the same tree.
// The tree must be finite and acyclic; use DigestChecked for input that may
// contain a cycle.
func Digest(h Hash) int64 {
	return DigestWith(h, nil)
}

// DigestWith is Digest with composite-node memoization through c. A nil
// Cache disables memoization.
func DigestWith(h Hash, c Cache) int64 {
	if !isComposite(h) {
		return leafDigest(h)
	}
	if c != nil {
		if d, ok := c.Load(h); ok {
			return d
		}
	}

	// Post-order walk with an explicit stack so deep trees cannot
	// overflow the goroutine stack.
	stack := []frame{newFrame(h)}
	for {
		top := &stack[len(stack)-1]
		if top.next < len(top.elems) {
			child := top.elems[top.next]
			top.next++
			if !isComposite(child) {
				top.add(leafDigest(child))
				continue
			}
			if c != nil {
				if d, ok := c.Load(child); ok {
					top.add(d)
					continue
				}
			}
			stack = append(stack, newFrame(child))
			continue
		}

		d := top.result()
		if c != nil {
			c.Store(top.node, d)
		}
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return d
		}
		stack[len(stack)-1].add(d)
	}
}

// LabelDigest is the string digest used for Label leaves.
func LabelDigest(s string) int64 {
	return int64(xxh3.HashString(s))
}

func leafDigest(h Hash) int64 {
	switch n := h.(type) {
	case *Label:
		if n != nil {
			return LabelDigest(n.Text)
		}
	case *Raw:
		if n != nil {
			return n.Value
		}
	}
	return 0
}

func isComposite(h Hash) bool {
	k := KindOf(h)
	return k == KindOrdered || k == KindUnordered
}

type frame struct {
	node    Hash
	elems   []Hash
	next    int
	acc     int64
	ordered bool
}

func newFrame(h Hash) frame {
	return frame{
		node:    h,
		elems:   children(h),
		ordered: KindOf(h) == KindOrdered,
	}
}

func (f *frame) add(d int64) {
	if f.ordered {
		f.acc = mix(f.acc, d)
		return
	}
	f.acc += d
}

func (f *frame) result() int64 {
	if f.ordered {
		return finish(f.acc)
	}
	return f.acc
}

// mix folds one child digest into an Ordered accumulator
// (one-at-a-time step).
func mix(acc, d int64) int64 {
	acc += d
	acc += acc << 10
	acc ^= acc >> 6
	return acc
}

// finish is the Ordered avalanche finisher. It is applied even when no
// children were folded; finish(0) is 0.
func finish(acc int64) int64 {
	acc += acc << 3
	acc ^= acc >> 11
	acc += acc << 15
	return acc
}
