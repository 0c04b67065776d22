package algebra

// Equal reports whether a and b are structurally identical trees: same
// variant at every position, equal label text, equal raw values, and
// composite children compared pairwise in stored order.
//
// Unordered children are compared positionally here, so two Unordered
// nodes that are permutations of each other have equal digests but are
// not Equal. Use Equivalent for the permutation-invariant relation.
func Equal(a, b Hash) bool {
	type pair struct{ a, b Hash }

	stack := []pair{{a, b}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		k := KindOf(p.a)
		if k != KindOf(p.b) {
			return false
		}
		switch k {
		case KindLabel:
			if p.a.(*Label).Text != p.b.(*Label).Text {
				return false
			}
		case KindRaw:
			if p.a.(*Raw).Value != p.b.(*Raw).Value {
				return false
			}
		case KindOrdered, KindUnordered:
			if p.a == p.b {
				continue
			}
			xs, ys := children(p.a), children(p.b)
			if len(xs) != len(ys) {
				return false
			}
			for i := len(xs) - 1; i >= 0; i-- {
				stack = append(stack, pair{xs[i], ys[i]})
			}
		}
	}
	return true
}

// Equivalent is Equal except that Unordered children are compared as
// multisets, which makes it agree with Digest on every Unordered node.
// It compares canonical fingerprints, so it inherits SHA-256's collision
// bound.
func Equivalent(a, b Hash) bool {
	if a == b {
		return true
	}
	return CanonicalFingerprint(a) == CanonicalFingerprint(b)
}
