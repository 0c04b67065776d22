package algebra

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed reports a tree that violates the finite-tree precondition,
// i.e. a composite node that is reachable from itself.
var ErrMalformed = errors.New("malformed hash tree")

// Check verifies that h is acyclic. Shared subtrees are allowed; only a
// node that appears on its own ancestor path is rejected. The returned
// error wraps ErrMalformed and names the offending path as child indexes
// from the root.
func Check(h Hash) error {
	if !isComposite(h) {
		return nil
	}

	type visit struct {
		node  Hash
		elems []Hash
		next  int
	}
	onPath := map[Hash]bool{h: true}
	done := map[Hash]bool{}
	stack := []visit{{node: h, elems: children(h)}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.elems) {
			delete(onPath, top.node)
			done[top.node] = true
			stack = stack[:len(stack)-1]
			continue
		}
		idx := top.next
		child := top.elems[idx]
		top.next++
		if !isComposite(child) || done[child] {
			continue
		}
		if onPath[child] {
			path := make([]string, 0, len(stack))
			for _, v := range stack {
				path = append(path, strconv.Itoa(v.next-1))
			}
			return fmt.Errorf("%w: node at /%s contains itself", ErrMalformed, strings.Join(path, "/"))
		}
		onPath[child] = true
		stack = append(stack, visit{node: child, elems: children(child)})
	}
	return nil
}

// DigestChecked is Digest preceded by Check.
func DigestChecked(h Hash) (int64, error) {
	if err := Check(h); err != nil {
		return 0, err
	}
	return Digest(h), nil
}
