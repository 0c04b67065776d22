package memo

import (
	"sync"

	"github.com/chazu/hashalg/algebra"
)

// ---------------------------------------------------------------------------
// Table: structural interning for hash trees
// ---------------------------------------------------------------------------

// Table deduplicates hash trees. Trees are keyed by their structural
// fingerprint and confirmed with algebra.Equal, so two trees intern to the
// same value exactly when they are Equal.
type Table struct {
	mu    sync.RWMutex
	trees map[[32]byte][]algebra.Hash
	count int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{trees: make(map[[32]byte][]algebra.Hash)}
}

// Intern returns the first tree added to the table that is Equal to h,
// adding h if there is none.
func (t *Table) Intern(h algebra.Hash) algebra.Hash {
	fp := algebra.Fingerprint(h)

	t.mu.RLock()
	if found := match(t.trees[fp], h); found != nil {
		t.mu.RUnlock()
		return found
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if found := match(t.trees[fp], h); found != nil {
		return found
	}
	t.trees[fp] = append(t.trees[fp], h)
	t.count++
	return h
}

// Lookup returns the interned tree with the given fingerprint, or nil.
func (t *Table) Lookup(fp [32]byte) algebra.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if bucket := t.trees[fp]; len(bucket) > 0 {
		return bucket[0]
	}
	return nil
}

// Contains reports whether a tree Equal to h has been interned.
func (t *Table) Contains(h algebra.Hash) bool {
	fp := algebra.Fingerprint(h)
	t.mu.RLock()
	defer t.mu.RUnlock()
	return match(t.trees[fp], h) != nil
}

// Len returns the number of distinct trees in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

func match(bucket []algebra.Hash, h algebra.Hash) algebra.Hash {
	for _, candidate := range bucket {
		if algebra.Equal(candidate, h) {
			return candidate
		}
	}
	return nil
}
