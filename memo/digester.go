// Package memo caches work over hash trees: Digester memoizes composite
// digests by node identity, Table interns structurally equal trees.
package memo

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chazu/hashalg/algebra"
)

// Digester computes digests, remembering the digest of every composite
// node it has evaluated. Nodes are keyed by identity, which is sound
// because nodes are immutable; trees that share subtrees only pay for each
// shared subtree once.
//
// A Digester is safe for concurrent use.
type Digester struct {
	cache  sync.Map // algebra.Hash -> int64
	size   atomic.Int64
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewDigester returns an empty Digester. When reg is non-nil the hit and
// miss counters are registered on it.
func NewDigester(reg prometheus.Registerer) (*Digester, error) {
	d := &Digester{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hashalg",
			Subsystem: "memo",
			Name:      "hits_total",
			Help:      "composite digests served from the memo",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hashalg",
			Subsystem: "memo",
			Name:      "misses_total",
			Help:      "composite digests computed and stored",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{d.hits, d.misses} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// Digest returns algebra.Digest(h), consulting and filling the memo.
func (d *Digester) Digest(h algebra.Hash) int64 {
	return algebra.DigestWith(h, d)
}

// Load implements algebra.Cache.
func (d *Digester) Load(h algebra.Hash) (int64, bool) {
	v, ok := d.cache.Load(h)
	if !ok {
		return 0, false
	}
	d.hits.Inc()
	return v.(int64), true
}

// Store implements algebra.Cache.
func (d *Digester) Store(h algebra.Hash, digest int64) {
	d.misses.Inc()
	if _, loaded := d.cache.LoadOrStore(h, digest); !loaded {
		d.size.Add(1)
	}
}

// Len returns the number of memoized nodes.
func (d *Digester) Len() int {
	return int(d.size.Load())
}

// Reset drops every memoized digest. Counters are left alone.
func (d *Digester) Reset() {
	d.cache.Range(func(k, _ any) bool {
		if _, ok := d.cache.LoadAndDelete(k); ok {
			d.size.Add(-1)
		}
		return true
	})
}

var _ algebra.Cache = (*Digester)(nil)
