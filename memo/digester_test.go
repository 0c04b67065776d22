package memo

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/hashalg/algebra"
	"github.com/chazu/hashalg/algebra/notation"
)

func TestDigester_MatchesDigest(t *testing.T) {
	d, err := NewDigester(nil)
	require.NoError(t, err)

	for _, src := range []string{
		"empty",
		`"a"`,
		"Point[1 2]",
		`{["name" "ada"] ["age" 36]}`,
		`[[] {} [empty]]`,
	} {
		h := notation.MustParse(src)
		assert.Equal(t, algebra.Digest(h), d.Digest(h), src)
	}
}

func TestDigester_SharedSubtreeComputedOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	d, err := NewDigester(reg)
	require.NoError(t, err)

	shared := algebra.Named("Shared", algebra.NewRaw(1))
	h := algebra.NewUnordered(shared, shared, algebra.NewOrdered(shared))

	want := algebra.Digest(h)
	require.Equal(t, want, d.Digest(h))

	// shared, the inner Ordered and the root.
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, float64(3), testutil.ToFloat64(d.misses))
	assert.Equal(t, float64(2), testutil.ToFloat64(d.hits))

	require.Equal(t, want, d.Digest(h))
	assert.Equal(t, float64(3), testutil.ToFloat64(d.hits))
}

func TestDigester_RegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewDigester(reg)
	require.NoError(t, err)
	_, err = NewDigester(reg)
	assert.Error(t, err)
}

func TestDigester_Reset(t *testing.T) {
	d, err := NewDigester(nil)
	require.NoError(t, err)

	h := notation.MustParse("[1 [2 [3]]]")
	d.Digest(h)
	require.Equal(t, 3, d.Len())

	d.Reset()
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, algebra.Digest(h), d.Digest(h))
}

func TestDigester_ConcurrentReset(t *testing.T) {
	d, err := NewDigester(nil)
	require.NoError(t, err)

	h := notation.MustParse(`Tree[{Leaf[1] Leaf[2]} {Leaf[3] [Leaf[4] Leaf[5]]}]`)
	for round := 0; round < 50; round++ {
		d.Digest(h)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.Reset()
				assert.GreaterOrEqual(t, d.Len(), 0)
			}()
		}
		wg.Wait()
		require.Equal(t, 0, d.Len(), "round %d", round)
	}
}

func TestDigester_Concurrent(t *testing.T) {
	d, err := NewDigester(nil)
	require.NoError(t, err)

	h := notation.MustParse(`Tree[{Leaf[1] Leaf[2]} {Leaf[3] [Leaf[4] Leaf[5]]}]`)
	want := algebra.Digest(h)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := d.Digest(h); got != want {
					t.Errorf("got %d, want %d", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}
