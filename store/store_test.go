package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/hashalg/algebra"
	"github.com/chazu/hashalg/algebra/notation"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "digests.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	h := notation.MustParse("Point[1 2]")
	rec, err := s.Put(ctx, "origin", h)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "origin", rec.Name)
	assert.Equal(t, `["Point" 1 2]`, rec.Expr)
	assert.Equal(t, algebra.Digest(h), rec.Digest)
	assert.Equal(t, algebra.Fingerprint(h), rec.Fingerprint)

	got, err := s.Get(ctx, "origin")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	tree, err := got.Tree()
	require.NoError(t, err)
	assert.True(t, algebra.Equal(h, tree))
}

func TestStore_PutReplacesByName(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	first, err := s.Put(ctx, "x", algebra.NewRaw(1))
	require.NoError(t, err)
	second, err := s.Put(ctx, "x", algebra.NewRaw(2))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "replacing keeps the record id")
	assert.Equal(t, int64(2), second.Digest)

	recs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestStore_GetMissing(t *testing.T) {
	s := openTest(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RejectsCyclicTree(t *testing.T) {
	s := openTest(t)
	o := &algebra.Ordered{}
	o.Elements = []algebra.Hash{o}

	_, err := s.Put(context.Background(), "loop", o)
	assert.ErrorIs(t, err, algebra.ErrMalformed)
}

func TestStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	for _, name := range []string{"b", "a", "c"} {
		_, err := s.Put(ctx, name, algebra.NewLabel(name))
		require.NoError(t, err)
	}
	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{recs[0].Name, recs[1].Name, recs[2].Name})

	require.NoError(t, s.Delete(ctx, "b"))
	assert.ErrorIs(t, s.Delete(ctx, "b"), ErrNotFound)

	recs, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestStore_Verify(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	_, err := s.Put(ctx, "set", notation.MustParse(`{"a" "b"}`))
	require.NoError(t, err)
	require.NoError(t, s.Verify(ctx, "set"))

	_, err = s.db.ExecContext(ctx, "UPDATE digests SET digest = digest + 1 WHERE name = ?", "set")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Verify(ctx, "set"), ErrDigestMismatch)
}

func TestStore_InMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Put(ctx, "e", algebra.NewEmpty())
	require.NoError(t, err)
	rec, err := s.Get(ctx, "e")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Digest)
}

func TestStore_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := openTest(t)
	src.now = func() time.Time { return time.Unix(1700000000, 0) }

	trees := map[string]string{
		"point":  "Point[1 2]",
		"person": `Person[{["name" "ada"] ["age" 36]}]`,
		"empty":  "empty",
	}
	for name, expr := range trees {
		_, err := src.Put(ctx, name, notation.MustParse(expr))
		require.NoError(t, err)
	}

	data, err := src.Export(ctx)
	require.NoError(t, err)

	again, err := src.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, data, again, "canonical export should be byte-stable")

	dst := openTest(t)
	n, err := dst.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want, err := src.List(ctx)
	require.NoError(t, err)
	got, err := dst.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_ImportRejectsDrift(t *testing.T) {
	ctx := context.Background()
	h := notation.MustParse("[1 2]")
	data, err := MarshalSnapshot(&Snapshot{
		Version: SnapshotVersion,
		Records: []Record{{
			ID:          "id-1",
			Name:        "drifted",
			Expr:        algebra.Format(h),
			Fingerprint: algebra.Fingerprint(h),
			Digest:      algebra.Digest(h) + 1,
		}},
	})
	require.NoError(t, err)

	s := openTest(t)
	_, err = s.Import(ctx, data)
	assert.ErrorIs(t, err, ErrDigestMismatch)

	recs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestUnmarshalSnapshot_BadVersion(t *testing.T) {
	data, err := MarshalSnapshot(&Snapshot{Version: 99})
	require.NoError(t, err)
	_, err = UnmarshalSnapshot(data)
	assert.Error(t, err)

	_, err = UnmarshalSnapshot([]byte{0xff, 0x00})
	assert.Error(t, err)
}
