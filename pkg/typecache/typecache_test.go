package typecache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/model/modeltest"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/store/memory"
	"github.com/chazu/strata/pkg/wall"
)

var wool = wall.LayerSpec{Function: wall.Insulation, Material: wall.Material{Name: "Mineral wool"}, Thickness: 50}

func inTx(t *testing.T, s *memory.Store, fn func(store.Store)) {
	t.Helper()
	require.NoError(t, s.RunInTransaction(context.Background(), t.Name(), func(tx store.Store) error {
		fn(tx)
		return nil
	}))
}

func TestResolveIsIdempotent(t *testing.T) {
	s, err := memory.NewFromDocument(modeltest.SingleWall())
	require.NoError(t, err)
	c := New("", model.Basic, nil)
	ctx := context.Background()

	var first, second wall.TypeRef
	inTx(t, s, func(tx store.Store) {
		first, err = c.Resolve(ctx, tx, wool)
		require.NoError(t, err)
		same := wool
		same.Thickness = 50.2 // rounds to the same key
		second, err = c.Resolve(ctx, tx, same)
		require.NoError(t, err)
	})
	assert.Equal(t, first, second)
	assert.Equal(t, "Strata-Isol-Mine-50mm", first.Name)
	assert.Equal(t, Stats{Lookups: 2, Hits: 1, Created: 1}, c.Stats())

	doc, err := s.Document(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Types, 3)
}

func TestResolveAcrossRunsReusesStoredType(t *testing.T) {
	s, err := memory.NewFromDocument(modeltest.SingleWall())
	require.NoError(t, err)
	ctx := context.Background()

	var created wall.TypeRef
	inTx(t, s, func(tx store.Store) {
		created, err = New("", model.Basic, nil).Resolve(ctx, tx, wool)
		require.NoError(t, err)
	})

	// A fresh cache finds the stored type, even under another spelling.
	c := New("STRATA", model.Basic, nil)
	inTx(t, s, func(tx store.Store) {
		ref, err := c.Resolve(ctx, tx, wool)
		require.NoError(t, err)
		assert.Equal(t, created, ref)
	})
	assert.Equal(t, 1, c.Stats().Found)
	assert.Equal(t, 0, c.Stats().Created)

	doc, err := s.Document(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Types, 3)
}

func TestResolveWithoutTemplate(t *testing.T) {
	s, err := memory.NewFromDocument(modeltest.NoTemplate())
	require.NoError(t, err)
	c := New("", model.Basic, nil)

	inTx(t, s, func(tx store.Store) {
		_, err := c.Resolve(context.Background(), tx, wool)
		assert.ErrorIs(t, err, store.ErrNoTemplate)
	})
	assert.Equal(t, 0, c.Len())
}

// racingStore reports a name as missing once, then as a duplicate on
// creation, as if another writer created it in between.
type racingStore struct {
	store.Store
	finds int
}

func (r *racingStore) FindTypeByName(ctx context.Context, name string) (wall.TypeRef, bool, error) {
	r.finds++
	if r.finds == 1 {
		return wall.TypeRef{}, false, nil
	}
	return wall.TypeRef{ID: "T-other", Name: "strata-isol-mine-50mm"}, true, nil
}

func (r *racingStore) CreateSingleLayerType(ctx context.Context, kind model.TypeKind, name string, layer wall.LayerSpec) (wall.TypeRef, error) {
	return wall.TypeRef{}, store.ErrDuplicateName
}

func TestResolveFallsBackToLookupOnDuplicate(t *testing.T) {
	c := New("", model.Basic, nil)
	ref, err := c.Resolve(context.Background(), &racingStore{}, wool)
	require.NoError(t, err)
	assert.Equal(t, wall.ID("T-other"), ref.ID)
	assert.Equal(t, 1, c.Stats().Found)
}

func TestGeneratedNamesAndForget(t *testing.T) {
	c := New("Strata", model.Basic, nil)
	assert.True(t, c.IsGenerated("Strata-Stru-Conc-200mm"))
	assert.True(t, c.IsGenerated("strata-Stru-Conc-200mm"))
	assert.False(t, c.IsGenerated("Strata"))
	assert.False(t, c.IsGenerated("Exterior 160"))

	c.entries["strata-isol-mine-50mm"] = wall.TypeRef{ID: "x"}
	c.Forget("Strata-Isol-Mine-50mm")
	assert.Equal(t, 0, c.Len())

	c.entries["a"] = wall.TypeRef{}
	c.Reset()
	assert.Equal(t, 0, c.Len())
}
