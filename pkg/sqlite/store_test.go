package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metersPerDegreeLat = 111195.0

func writeTestStore(t *testing.T, raw *network.RawNetwork) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultDBFileName)
	require.NoError(t, WriteNetwork(context.Background(), path, raw, map[string]string{"source": "test"}, nil))
	store, err := Open(path, 2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNearest(t *testing.T) {
	raw := network.NewRawNetwork()
	raw.AddNode(datastructure.RawNode{ID: 1, Lat: 52.0 + 100.0/metersPerDegreeLat, Lon: 5.0, JunctionRef: "11"})
	raw.AddNode(datastructure.RawNode{ID: 2, Lat: 52.0 - 50.0/metersPerDegreeLat, Lon: 5.0})
	raw.AddNode(datastructure.RawNode{ID: 3, Lat: 52.0 + 200.0/metersPerDegreeLat, Lon: 5.0, JunctionRef: "12"})
	store := writeTestStore(t, raw)
	ctx := context.Background()

	n, d, err := store.NearestNode(ctx, 52.0, 5.0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.ID)
	assert.InDelta(t, 50.0, d, 1.0)

	j, d, err := store.NearestJunction(ctx, 52.0, 5.0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), j.ID)
	assert.Equal(t, "11", j.JunctionRef)
	assert.InDelta(t, 100.0, d, 1.0)

	t.Run("window widens", func(t *testing.T) {
		// ~0.3 degrees away, only the 0.5 degree window sees it
		n, _, err := store.NearestNode(ctx, 52.3, 5.0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n.ID)
	})

	t.Run("nothing nearby", func(t *testing.T) {
		_, _, err := store.NearestNode(ctx, 10.0, 10.0)
		assert.ErrorIs(t, err, ErrNoNodeNearby)
	})
}

func TestNodeCoordsBatches(t *testing.T) {
	raw := network.NewRawNetwork()
	ids := make([]int64, 0)
	for i := int64(1); i <= 2000; i++ {
		raw.AddNode(datastructure.RawNode{ID: i, Lat: 52.0 + float64(i)*0.0001, Lon: 5.0})
		ids = append(ids, i)
	}
	store := writeTestStore(t, raw)

	coords, err := store.NodeCoords(context.Background(), append(ids, 99999, 1, 1))
	require.NoError(t, err)
	assert.Len(t, coords, 2000)
	assert.InDelta(t, 52.15, coords[1500].Lat, 1e-9)
	_, ok := coords[99999]
	assert.False(t, ok)
}

func TestSubgraph(t *testing.T) {
	raw := network.NewRawNetwork()
	raw.AddNode(datastructure.RawNode{ID: 1, Lat: 52.0, Lon: 5.0})
	raw.AddNode(datastructure.RawNode{ID: 2, Lat: 52.01, Lon: 5.0, JunctionRef: "7"})
	raw.AddNode(datastructure.RawNode{ID: 3, Lat: 52.2, Lon: 5.0})
	raw.AddWay([]int64{1, 2, 3})
	store := writeTestStore(t, raw)

	sub, err := store.Subgraph(context.Background(), 52.0, 5.0, 5000)
	require.NoError(t, err)
	assert.Equal(t, 2, sub.NumNodes())
	assert.Equal(t, 2, sub.NumEdges())
	n, ok := sub.Node(2)
	require.True(t, ok)
	assert.Equal(t, "7", n.JunctionRef)
	assert.False(t, sub.HasNode(3))

	nodes, edges, err := store.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, nodes)
	assert.Equal(t, 4, edges)

	meta, err := store.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", meta["source"])
}

func TestReadOnly(t *testing.T) {
	raw := network.NewRawNetwork()
	raw.AddNode(datastructure.RawNode{ID: 1, Lat: 52.0, Lon: 5.0})
	store := writeTestStore(t, raw)

	_, err := store.db.Exec("INSERT INTO nodes (id, lat, lon) VALUES (2, 1, 1)")
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "missing.db"), 1, nil)
	assert.Error(t, err)
}
