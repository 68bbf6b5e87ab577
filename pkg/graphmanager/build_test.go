package graphmanager

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"lintang/knooppuntx/pkg/contractor"
	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/network"
	"lintang/knooppuntx/pkg/repair"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two fragments of a 1-2 route with a 100 m gap between nodes 11 and 12
func brokenRoute() (*network.RawNetwork, []datastructure.Relation) {
	raw := network.NewRawNetwork()
	step := 500.0 / 111195.0
	raw.AddNode(datastructure.RawNode{ID: 1, Lat: 52.0, Lon: 5.0, JunctionRef: "1"})
	raw.AddNode(datastructure.RawNode{ID: 11, Lat: 52.0 + step, Lon: 5.0})
	raw.AddNode(datastructure.RawNode{ID: 12, Lat: 52.0 + step + 100.0/111195.0, Lon: 5.0})
	raw.AddNode(datastructure.RawNode{ID: 2, Lat: 52.0 + 2*step, Lon: 5.0, JunctionRef: "2"})
	raw.AddWay([]int64{1, 11})
	raw.AddWay([]int64{12, 2})

	rel := datastructure.Relation{ID: 77, FromNodeID: 1, ToNodeID: 2, FromRef: "1", ToRef: "2",
		Ways: [][]int64{{1, 11}, {12, 2}}}
	return raw, []datastructure.Relation{rel}
}

func TestBuildHealsAndWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	raw, rels := brokenRoute()

	g, err := Build(context.Background(), dir, raw, rels, repair.NewHealer(nil), contractor.NewCondenser(nil, contractor.WithWorkers(2)), nil)
	require.NoError(t, err)

	// the bridge makes 1 and 2 adjacent
	e, ok := g.Edge(1, 2)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 11, 12, 2}, e.FullPath)
	assert.Equal(t, 1, g.Metadata.Repair.Healed)

	for _, name := range []string{DatabaseFile, ArtifactFile, MetadataFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	raw2, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	var meta contractor.Metadata
	require.NoError(t, json.Unmarshal(raw2, &meta))
	assert.Equal(t, 2, meta.Knooppunten)
	assert.Equal(t, 1, meta.KnooppuntEdges)

	m, err := Open(dir, 1, nil, nil)
	require.NoError(t, err)
	defer m.Close()
	assert.True(t, m.Loaded())
	h := m.Health(context.Background())
	assert.Equal(t, 4, h.RawNodes)
	assert.Equal(t, "1", h.StoreMeta["relations_healed"])
	assert.Equal(t, "1", h.StoreMeta["bridge_segments"])
}

func TestBuildSkipsUnrepairable(t *testing.T) {
	dir := t.TempDir()
	raw, rels := brokenRoute()

	g, err := Build(context.Background(), dir, raw, rels, repair.NewHealer(nil, repair.WithGapThreshold(50)), contractor.NewCondenser(nil), nil)
	require.NoError(t, err)
	_, ok := g.Edge(1, 2)
	assert.False(t, ok)
	assert.Equal(t, 1, g.Metadata.Repair.Broken)
	assert.Equal(t, 2, g.GetNumNodes())
}
