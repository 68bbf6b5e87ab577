package osmparser

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wayOf(id osm.WayID, tags osm.Tags, nodes ...osm.NodeID) *osm.Way {
	w := &osm.Way{ID: id, Tags: tags}
	for _, n := range nodes {
		w.Nodes = append(w.Nodes, osm.WayNode{ID: n})
	}
	return w
}

func TestParserBuild(t *testing.T) {
	p := NewOsmParser(nil, false)

	p.HandleObject(&osm.Relation{
		ID:   900,
		Tags: osm.Tags{{Key: "type", Value: "route"}, {Key: "network", Value: "rcn"}, {Key: "ref", Value: "12-47"}},
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 10},
			{Type: osm.TypeWay, Ref: 11},
		},
	})
	p.HandleObject(&osm.Relation{
		ID:      901,
		Tags:    osm.Tags{{Key: "network", Value: "ncn"}},
		Members: osm.Members{{Type: osm.TypeWay, Ref: 99}},
	})

	p.HandleObject(wayOf(10, nil, 1, 2, 3))
	p.HandleObject(wayOf(11, nil, 3, 4))
	p.HandleObject(wayOf(12, osm.Tags{{Key: "rcn", Value: "yes"}}, 4, 5))
	p.HandleObject(wayOf(99, osm.Tags{{Key: "highway", Value: "primary"}}, 5, 6))

	p.HandleObject(&osm.Node{ID: 1, Lat: 51.00, Lon: 3.70, Tags: osm.Tags{{Key: "rcn_ref", Value: "12"}}})
	p.HandleObject(&osm.Node{ID: 2, Lat: 51.001, Lon: 3.70})
	p.HandleObject(&osm.Node{ID: 3, Lat: 51.002, Lon: 3.70})
	p.HandleObject(&osm.Node{ID: 4, Lat: 51.003, Lon: 3.70, Tags: osm.Tags{{Key: "rcn_ref", Value: "47"}}})
	p.HandleObject(&osm.Node{ID: 5, Lat: 51.004, Lon: 3.70, Tags: osm.Tags{{Key: "lcn_ref", Value: "3"}}})
	p.HandleObject(&osm.Node{ID: 6, Lat: 51.005, Lon: 3.70})

	res := p.Build()
	require.NotNil(t, res)

	assert.Equal(t, 5, res.Network.NumNodes())
	assert.False(t, res.Network.HasNode(6))
	assert.Equal(t, []int64{1, 4, 5}, res.Network.Junctions())
	// 4 undirected segments, stored in both directions
	assert.Equal(t, 8, res.Network.NumEdges())

	require.Len(t, res.Relations, 1)
	rel := res.Relations[0]
	assert.Equal(t, int64(900), rel.ID)
	assert.Equal(t, "12", rel.FromRef)
	assert.Equal(t, "47", rel.ToRef)
	assert.Equal(t, int64(1), rel.FromNodeID)
	assert.Equal(t, int64(4), rel.ToNodeID)
	assert.Equal(t, [][]int64{{1, 2, 3}, {3, 4}}, rel.Ways)
}

func TestRelationWithoutRef(t *testing.T) {
	p := NewOsmParser(nil, false)
	p.HandleObject(&osm.Relation{
		ID:      7,
		Tags:    osm.Tags{{Key: "network", Value: "lcn"}},
		Members: osm.Members{{Type: osm.TypeWay, Ref: 1}},
	})
	p.HandleObject(wayOf(1, nil, 1, 2))
	p.HandleObject(&osm.Node{ID: 1, Lat: 51, Lon: 3, Tags: osm.Tags{{Key: "rcn_ref", Value: "1"}}})
	p.HandleObject(&osm.Node{ID: 2, Lat: 51.001, Lon: 3})

	res := p.Build()
	require.Len(t, res.Relations, 1)
	assert.Zero(t, res.Relations[0].FromNodeID)
	assert.Zero(t, res.Relations[0].ToNodeID)
	assert.Len(t, res.Relations[0].Ways, 1)
}
