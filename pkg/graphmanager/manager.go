package graphmanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"lintang/knooppuntx/pkg/contractor"
	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/network"
	"lintang/knooppuntx/pkg/sqlite"

	"go.uber.org/zap"
)

const (
	ArtifactFile = "condensed_graph.gob.zst"
	DatabaseFile = sqlite.DefaultDBFileName
	MetadataFile = "metadata.json"

	SourcePrebuilt = "pre-built"
	SourceRawStore = "raw-store"
)

var ErrNoGraph = errors.New("no junction graph available")

// RawStore persisted raw network, see sqlite.Store.
type RawStore interface {
	NearestNode(ctx context.Context, lat, lon float64) (datastructure.RawNode, float64, error)
	NearestJunction(ctx context.Context, lat, lon float64) (datastructure.RawNode, float64, error)
	NodeCoords(ctx context.Context, ids []int64) (map[int64]datastructure.Coordinate, error)
	Subgraph(ctx context.Context, lat, lon, radiusM float64) (*network.RawNetwork, error)
	Counts(ctx context.Context) (int, int, error)
	Metadata(ctx context.Context) (map[string]string, error)
	Close() error
}

type Health struct {
	Loaded      bool                `json:"loaded"`
	GraphSource string              `json:"graph_source"`
	Metadata    contractor.Metadata `json:"metadata"`
	RawNodes    int                 `json:"raw_nodes"`
	RawEdges    int                 `json:"raw_edges"`
	StoreMeta   map[string]string   `json:"store_metadata,omitempty"`
	LoadError   string              `json:"load_error,omitempty"`
}

/*
Manager owns the condensed junction graph and the raw network store for the process lifetime.
The loaded graph is never mutated; callers receive copies through RegionGraph.
When no artifact could be loaded, RegionGraph condenses a raw subgraph read from the store per call.
*/
type Manager struct {
	store     RawStore
	graph     *contractor.CondensedGraph
	loadErr   error
	condenser *contractor.Condenser
	log       *zap.Logger
}

// Open loads <dataDir>/network.db (required) and <dataDir>/condensed_graph.gob.zst (optional).
// A corrupt artifact is logged and left unloaded.
func Open(dataDir string, maxConns int, condenser *contractor.Condenser, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	store, err := sqlite.Open(filepath.Join(dataDir, DatabaseFile), maxConns, log)
	if err != nil {
		return nil, err
	}

	artifact := filepath.Join(dataDir, ArtifactFile)
	graph, loadErr := contractor.LoadGraph(artifact)
	switch {
	case loadErr == nil:
		log.Info("loaded condensed graph",
			zap.String("path", artifact),
			zap.Int("knooppunten", graph.GetNumNodes()),
			zap.Int("edges", graph.GetNumEdges()))
	case errors.Is(loadErr, os.ErrNotExist):
		log.Warn("no condensed graph artifact, serving from raw store", zap.String("path", artifact))
		graph = nil
	default:
		log.Error("refusing condensed graph artifact, serving from raw store",
			zap.String("path", artifact), zap.Error(loadErr))
		graph = nil
	}

	m := NewManager(store, graph, condenser, log)
	m.loadErr = loadErr
	return m, nil
}

// NewManager graph may be nil.
func NewManager(store RawStore, graph *contractor.CondensedGraph, condenser *contractor.Condenser,
	log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if condenser == nil {
		condenser = contractor.NewCondenser(log)
	}
	return &Manager{store: store, graph: graph, condenser: condenser, log: log}
}

func (m *Manager) Loaded() bool {
	return m.graph != nil
}

// Graph the loaded graph, nil when none is loaded. Read-only.
func (m *Manager) Graph() *contractor.CondensedGraph {
	return m.graph
}

func (m *Manager) Store() RawStore {
	return m.store
}

// RegionGraph junction graph around (lat, lon): a subgraph copy of the loaded graph,
// or a fresh condensation of the raw store's subgraph. Also returns its source and the raw subgraph
// size (zero for the loaded graph).
func (m *Manager) RegionGraph(ctx context.Context, lat, lon, radiusM float64) (*contractor.CondensedGraph, string, *network.RawNetwork, error) {
	if m.graph != nil {
		return m.graph.Subgraph(lat, lon, radiusM), SourcePrebuilt, nil, nil
	}
	if m.store == nil {
		return nil, "", nil, ErrNoGraph
	}
	raw, err := m.store.Subgraph(ctx, lat, lon, radiusM)
	if err != nil {
		return nil, "", nil, fmt.Errorf("read raw subgraph: %w", err)
	}
	m.log.Debug("condensing raw subgraph",
		zap.Float64("radius_m", radiusM), zap.Int("nodes", raw.NumNodes()), zap.Int("edges", raw.NumEdges()))
	return m.condenser.Condense(raw), SourceRawStore, raw, nil
}

// NearestJunction closest junction node in the store, or in the loaded graph when there is no store.
func (m *Manager) NearestJunction(ctx context.Context, lat, lon float64) (datastructure.Knooppunt, float64, error) {
	if m.store != nil {
		n, d, err := m.store.NearestJunction(ctx, lat, lon)
		if err != nil {
			return datastructure.Knooppunt{}, 0, err
		}
		return datastructure.Knooppunt{ID: n.ID, Lat: n.Lat, Lon: n.Lon, Ref: n.JunctionRef}, d, nil
	}
	if m.graph != nil {
		if k, d, ok := m.graph.NearestJunction(lat, lon); ok {
			return k, d, nil
		}
	}
	return datastructure.Knooppunt{}, 0, sqlite.ErrNoNodeNearby
}

func (m *Manager) Health(ctx context.Context) Health {
	h := Health{Loaded: m.graph != nil, GraphSource: SourceRawStore}
	if m.graph != nil {
		h.GraphSource = SourcePrebuilt
		h.Metadata = m.graph.Metadata
	}
	if m.loadErr != nil && !errors.Is(m.loadErr, os.ErrNotExist) {
		h.LoadError = m.loadErr.Error()
	}
	if m.store != nil {
		nodes, edges, err := m.store.Counts(ctx)
		if err != nil {
			m.log.Warn("failed to count raw network", zap.Error(err))
		}
		h.RawNodes, h.RawEdges = nodes, edges
		meta, err := m.store.Metadata(ctx)
		if err != nil {
			m.log.Warn("failed to read network metadata", zap.Error(err))
		}
		h.StoreMeta = meta
	}
	return h
}

func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}
