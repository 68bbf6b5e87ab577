package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/geo"
	"lintang/knooppuntx/pkg/network"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DefaultDBFileName = "network.db"
	// sqlite caps bound parameters per statement
	batchSize = 900
	// degrees per meter along a meridian
	metersPerDegree = 111000.0
)

// window half-widths in degrees tried in order by the nearest-node lookups
var searchDeltas = []float64{0.01, 0.05, 0.1, 0.5}

var ErrNoNodeNearby = errors.New("no network node near point")

// Store read-only view of the persisted raw network: nodes, an R*Tree over node points, directed edges.
type Store struct {
	db     *sql.DB
	dbPath string
	log    *zap.Logger
}

// Open opens an existing network database read-only. maxConns caps the pool so each concurrent
// request holds its own connection.
func Open(dbPath string, maxConns int, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("network database: %w", err)
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)", abs)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns < 1 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Info("opened network database", zap.String("path", abs), zap.Int("max_conns", maxConns))
	return &Store{db: db, dbPath: abs, log: log}, nil
}

func (s *Store) Close() error {
	s.log.Debug("closing network database", zap.String("path", s.dbPath))
	return s.db.Close()
}

func (s *Store) Counts(ctx context.Context) (nodes int, edges int, err error) {
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&nodes); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges").Scan(&edges); err != nil {
		return 0, 0, err
	}
	return nodes, edges, nil
}

func (s *Store) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM build_metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// NearestNode closest raw node to (lat, lon) and its distance in meters.
func (s *Store) NearestNode(ctx context.Context, lat, lon float64) (datastructure.RawNode, float64, error) {
	return s.nearest(ctx, lat, lon, false)
}

// NearestJunction closest node carrying a junction ref.
func (s *Store) NearestJunction(ctx context.Context, lat, lon float64) (datastructure.RawNode, float64, error) {
	return s.nearest(ctx, lat, lon, true)
}

// nearest widens the R*Tree window until it holds at least one node, then ranks by great-circle distance.
func (s *Store) nearest(ctx context.Context, lat, lon float64, junctionsOnly bool) (datastructure.RawNode, float64, error) {
	query := `SELECT n.id, n.lat, n.lon, n.rcn_ref FROM nodes_rtree r JOIN nodes n ON n.id = r.id
		WHERE r.min_lat >= ? AND r.max_lat <= ? AND r.min_lon >= ? AND r.max_lon <= ?`
	if junctionsOnly {
		query += " AND n.rcn_ref IS NOT NULL"
	}
	for _, delta := range searchDeltas {
		nodes, err := s.queryNodes(ctx, query, lat-delta, lat+delta, lon-delta, lon+delta)
		if err != nil {
			return datastructure.RawNode{}, 0, err
		}
		if len(nodes) == 0 {
			continue
		}
		best := nodes[0]
		bestDist := math.Inf(1)
		for _, n := range nodes {
			d := geo.CalculateHaversineDistance(lat, lon, n.Lat, n.Lon)
			if d < bestDist || d == bestDist && n.ID < best.ID {
				best, bestDist = n, d
			}
		}
		return best, bestDist, nil
	}
	return datastructure.RawNode{}, 0, ErrNoNodeNearby
}

func (s *Store) queryNodes(ctx context.Context, query string, args ...any) ([]datastructure.RawNode, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	nodes := make([]datastructure.RawNode, 0)
	for rows.Next() {
		var n datastructure.RawNode
		var ref sql.NullString
		if err := rows.Scan(&n.ID, &n.Lat, &n.Lon, &ref); err != nil {
			return nil, err
		}
		n.JunctionRef = ref.String
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// NodeCoords coordinates of the given ids, fetched batchSize at a time. Unknown ids are absent from the map.
func (s *Store) NodeCoords(ctx context.Context, ids []int64) (map[int64]datastructure.Coordinate, error) {
	coords := make(map[int64]datastructure.Coordinate, len(ids))
	unique := dedupe(ids)
	for start := 0; start < len(unique); start += batchSize {
		end := min(start+batchSize, len(unique))
		chunk := unique[start:end]
		query := "SELECT id, lat, lon, rcn_ref FROM nodes WHERE id IN (" + placeholders(len(chunk)) + ")"
		nodes, err := s.queryNodes(ctx, query, int64Args(chunk)...)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			coords[n.ID] = datastructure.NewCoordinate(n.Lat, n.Lon)
		}
	}
	return coords, nil
}

// Subgraph raw network of nodes inside a box of radiusM around (lat, lon), with the edges between them.
func (s *Store) Subgraph(ctx context.Context, lat, lon, radiusM float64) (*network.RawNetwork, error) {
	deltaLat := radiusM / metersPerDegree
	deltaLon := radiusM / (metersPerDegree * math.Max(0.1, math.Cos(lat*math.Pi/180.0)))

	nodes, err := s.queryNodes(ctx, `SELECT n.id, n.lat, n.lon, n.rcn_ref FROM nodes_rtree r JOIN nodes n ON n.id = r.id
		WHERE r.min_lat >= ? AND r.max_lat <= ? AND r.min_lon >= ? AND r.max_lon <= ? ORDER BY n.id`,
		lat-deltaLat, lat+deltaLat, lon-deltaLon, lon+deltaLon)
	if err != nil {
		return nil, err
	}

	g := network.NewRawNetwork()
	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		g.AddNode(n)
		ids = append(ids, n.ID)
	}

	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		chunk := ids[start:end]
		rows, err := s.db.QueryContext(ctx,
			"SELECT source_id, target_id, length, bearing FROM edges WHERE source_id IN ("+placeholders(len(chunk))+") ORDER BY rowid",
			int64Args(chunk)...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var e datastructure.RawEdge
			if err := rows.Scan(&e.From, &e.To, &e.Length, &e.Bearing); err != nil {
				rows.Close()
				return nil, err
			}
			// edges leaving the box are dropped
			g.AddEdge(e)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return g, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
