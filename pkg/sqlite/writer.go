package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"lintang/knooppuntx/pkg/network"

	"go.uber.org/zap"
)

const schema = `
CREATE TABLE nodes (
	id INTEGER PRIMARY KEY,
	lat REAL NOT NULL,
	lon REAL NOT NULL,
	rcn_ref TEXT
);

CREATE VIRTUAL TABLE nodes_rtree USING rtree(
	id,
	min_lat, max_lat,
	min_lon, max_lon
);

CREATE TABLE edges (
	source_id INTEGER NOT NULL,
	target_id INTEGER NOT NULL,
	length REAL NOT NULL,
	bearing REAL NOT NULL
);

CREATE TABLE build_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const indexes = `
CREATE INDEX idx_edges_source ON edges(source_id);
`

// WriteNetwork writes raw into a fresh database at dbPath. The file is built next to the target
// and renamed over it once complete, so readers never see a partial database.
func WriteNetwork(ctx context.Context, dbPath string, raw *network.RawNetwork, meta map[string]string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(dbPath)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := writeTo(ctx, tmpPath, raw, meta); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dbPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	log.Sugar().Infof("network database written to %s: %d nodes, %d edges", dbPath, raw.NumNodes(), raw.NumEdges())
	return nil
}

func writeTo(ctx context.Context, path string, raw *network.RawNetwork, meta map[string]string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = DELETE",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	nodeStmt, err := tx.PrepareContext(ctx, "INSERT INTO nodes (id, lat, lon, rcn_ref) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	rtreeStmt, err := tx.PrepareContext(ctx, "INSERT INTO nodes_rtree (id, min_lat, max_lat, min_lon, max_lon) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer rtreeStmt.Close()
	edgeStmt, err := tx.PrepareContext(ctx, "INSERT INTO edges (source_id, target_id, length, bearing) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, n := range raw.Nodes() {
		var ref sql.NullString
		if n.IsJunction() {
			ref = sql.NullString{String: n.JunctionRef, Valid: true}
		}
		if _, err := nodeStmt.ExecContext(ctx, n.ID, n.Lat, n.Lon, ref); err != nil {
			return fmt.Errorf("insert node %d: %w", n.ID, err)
		}
		if _, err := rtreeStmt.ExecContext(ctx, n.ID, n.Lat, n.Lat, n.Lon, n.Lon); err != nil {
			return fmt.Errorf("insert rtree %d: %w", n.ID, err)
		}
	}
	for _, e := range raw.Edges() {
		if _, err := edgeStmt.ExecContext(ctx, e.From, e.To, e.Length, e.Bearing); err != nil {
			return fmt.Errorf("insert edge %d-%d: %w", e.From, e.To, err)
		}
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO build_metadata (key, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
