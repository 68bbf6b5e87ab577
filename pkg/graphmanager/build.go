package graphmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"lintang/knooppuntx/pkg/contractor"
	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/network"
	"lintang/knooppuntx/pkg/repair"
	"lintang/knooppuntx/pkg/sqlite"
	"lintang/knooppuntx/pkg/util"

	"go.uber.org/zap"
)

/*
Build runs the offline pipeline into dataDir: relations are repaired and their bridges added to raw as
synthetic segments, the junction graph is condensed, then network.db, the condensed graph artifact
and metadata.json are written. Every file is written atomically so a running server never sees a
half-written one.
*/
func Build(ctx context.Context, dataDir string, raw *network.RawNetwork, relations []datastructure.Relation,
	healer *repair.Healer, condenser *contractor.Condenser, log *zap.Logger) (*contractor.CondensedGraph, error) {
	if log == nil {
		log = zap.NewNop()
	}

	results, stats := healer.HealAll(relations, raw)
	bridges := 0
	for _, res := range results {
		if res.Status != repair.StatusHealed {
			continue
		}
		for _, b := range res.Bridges {
			if raw.AddSegment(b.From, b.To) {
				bridges++
			}
		}
	}
	for reason, n := range stats.Reasons {
		log.Debug("broken relations", zap.String("reason", reason), zap.Int("count", n))
	}
	log.Sugar().Infof("added %d bridge segments from healed relations", bridges)

	g := condenser.Condense(raw)
	g.Metadata.Repair = contractor.RepairMetadata{
		Total:   stats.Total,
		Success: stats.Success,
		Healed:  stats.Healed,
		Broken:  stats.Broken,
		NoData:  stats.NoData,
	}

	meta := map[string]string{
		"knooppunten":       strconv.Itoa(g.Metadata.Knooppunten),
		"knooppunt_edges":   strconv.Itoa(g.Metadata.KnooppuntEdges),
		"relations_total":   strconv.Itoa(stats.Total),
		"relations_healed":  strconv.Itoa(stats.Healed),
		"relations_broken":  strconv.Itoa(stats.Broken),
		"bridge_segments":   strconv.Itoa(bridges),
		"gap_threshold_m":   strconv.FormatFloat(healer.GapThreshold(), 'f', 1, 64),
		"build_timestamp":   g.Metadata.BuildTimestamp.Format("2006-01-02T15:04:05Z"),
		"condense_cutoff_m": strconv.FormatFloat(g.Metadata.CutoffM, 'f', 1, 64),
	}
	if err := sqlite.WriteNetwork(ctx, filepath.Join(dataDir, DatabaseFile), raw, meta, log); err != nil {
		return nil, fmt.Errorf("write network database: %w", err)
	}
	if err := g.SaveToFile(filepath.Join(dataDir, ArtifactFile)); err != nil {
		return nil, fmt.Errorf("write condensed graph: %w", err)
	}

	metaJSON, err := json.MarshalIndent(g.Metadata, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := util.WriteFileAtomic(filepath.Join(dataDir, MetadataFile), metaJSON); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}
	log.Info("preprocessing finished",
		zap.String("data_dir", dataDir),
		zap.Int("knooppunten", g.Metadata.Knooppunten),
		zap.Int("edges", g.Metadata.KnooppuntEdges),
		zap.Float64("mean_degree", g.Metadata.MeanDegree))
	return g, nil
}
