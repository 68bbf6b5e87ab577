package service

import (
	"context"
	"errors"
	"math"
	"time"

	"lintang/knooppuntx/pkg/contractor"
	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/engine/loopsearch"
	"lintang/knooppuntx/pkg/geo"
	"lintang/knooppuntx/pkg/geocoding"
	"lintang/knooppuntx/pkg/network"
	"lintang/knooppuntx/pkg/server"
	"lintang/knooppuntx/pkg/sqlite"
	"lintang/knooppuntx/pkg/util"
	"lintang/knooppuntx/pkg/weather"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultApproachRadiusM = 5000.0
	minSearchRadiusM       = 5000.0
	searchRadiusFactor     = 0.6
	// loops shorter than this are not worth searching once the approach is taken off
	minLoopTargetM = 2000.0
)

type GraphProvider interface {
	RegionGraph(ctx context.Context, lat, lon, radiusM float64) (*contractor.CondensedGraph, string, *network.RawNetwork, error)
	NearestJunction(ctx context.Context, lat, lon float64) (datastructure.Knooppunt, float64, error)
}

type NetworkStore interface {
	NearestNode(ctx context.Context, lat, lon float64) (datastructure.RawNode, float64, error)
	NodeCoords(ctx context.Context, ids []int64) (map[int64]datastructure.Coordinate, error)
	Subgraph(ctx context.Context, lat, lon, radiusM float64) (*network.RawNetwork, error)
}

type LoopFinder interface {
	FindLoops(ctx context.Context, g loopsearch.Graph, start int64, p loopsearch.Params) (loopsearch.Result, error)
}

type RoutingAlgorithm interface {
	AStar(g *network.RawNetwork, from, to int64) ([]int64, float64, bool)
}

// SearchObserver receives per-request search statistics, e.g. for metrics.
type SearchObserver interface {
	ObserveSearch(source string, iterations, candidates int, timedOut bool, seconds float64)
}

type LoopRequest struct {
	StartAddress string
	StartLat     *float64
	StartLon     *float64
	DistanceKm   float64
	Tolerance    float64
	PlannedAt    *time.Time
	Debug        bool
}

type Config struct {
	TimeBudget      time.Duration
	MaxCandidates   int
	ApproachRadiusM float64
}

type LoopService struct {
	graphs   GraphProvider
	store    NetworkStore
	geocoder geocoding.Geocoder
	wind     weather.Provider
	finder   LoopFinder
	routing  RoutingAlgorithm
	observer SearchObserver
	cfg      Config
	log      *zap.Logger
}

func NewLoopService(graphs GraphProvider, store NetworkStore, geocoder geocoding.Geocoder, wind weather.Provider,
	finder LoopFinder, routing RoutingAlgorithm, observer SearchObserver, cfg Config, log *zap.Logger) *LoopService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ApproachRadiusM <= 0 {
		cfg.ApproachRadiusM = DefaultApproachRadiusM
	}
	return &LoopService{graphs: graphs, store: store, geocoder: geocoder, wind: wind, finder: finder,
		routing: routing, observer: observer, cfg: cfg, log: log}
}

type approach struct {
	path []int64 // start raw node ... start junction
	dist float64
}

/*
PlanLoop resolves the start point and wind, finds the nearest junction and the approach path to it,
searches loops of (target - 2*approach) through that junction on the surrounding junction graph and
returns the lowest-scoring one expanded to full geometry.
*/
func (uc *LoopService) PlanLoop(ctx context.Context, req LoopRequest) (*datastructure.RouteResult, error) {
	tStart := time.Now()
	timings := make(map[string]float64)
	step := tStart
	lap := func(name string) {
		now := time.Now()
		timings[name] = util.RoundFloat(now.Sub(step).Seconds(), 4)
		step = now
	}

	if req.DistanceKm <= 0 {
		return nil, server.WrapErrorf(nil, server.ErrBadParamInput, "distance must be positive")
	}
	if req.Tolerance <= 0 {
		req.Tolerance = loopsearch.DefaultTolerance
	}

	start, err := uc.resolveStart(ctx, req)
	if err != nil {
		return nil, err
	}
	wind, err := uc.resolveWind(ctx, start, req.PlannedAt)
	if err != nil {
		return nil, err
	}
	lap("geocoding_and_weather")

	targetM := req.DistanceKm * 1000.0
	radiusM := math.Max(targetM*searchRadiusFactor, minSearchRadiusM)

	startJunction, _, err := uc.graphs.NearestJunction(ctx, start.Lat, start.Lon)
	if err != nil {
		if errors.Is(err, sqlite.ErrNoNodeNearby) {
			return nil, server.WrapErrorf(err, server.ErrNoNetworkNearPoint, "no cycling junctions found near this address, try another one")
		}
		return nil, server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
	}

	k, source, raw, err := uc.graphs.RegionGraph(ctx, start.Lat, start.Lon, radiusM)
	if err != nil {
		return nil, server.WrapErrorf(err, server.ErrServiceUnavailable, "routing graph unavailable")
	}
	if k.GetNumNodes() < 3 {
		return nil, server.WrapErrorf(nil, server.ErrTooFewJunctions, "too few junctions near this point, try another address or a longer distance")
	}
	if !k.HasNode(startJunction.ID) {
		near, _, ok := k.NearestJunction(start.Lat, start.Lon)
		if !ok {
			return nil, server.WrapErrorf(nil, server.ErrNoNetworkNearPoint, "no cycling junctions found near this address, try another one")
		}
		startJunction = near
	}

	appr := uc.approachPath(ctx, start, startJunction.ID)
	loopTargetM := targetM - 2*appr.dist
	if loopTargetM < minLoopTargetM {
		return nil, server.WrapErrorf(nil, server.ErrNoLoopFound,
			"the nearest junction is %.1f km away, too far for a %.0f km loop", appr.dist/1000, req.DistanceKm)
	}
	lap("graph_and_approach")

	kw := k.WithWind(wind)
	searchStart := time.Now()
	res, err := uc.finder.FindLoops(ctx, kw, startJunction.ID, loopsearch.Params{
		TargetM:       loopTargetM,
		MaxDepth:      loopsearch.DefaultMaxDepth(targetM),
		Tolerance:     req.Tolerance,
		TimeBudget:    uc.cfg.TimeBudget,
		MaxCandidates: uc.cfg.MaxCandidates,
	})
	if uc.observer != nil {
		uc.observer.ObserveSearch(source, res.Iterations, len(res.Candidates), res.TimedOut, time.Since(searchStart).Seconds())
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, server.WrapErrorf(ctxErr, server.ErrServiceUnavailable, "request cancelled")
		}
		if errors.Is(err, loopsearch.ErrNoLoopFound) || errors.Is(err, loopsearch.ErrUnknownStart) {
			uc.log.Warn("no loop found",
				zap.Int64("start_junction", startJunction.ID), zap.Float64("distance_km", req.DistanceKm))
			return nil, server.WrapErrorf(err, server.ErrNoLoopFound, "could not find a suitable loop, try another distance or start point")
		}
		return nil, server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
	}

	ranked := loopsearch.Rank(res.Candidates, kw, loopTargetM)
	best := ranked[0]
	lap("loop_search")

	loopPath, err := kw.ExpandCycle(best.Nodes)
	if err != nil {
		return nil, server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
	}
	fullRoute := joinApproach(appr.path, loopPath)

	coords, err := uc.store.NodeCoords(ctx, fullRoute)
	if err != nil {
		return nil, server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
	}

	result := uc.assemble(req, start, wind, kw, best, fullRoute, coords)
	result.TargetDistanceM = targetM
	lap("route_finalizing")
	timings["total_duration"] = util.RoundFloat(time.Since(tStart).Seconds(), 4)

	if req.Debug {
		result.Debug = &datastructure.DebugStats{
			Knooppunten:       k.GetNumNodes(),
			KnooppuntEdges:    k.GetNumEdges(),
			CandidateLoops:    len(res.Candidates),
			BestScore:         util.RoundFloat(best.Score, 2),
			ApproachDistanceM: util.RoundFloat(appr.dist, 1),
			GraphSource:       source,
			Iterations:        res.Iterations,
			TimedOut:          res.TimedOut,
			Tolerance:         res.Tolerance,
			Timings:           timings,
		}
		if raw != nil {
			result.Debug.GraphNodes = raw.NumNodes()
			result.Debug.GraphEdges = raw.NumEdges()
		}
	}

	uc.log.Info("loop planned",
		zap.String("route_id", result.RouteID),
		zap.Float64("actual_km", result.ActualDistanceM/1000),
		zap.Int("junctions", len(result.Junctions)),
		zap.String("graph_source", source),
		zap.Float64("seconds", timings["total_duration"]))
	return result, nil
}

func (uc *LoopService) resolveStart(ctx context.Context, req LoopRequest) (datastructure.Coordinate, error) {
	if req.StartLat != nil && req.StartLon != nil {
		return datastructure.NewCoordinate(*req.StartLat, *req.StartLon), nil
	}
	if req.StartAddress == "" {
		return datastructure.Coordinate{}, server.WrapErrorf(nil, server.ErrBadParamInput, "either start_address or start_lat and start_lon is required")
	}
	res, err := uc.geocoder.Geocode(ctx, req.StartAddress)
	if err != nil {
		if errors.Is(err, geocoding.ErrNotFound) {
			return datastructure.Coordinate{}, server.WrapErrorf(err, server.ErrAddressNotGeocodable, "could not geocode address: %s", req.StartAddress)
		}
		return datastructure.Coordinate{}, server.WrapErrorf(err, server.ErrServiceUnavailable, "geocoding service unavailable")
	}
	return res.Coords, nil
}

func (uc *LoopService) resolveWind(ctx context.Context, at datastructure.Coordinate, plannedAt *time.Time) (datastructure.WindSample, error) {
	var (
		wind datastructure.WindSample
		err  error
	)
	if plannedAt != nil {
		wind, err = uc.wind.WindAt(ctx, at.Lat, at.Lon, *plannedAt)
	} else {
		wind, err = uc.wind.WindNow(ctx, at.Lat, at.Lon)
	}
	if err != nil {
		if errors.Is(err, weather.ErrForecastOutOfRange) {
			return wind, server.WrapErrorf(err, server.ErrBadParamInput, "planned time is outside the %d day forecast range", weather.MaxForecastDays)
		}
		return wind, server.WrapErrorf(err, server.ErrServiceUnavailable, "could not fetch wind data")
	}
	return wind, nil
}

// approachPath shortest raw path from the node nearest to start to the start junction. Falls back to
// the junction alone (zero length) when either end is outside the approach subgraph.
func (uc *LoopService) approachPath(ctx context.Context, start datastructure.Coordinate, junction int64) approach {
	none := approach{path: []int64{junction}}
	raw, err := uc.store.Subgraph(ctx, start.Lat, start.Lon, uc.cfg.ApproachRadiusM)
	if err != nil {
		uc.log.Warn("approach subgraph unavailable", zap.Error(err))
		return none
	}
	from, _, err := uc.store.NearestNode(ctx, start.Lat, start.Lon)
	if err != nil || !raw.HasNode(from.ID) {
		return none
	}
	path, dist, found := uc.routing.AStar(raw, from.ID, junction)
	if !found {
		return none
	}
	return approach{path: path, dist: dist}
}

// joinApproach approach[:-1] + loop + reversed approach[1:].
func joinApproach(approachPath, loop []int64) []int64 {
	if len(approachPath) <= 1 {
		return loop
	}
	full := make([]int64, 0, len(loop)+2*len(approachPath))
	full = append(full, approachPath[:len(approachPath)-1]...)
	full = append(full, loop...)
	for i := len(approachPath) - 2; i >= 0; i-- {
		full = append(full, approachPath[i])
	}
	return full
}

func (uc *LoopService) assemble(req LoopRequest, start datastructure.Coordinate, wind datastructure.WindSample,
	k *contractor.CondensedGraph, best datastructure.ScoredCandidate, fullRoute []int64,
	coords map[int64]datastructure.Coordinate) *datastructure.RouteResult {

	line := make([]datastructure.Coordinate, 0, len(fullRoute)+2)
	line = append(line, start)
	actual := 0.0
	var prev *datastructure.Coordinate
	for _, id := range fullRoute {
		c, ok := coords[id]
		if !ok {
			continue
		}
		if prev != nil {
			actual += geo.CalculateHaversineDistance(prev.Lat, prev.Lon, c.Lat, c.Lon)
		}
		line = append(line, c)
		prev = &c
	}
	line = append(line, start)

	junctions := make([]string, 0)
	junctionCoords := make([]datastructure.JunctionCoord, 0)
	seen := make(map[string]bool)
	for _, id := range best.Nodes[:len(best.Nodes)-1] {
		n, ok := k.GetNode(id)
		if !ok || n.Ref == "" || seen[n.Ref] {
			continue
		}
		seen[n.Ref] = true
		junctions = append(junctions, n.Ref)
		junctionCoords = append(junctionCoords, datastructure.JunctionCoord{Ref: n.Ref, Lat: n.Lat, Lon: n.Lon})
	}
	if len(junctions) > 0 {
		junctions = append(junctions, junctions[0])
	}

	message := "SUCCESS: a wind-optimized loop was found."
	if req.PlannedAt != nil {
		message = "SUCCESS: route optimized for the forecast wind at " + req.PlannedAt.Format("02/01/2006 15:04") + "."
	}

	return &datastructure.RouteResult{
		RouteID:         uuid.NewString(),
		StartAddress:    req.StartAddress,
		StartCoordinate: start,
		ActualDistanceM: util.RoundFloat(actual, 1),
		LoopDistanceM:   util.RoundFloat(best.Length, 1),
		Junctions:       junctions,
		JunctionCoords:  junctionCoords,
		Geometry:        [][]datastructure.Coordinate{line},
		Polyline:        datastructure.RenderPath(line),
		Wind:            wind,
		PlannedAt:       req.PlannedAt,
		Message:         message,
	}
}
