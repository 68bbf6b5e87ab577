package service

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"lintang/knooppuntx/pkg/contractor"
	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/engine/loopsearch"
	"lintang/knooppuntx/pkg/engine/routingalgorithm"
	"lintang/knooppuntx/pkg/geocoding"
	"lintang/knooppuntx/pkg/graphmanager"
	"lintang/knooppuntx/pkg/network"
	"lintang/knooppuntx/pkg/server"
	"lintang/knooppuntx/pkg/sqlite"
	"lintang/knooppuntx/pkg/weather"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const degLat = 111195.0

func offset(theta, r float64) (float64, float64) {
	return 52.0 + r*math.Cos(theta)/degLat, 5.0 + r*math.Sin(theta)/(degLat*math.Cos(52.0*math.Pi/180))
}

// hexagon of junctions A..F 5 km around (52, 5), one shape node per side, plus node 200 300 m north
// of A connected to it.
func hexagonNetwork() *network.RawNetwork {
	raw := network.NewRawNetwork()
	for i := 0; i < 6; i++ {
		lat, lon := offset(float64(i)*math.Pi/3, 5000)
		raw.AddNode(datastructure.RawNode{ID: int64(i + 1), Lat: lat, Lon: lon, JunctionRef: string(rune('A' + i))})
		lat, lon = offset(float64(i)*math.Pi/3+math.Pi/6, 4400)
		raw.AddNode(datastructure.RawNode{ID: int64(100 + i), Lat: lat, Lon: lon})
	}
	for i := 0; i < 6; i++ {
		raw.AddWay([]int64{int64(i + 1), int64(100 + i), int64((i+1)%6 + 1)})
	}
	lat, lon := offset(0, 5300)
	raw.AddNode(datastructure.RawNode{ID: 200, Lat: lat, Lon: lon})
	raw.AddWay([]int64{200, 1})
	return raw
}

type fakeGeocoder struct {
	results map[string]datastructure.Coordinate
	err     error
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (*geocoding.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.results[address]
	if !ok {
		return nil, geocoding.ErrNotFound
	}
	return &geocoding.Result{Coords: c, DisplayName: address}, nil
}

type fakeWind struct {
	sample datastructure.WindSample
}

func (f *fakeWind) WindNow(ctx context.Context, lat, lon float64) (datastructure.WindSample, error) {
	return f.sample, nil
}

func (f *fakeWind) WindAt(ctx context.Context, lat, lon float64, at time.Time) (datastructure.WindSample, error) {
	if at.Year() > 2100 {
		return datastructure.WindSample{}, weather.ErrForecastOutOfRange
	}
	s := f.sample
	s.Forecast = true
	s.ObservedAt = at
	return s, nil
}

type countingObserver struct {
	calls int
}

func (c *countingObserver) ObserveSearch(source string, iterations, candidates int, timedOut bool, seconds float64) {
	c.calls++
}

func newTestService(t *testing.T, raw *network.RawNetwork, withArtifact bool, geo *fakeGeocoder) (*LoopService, *countingObserver) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, sqlite.WriteNetwork(context.Background(), filepath.Join(dir, graphmanager.DatabaseFile), raw, nil, nil))
	if withArtifact {
		g := contractor.NewCondenser(nil).Condense(raw)
		require.NoError(t, g.SaveToFile(filepath.Join(dir, graphmanager.ArtifactFile)))
	}
	m, err := graphmanager.Open(dir, 2, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	if geo == nil {
		geo = &fakeGeocoder{results: map[string]datastructure.Coordinate{}}
	}
	obs := &countingObserver{}
	svc := NewLoopService(m, m.Store(), geo,
		&fakeWind{sample: datastructure.WindSample{Speed: 6, Direction: 225}},
		loopsearch.NewLoopSearch(nil), routingalgorithm.NewRouteAlgorithm(), obs,
		Config{TimeBudget: 5 * time.Second}, nil)
	return svc, obs
}

func TestPlanLoopFromCoordinates(t *testing.T) {
	svc, obs := newTestService(t, hexagonNetwork(), true, nil)
	lat, lon := offset(0, 5300)

	res, err := svc.PlanLoop(context.Background(), LoopRequest{
		StartLat: &lat, StartLon: &lon, DistanceKm: 30.6, Tolerance: 0.1,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RouteID)
	// either orientation of the hexagon, closed on A
	require.Len(t, res.Junctions, 7)
	assert.Equal(t, "A", res.Junctions[0])
	assert.Equal(t, "A", res.Junctions[6])
	assert.ElementsMatch(t, []string{"A", "B", "C", "D", "E", "F"}, res.Junctions[:6])
	assert.Len(t, res.JunctionCoords, 6)
	assert.InDelta(t, 30600, res.TargetDistanceM, 1e-9)
	assert.InDelta(t, 30000, res.LoopDistanceM, 200)
	// loop plus the 300 m approach both ways
	assert.InDelta(t, 30600, res.ActualDistanceM, 200)
	assert.Nil(t, res.Debug)
	assert.NotEmpty(t, res.Polyline)

	require.Len(t, res.Geometry, 1)
	line := res.Geometry[0]
	assert.Equal(t, datastructure.NewCoordinate(lat, lon), line[0])
	assert.Equal(t, datastructure.NewCoordinate(lat, lon), line[len(line)-1])
	// start point, node 200, A ... A, node 200, start point
	assert.Len(t, line, 2+2+13)
	assert.Equal(t, 1, obs.calls)
}

func TestPlanLoopFromAddressWithDebug(t *testing.T) {
	lat, lon := offset(0, 5000)
	geo := &fakeGeocoder{results: map[string]datastructure.Coordinate{"Markt 1": datastructure.NewCoordinate(lat, lon)}}
	svc, _ := newTestService(t, hexagonNetwork(), false, geo)
	planned := time.Date(2026, 10, 20, 14, 0, 0, 0, time.UTC)

	res, err := svc.PlanLoop(context.Background(), LoopRequest{
		StartAddress: "Markt 1", DistanceKm: 30, PlannedAt: &planned, Debug: true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Debug)
	assert.Equal(t, graphmanager.SourceRawStore, res.Debug.GraphSource)
	assert.Equal(t, 6, res.Debug.Knooppunten)
	assert.Equal(t, 6, res.Debug.KnooppuntEdges)
	assert.Equal(t, 13, res.Debug.GraphNodes)
	assert.GreaterOrEqual(t, res.Debug.CandidateLoops, 1)
	assert.InDelta(t, 0, res.Debug.ApproachDistanceM, 1e-9)
	assert.Contains(t, res.Debug.Timings, "loop_search")
	assert.True(t, res.Wind.Forecast)
	assert.Contains(t, res.Message, "20/10/2026 14:00")
	assert.Equal(t, "Markt 1", res.StartAddress)
}

func TestPlanLoopErrors(t *testing.T) {
	svc, _ := newTestService(t, hexagonNetwork(), true, nil)
	lat, lon := offset(0, 5000)
	farLat, farLon := 10.0, 10.0
	tooFar := time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  LoopRequest
		want error
	}{
		{"no start", LoopRequest{DistanceKm: 30}, server.ErrBadParamInput},
		{"bad distance", LoopRequest{StartLat: &lat, StartLon: &lon}, server.ErrBadParamInput},
		{"unknown address", LoopRequest{StartAddress: "Nergensstraat 1", DistanceKm: 30}, server.ErrAddressNotGeocodable},
		{"forecast out of range", LoopRequest{StartLat: &lat, StartLon: &lon, DistanceKm: 30, PlannedAt: &tooFar}, server.ErrBadParamInput},
		{"off the network", LoopRequest{StartLat: &farLat, StartLon: &farLon, DistanceKm: 30}, server.ErrNoNetworkNearPoint},
		{"no loop of that length", LoopRequest{StartLat: &lat, StartLon: &lon, DistanceKm: 100}, server.ErrNoLoopFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlanLoop(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPlanLoopGeocoderDown(t *testing.T) {
	svc, _ := newTestService(t, hexagonNetwork(), true, &fakeGeocoder{err: geocoding.ErrUnavailable})
	_, err := svc.PlanLoop(context.Background(), LoopRequest{StartAddress: "Markt 1", DistanceKm: 30})
	assert.ErrorIs(t, err, server.ErrServiceUnavailable)
}

func TestPlanLoopTooFewJunctions(t *testing.T) {
	raw := network.NewRawNetwork()
	raw.AddNode(datastructure.RawNode{ID: 1, Lat: 52.0, Lon: 5.0, JunctionRef: "1"})
	raw.AddNode(datastructure.RawNode{ID: 2, Lat: 52.01, Lon: 5.0, JunctionRef: "2"})
	raw.AddWay([]int64{1, 2})
	svc, _ := newTestService(t, raw, false, nil)

	lat, lon := 52.0, 5.0
	_, err := svc.PlanLoop(context.Background(), LoopRequest{StartLat: &lat, StartLon: &lon, DistanceKm: 10})
	assert.ErrorIs(t, err, server.ErrTooFewJunctions)
}

type recordingFinder struct {
	inner  LoopFinder
	params loopsearch.Params
}

func (f *recordingFinder) FindLoops(ctx context.Context, g loopsearch.Graph, start int64, p loopsearch.Params) (loopsearch.Result, error) {
	f.params = p
	return f.inner.FindLoops(ctx, g, start, p)
}

func TestPlanLoopDepthFollowsRequestedDistance(t *testing.T) {
	svc, _ := newTestService(t, hexagonNetwork(), true, nil)
	rec := &recordingFinder{inner: svc.finder}
	svc.finder = rec
	lat, lon := offset(0, 5300)

	_, err := svc.PlanLoop(context.Background(), LoopRequest{StartLat: &lat, StartLon: &lon, DistanceKm: 100})
	assert.ErrorIs(t, err, server.ErrNoLoopFound)

	// 100 km gives depth 33; the 99.4 km left after the approach would give 32
	assert.InDelta(t, 99400, rec.params.TargetM, 50)
	assert.Equal(t, loopsearch.DefaultMaxDepth(100000), rec.params.MaxDepth)
	assert.Equal(t, 33, rec.params.MaxDepth)
}

func TestJoinApproach(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3, 1}, joinApproach([]int64{1}, []int64{1, 2, 3, 1}))
	assert.Equal(t, []int64{9, 8, 1, 2, 3, 1, 8, 9}, joinApproach([]int64{9, 8, 1}, []int64{1, 2, 3, 1}))
}
