package datastructure

import "time"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

// WindSample Direction is the meteorological "from" direction in degrees, Speed in m/s.
type WindSample struct {
	Speed      float64   `json:"speed"`
	Direction  float64   `json:"direction"`
	ObservedAt time.Time `json:"observed_at"`
	Forecast   bool      `json:"forecast"`
}

// Candidate closed junction sequence, Nodes[0] == Nodes[len-1].
type Candidate struct {
	Nodes  []int64
	Length float64
}

type ScoredCandidate struct {
	Candidate
	Effort float64
	Score  float64
}

type JunctionCoord struct {
	Ref string  `json:"ref"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type DebugStats struct {
	GraphNodes        int                `json:"graph_nodes"`
	GraphEdges        int                `json:"graph_edges"`
	Knooppunten       int                `json:"knooppunten"`
	KnooppuntEdges    int                `json:"knooppunt_edges"`
	CandidateLoops    int                `json:"candidate_loops"`
	BestScore         float64            `json:"best_score"`
	ApproachDistanceM float64            `json:"approach_distance_m"`
	GraphSource       string             `json:"graph_source"`
	Iterations        int                `json:"iterations"`
	TimedOut          bool               `json:"timed_out"`
	Tolerance         float64            `json:"tolerance"`
	Timings           map[string]float64 `json:"timings"`
}

type RouteResult struct {
	RouteID         string          `json:"route_id"`
	StartAddress    string          `json:"start_address,omitempty"`
	StartCoordinate Coordinate      `json:"start_coordinate"`
	TargetDistanceM float64         `json:"target_distance_m"`
	ActualDistanceM float64         `json:"actual_distance_m"`
	LoopDistanceM   float64         `json:"loop_distance_m"`
	Junctions       []string        `json:"junctions"`
	JunctionCoords  []JunctionCoord `json:"junction_coords"`
	Geometry        [][]Coordinate  `json:"geometry"`
	Polyline        string          `json:"polyline"`
	Wind            WindSample      `json:"wind"`
	PlannedAt       *time.Time      `json:"planned_at,omitempty"`
	Message         string          `json:"message"`
	Debug           *DebugStats     `json:"debug,omitempty"`
}
