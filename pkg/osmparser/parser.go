package osmparser

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/network"

	"github.com/k0kubun/go-ansi"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// ValidNetwork route relations whose member ways form the junction network.
var ValidNetwork = map[string]bool{
	"rcn": true,
	"lcn": true,
}

var junctionRefTags = []string{"rcn_ref", "lcn_ref"}

type Result struct {
	Network   *network.RawNetwork
	Relations []datastructure.Relation
}

type OsmParser struct {
	log          *zap.Logger
	showProgress bool

	relations  []*osm.Relation
	memberWays map[osm.WayID]bool
	wayNodes   map[osm.WayID][]int64
	wayOrder   []osm.WayID
	usedNodes  map[int64]bool
	nodes      map[int64]datastructure.RawNode
}

func NewOsmParser(log *zap.Logger, showProgress bool) *OsmParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &OsmParser{
		log:          log,
		showProgress: showProgress,
		memberWays:   make(map[osm.WayID]bool),
		wayNodes:     make(map[osm.WayID][]int64),
		usedNodes:    make(map[int64]bool),
		nodes:        make(map[int64]datastructure.RawNode),
	}
}

/*
Parse reads a .osm.pbf in three passes: route relations first (to learn which ways belong to the
network), then the member ways, then the nodes those ways reference.
*/
func (p *OsmParser) Parse(ctx context.Context, f io.ReadSeeker) (*Result, error) {
	bar := p.newBar("[cyan][1/3][reset] scanning cycle network relations ...")
	if err := p.scan(ctx, f, bar, func(s *osmpbf.Scanner) {
		s.SkipNodes = true
		s.SkipWays = true
	}); err != nil {
		return nil, err
	}

	bar = p.newBar("[cyan][2/3][reset] scanning member ways ...")
	if err := p.scan(ctx, f, bar, func(s *osmpbf.Scanner) {
		s.SkipNodes = true
		s.SkipRelations = true
	}); err != nil {
		return nil, err
	}

	bar = p.newBar("[cyan][3/3][reset] scanning way nodes ...")
	if err := p.scan(ctx, f, bar, func(s *osmpbf.Scanner) {
		s.SkipWays = true
		s.SkipRelations = true
	}); err != nil {
		return nil, err
	}
	fmt.Println("")

	return p.Build(), nil
}

func (p *OsmParser) scan(ctx context.Context, f io.ReadSeeker, bar *progressbar.ProgressBar,
	configure func(*osmpbf.Scanner)) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek osm file: %w", err)
	}
	scanner := osmpbf.New(ctx, f, 3)
	defer scanner.Close()
	configure(scanner)

	count := 0
	for scanner.Scan() {
		p.HandleObject(scanner.Object())
		count++
		if bar != nil && count%50000 == 0 {
			bar.Add(50000)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan osm file: %w", err)
	}
	return nil
}

// HandleObject feeds a single osm object. Relations must arrive before ways, ways before nodes,
// which is the order of a sorted pbf.
func (p *OsmParser) HandleObject(o osm.Object) {
	switch obj := o.(type) {
	case *osm.Relation:
		p.handleRelation(obj)
	case *osm.Way:
		p.handleWay(obj)
	case *osm.Node:
		p.handleNode(obj)
	}
}

func (p *OsmParser) handleRelation(r *osm.Relation) {
	tags := r.TagMap()
	if !ValidNetwork[tags["network"]] {
		return
	}
	p.relations = append(p.relations, r)
	for _, m := range r.Members {
		if m.Type == osm.TypeWay {
			p.memberWays[osm.WayID(m.Ref)] = true
		}
	}
}

func (p *OsmParser) handleWay(w *osm.Way) {
	tags := w.TagMap()
	if !p.memberWays[w.ID] && tags["rcn"] != "yes" && tags["lcn"] != "yes" {
		return
	}
	ids := make([]int64, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		ids = append(ids, int64(n.ID))
		p.usedNodes[int64(n.ID)] = true
	}
	if _, ok := p.wayNodes[w.ID]; !ok {
		p.wayOrder = append(p.wayOrder, w.ID)
	}
	p.wayNodes[w.ID] = ids
}

func (p *OsmParser) handleNode(n *osm.Node) {
	id := int64(n.ID)
	if !p.usedNodes[id] {
		return
	}
	ref := ""
	for _, key := range junctionRefTags {
		if v := strings.TrimSpace(n.Tags.Find(key)); v != "" {
			ref = v
			break
		}
	}
	p.nodes[id] = datastructure.RawNode{ID: id, Lat: n.Lat, Lon: n.Lon, JunctionRef: ref}
}

// Build assembles the raw network and the relation records from everything handled so far.
func (p *OsmParser) Build() *Result {
	raw := network.NewRawNetwork()
	ids := make([]int64, 0, len(p.nodes))
	for id := range p.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		raw.AddNode(p.nodes[id])
	}

	segments := 0
	for _, wid := range p.wayOrder {
		segments += raw.AddWay(p.wayNodes[wid])
	}

	relations := make([]datastructure.Relation, 0, len(p.relations))
	for _, r := range p.relations {
		relations = append(relations, p.relation(r))
	}

	p.log.Info("osm network parsed",
		zap.Int("nodes", raw.NumNodes()),
		zap.Int("junctions", len(raw.Junctions())),
		zap.Int("ways", len(p.wayOrder)),
		zap.Int("segments", segments),
		zap.Int("relations", len(relations)))
	return &Result{Network: raw, Relations: relations}
}

// relation resolves the "a-b" ref to the junction node ids found on the member ways.
func (p *OsmParser) relation(r *osm.Relation) datastructure.Relation {
	rel := datastructure.Relation{ID: int64(r.ID)}
	if fromRef, toRef, ok := strings.Cut(r.Tags.Find("ref"), "-"); ok {
		rel.FromRef = strings.TrimSpace(fromRef)
		rel.ToRef = strings.TrimSpace(toRef)
	}

	for _, m := range r.Members {
		if m.Type != osm.TypeWay {
			continue
		}
		nodes, ok := p.wayNodes[osm.WayID(m.Ref)]
		if !ok {
			continue
		}
		rel.Ways = append(rel.Ways, nodes)
		for _, id := range nodes {
			n, ok := p.nodes[id]
			if !ok || n.JunctionRef == "" {
				continue
			}
			if rel.FromNodeID == 0 && rel.FromRef != "" && n.JunctionRef == rel.FromRef {
				rel.FromNodeID = id
			} else if rel.ToNodeID == 0 && rel.ToRef != "" && n.JunctionRef == rel.ToRef && id != rel.FromNodeID {
				rel.ToNodeID = id
			}
		}
	}
	return rel
}

func (p *OsmParser) newBar(desc string) *progressbar.ProgressBar {
	if !p.showProgress {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
