package contractor

import (
	"runtime"
	"sort"
	"time"

	"lintang/knooppuntx/pkg/concurrent"
	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/geo"
	"lintang/knooppuntx/pkg/network"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

const DefaultCutoffM = 15000.0

type Condenser struct {
	cutoffM      float64
	workers      int
	showProgress bool
	log          *zap.Logger
}

type CondenserOption func(*Condenser)

func WithCutoff(meters float64) CondenserOption {
	return func(c *Condenser) {
		if meters > 0 {
			c.cutoffM = meters
		}
	}
}

func WithWorkers(n int) CondenserOption {
	return func(c *Condenser) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithProgress(show bool) CondenserOption {
	return func(c *Condenser) {
		c.showProgress = show
	}
}

func NewCondenser(log *zap.Logger, opts ...CondenserOption) *Condenser {
	c := &Condenser{
		cutoffM: DefaultCutoffM,
		workers: runtime.NumCPU(),
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

type sourceLinks struct {
	src   int64
	links []junctionLink
}

/*
Condense builds the junction graph of raw. Every junction becomes a node, isolated ones included.
Searches run on the worker pool; results are merged in ascending source id so the output
does not depend on scheduling.
*/
func (c *Condenser) Condense(raw *network.RawNetwork) *CondensedGraph {
	st := time.Now()
	junctions := raw.Junctions()

	g := NewCondensedGraph()
	for _, id := range junctions {
		n, _ := raw.Node(id)
		g.addNode(datastructure.Knooppunt{ID: n.ID, Lat: n.Lat, Lon: n.Lon, Ref: n.JunctionRef})
	}

	var bar *progressbar.ProgressBar
	if c.showProgress {
		bar = progressbar.NewOptions(len(junctions),
			progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(15),
			progressbar.OptionSetDescription("[cyan][3/5][reset] condensing knooppunt graph..."),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	workers := concurrent.NewWorkerPool[int64, sourceLinks](c.workers, len(junctions))
	for _, id := range junctions {
		workers.AddJob(id)
	}
	workers.Close()
	workers.Start(func(src int64) sourceLinks {
		return sourceLinks{src: src, links: junctionSearch(raw, src, c.cutoffM)}
	})
	// results are drained while the workers run so the bar follows the search
	go workers.Wait()

	results := make([]sourceLinks, 0, len(junctions))
	for res := range workers.CollectResults() {
		results = append(results, res)
		if bar != nil {
			bar.Add(1)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].src < results[j].src })

	for _, res := range results {
		from, _ := g.GetNode(res.src)
		for _, link := range res.links {
			to, ok := g.GetNode(link.to)
			if !ok {
				continue
			}
			g.addEdge(datastructure.CondensedEdge{
				From:     res.src,
				To:       link.to,
				Length:   link.length,
				Bearing:  geo.BearingTo(from.Lat, from.Lon, to.Lat, to.Lon),
				FullPath: link.path,
				Segments: link.segments,
			})
		}
	}

	g.Metadata.RawNodes = raw.NumNodes()
	g.Metadata.RawEdges = raw.NumEdges()
	g.Metadata.CutoffM = c.cutoffM
	g.Metadata.BuildTimestamp = time.Now().UTC()
	g.Metadata.BuildSeconds = time.Since(st).Seconds()
	g.finalize()

	c.log.Sugar().Infof("condensed %d raw nodes / %d raw edges into %d knooppunten / %d edges in %.2fs",
		raw.NumNodes(), raw.NumEdges(), g.GetNumNodes(), g.GetNumEdges(), g.Metadata.BuildSeconds)
	return g
}
