package main

// svngraph reads an SVN dump the same way svn2git does, but stops after
// stage1: instead of synthesizing commits and a pack, it renders the
// resulting branch-rev graph (one node per kept BranchRev, edges for
// parents and merges) as a Graphviz dot file.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emicklei/dot"
	"github.com/goccy/go-graphviz"
	"github.com/rcowham/svn2git/config"
	"github.com/rcowham/svn2git/convert"
	"github.com/rcowham/svn2git/internal/version"
	"github.com/rcowham/svn2git/stage1"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

type graphOptions struct {
	maxRevs  int
	firstRev int
	lastRev  int
	squash   bool
}

// branchNode is one BranchRev decorated with its graph node, once created.
type branchNode struct {
	rev        *stage1.BranchRev
	label      string
	childCount int
	hasNode    bool
	gNode      dot.Node
}

func nodeLabel(branch string, rev uint32, isTag bool) string {
	kind := "branch"
	if isTag {
		kind = "tag"
	}
	return fmt.Sprintf("r%d: %s %s", rev, kind, branch)
}

func buildGraph(ingested convert.IngestResult, opts graphOptions) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)

	nodes := make([]*branchNode, len(ingested.BranchRevs))
	for i := range ingested.BranchRevs {
		br := &ingested.BranchRevs[i]
		nodes[i] = &branchNode{rev: br, label: nodeLabel(br.Branch, br.Rev, br.IsTag)}
	}
	for _, n := range nodes {
		if n.rev.Parent >= 0 {
			nodes[n.rev.Parent].childCount++
		}
	}

	lastKept := make(map[string]int) // branch name -> index of last-kept node
	skipCount := make(map[string]int)

	included := func(rev uint32) bool {
		if opts.firstRev != 0 && int(rev) < opts.firstRev {
			return false
		}
		if opts.lastRev != 0 && int(rev) > opts.lastRev {
			return false
		}
		return true
	}

	for i, n := range nodes {
		if opts.maxRevs != 0 && i >= opts.maxRevs {
			break
		}
		if !included(n.rev.Rev) {
			continue
		}
		parentIdx := n.rev.Parent
		sameBranch := parentIdx >= 0 && nodes[parentIdx].rev.Branch == n.rev.Branch
		keep := !opts.squash ||
			!sameBranch ||
			len(n.rev.AddedMerges) > 0 ||
			n.childCount != 1 ||
			i == 0 ||
			i == len(nodes)-1
		if !keep {
			skipCount[n.rev.Branch]++
			continue
		}

		n.gNode = graph.Node(n.label)
		n.hasNode = true

		if parentIdx >= 0 {
			parent := nodes[parentIdx]
			label := "p"
			if sameBranch {
				if skip := skipCount[n.rev.Branch]; skip > 0 {
					label = fmt.Sprintf("p%d", skip)
				}
			}
			if last, ok := lastKept[n.rev.Branch]; ok && sameBranch {
				parent = nodes[last]
			}
			if !parent.hasNode {
				parent.gNode = graph.Node(parent.label)
				parent.hasNode = true
			}
			graph.Edge(parent.gNode, n.gNode, label)
		}
		for _, mergeIdx := range n.rev.AddedMerges {
			merged := nodes[mergeIdx]
			if !merged.hasNode {
				merged.gNode = graph.Node(merged.label)
				merged.hasNode = true
			}
			graph.Edge(merged.gNode, n.gNode, "m")
		}

		lastKept[n.rev.Branch] = i
		skipCount[n.rev.Branch] = 0
	}
	return graph
}

func main() {
	var (
		src = kingpin.Flag(
			"src",
			"SVN dump file (optionally compressed), or a repository directory to dump live via svnadmin.",
		).Required().String()
		convParamsFile = kingpin.Flag(
			"conv-params",
			"TOML conversion parameters file (branches, tags, renames, ...).",
		).String()
		outputGraph = kingpin.Flag(
			"output",
			"Graphviz dot file to write the branch-rev graph to.",
		).Short('o').Required().String()
		maxRevs = kingpin.Flag(
			"max.revs",
			"Max no of branch revisions to process (default 0 means all).",
		).Default("0").Short('m').Int()
		firstRev = kingpin.Flag(
			"first.rev",
			"Lowest SVN revision to include in the graph (default 0 means all).",
		).Default("0").Short('f').Int()
		lastRev = kingpin.Flag(
			"last.rev",
			"Highest SVN revision to include in the graph (default 0 means all).",
		).Default("0").Short('l').Int()
		squash = kingpin.Flag(
			"squash",
			"Squash commits (leaving branches/merges only).",
		).Short('s').Bool()
		renderImage = kingpin.Flag(
			"render",
			"Also render the graph to this image file (format taken from its extension, e.g. .png, .svg).",
		).String()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Default("0").Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("svngraph")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Reads an SVN dump and writes a Graphviz DOT file of its branch-rev graph.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug > 0 {
		logger.Level = logrus.DebugLevel
	}

	var cfg *config.ConvParams
	var err error
	if *convParamsFile != "" {
		cfg, err = config.LoadFile(*convParamsFile)
	} else {
		cfg, err = config.Unmarshal(nil)
	}
	if err != nil {
		logger.Errorf("error loading conversion parameters: %v", err)
		os.Exit(2)
	}

	startTime := time.Now()
	logger.Infof("%s", version.Print("svngraph"))
	logger.Infof("starting %s, src=%s", startTime.Format(time.RFC3339), *src)

	ingested, err := convert.Ingest(convert.Options{Cfg: cfg, DumpPath: *src, Logger: logger})
	if err != nil {
		logger.Errorf("failed to ingest dump: %v", err)
		os.Exit(1)
	}
	logger.Infof("ingested %d branch revisions, %d unbranched revisions",
		len(ingested.BranchRevs), len(ingested.UnbranchedRevs))

	graph := buildGraph(ingested, graphOptions{
		maxRevs: *maxRevs, firstRev: *firstRev, lastRev: *lastRev, squash: *squash,
	})

	f, err := os.OpenFile(*outputGraph, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		logger.Errorf("failed to open %q: %v", *outputGraph, err)
		os.Exit(1)
	}
	defer f.Close()
	dotBytes := []byte(graph.String())
	if _, err := f.Write(dotBytes); err != nil {
		logger.Errorf("failed writing %q: %v", *outputGraph, err)
		os.Exit(1)
	}

	if *renderImage != "" {
		if err := renderToFile(dotBytes, *renderImage); err != nil {
			logger.Errorf("failed rendering %q: %v", *renderImage, err)
			os.Exit(1)
		}
	}

	logger.Infof("wrote %s in %s", *outputGraph, time.Since(startTime))
}

// renderToFile rasterizes dot-format bytes into outPath, choosing a
// render format from its file extension (defaulting to PNG).
func renderToFile(dotBytes []byte, outPath string) error {
	format := graphviz.PNG
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".svg":
		format = graphviz.SVG
	case ".jpg", ".jpeg":
		format = graphviz.JPG
	}

	gv := graphviz.New()
	defer gv.Close()

	graph, err := graphviz.ParseBytes(dotBytes)
	if err != nil {
		return fmt.Errorf("parsing graph: %w", err)
	}
	defer graph.Close()

	return gv.RenderFilename(graph, format, outPath)
}
