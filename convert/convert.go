// Package convert wires every pipeline stage into one end-to-end run: it
// opens an SVN dump source, drives svndump's record reader into stage1's
// ingest engine revision by revision, hands stage1's branch-rev graph to
// stage2 for commit/tag synthesis, and finally asks packwriter to assemble
// the reachable object closure into a pack plus its refs.
package convert

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/rcowham/svn2git/classifier"
	"github.com/rcowham/svn2git/config"
	"github.com/rcowham/svn2git/dumpsource"
	"github.com/rcowham/svn2git/metamaker"
	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/packwriter"
	"github.com/rcowham/svn2git/progress"
	"github.com/rcowham/svn2git/stage1"
	"github.com/rcowham/svn2git/stage2"
	"github.com/rcowham/svn2git/svndump"
	"github.com/rcowham/svn2git/svntree"
	"github.com/rcowham/svn2git/treebuilder"
	"github.com/rcowham/svn2git/usermap"
	"github.com/sirupsen/logrus"
)

// Default message templates, used whenever the corresponding ConvParams
// field is left blank, matching what the original tool falls back to.
const (
	DefaultUserFallbackTemplate = `{{if .SVNAuthor}}{{.SVNAuthor}}{{else}}no-author{{end}} <{{if .SVNAuthor}}{{.SVNAuthor}}{{else}}no-author{{end}}{{if .SVNUUID}}@{{.SVNUUID}}{{end}}>`
	DefaultCommitMsgTemplate    = "{{if .SVNLog}}{{.SVNLog}}\n\n{{end}}[[SVN revision: {{.SVNRev}}]]{{if .SVNPath}}\n[[SVN path: {{.SVNPath}}]]{{end}}\n"
	DefaultTagMsgTemplate       = "{{if .SVNLog}}{{.SVNLog}}\n\n{{end}}[[SVN revision: {{.SVNRev}}]]\n[[SVN path: {{.SVNPath}}]]\n"
)

const (
	writerWorkers  = 4
	writerMaxQueue = 4096
)

// Options bundles everything one conversion run needs.
type Options struct {
	Cfg           *config.ConvParams
	DumpPath      string // directory (live "svnadmin dump") or dump file
	RemoteURL     string // if set, dump this URL live via "svnrdump" instead of DumpPath
	DestDir       string // bare repository directory to receive the pack/refs
	UserMapPath   string // optional "svn-user = Name <email>" file
	ObjCacheBytes int    // byte budget for objstore's decompressed-body LRU
	GitRepack     bool   // run "git repack -ad" against DestDir afterwards
	Logger        *logrus.Logger
	Sink          progress.Sink
}

// Result is what a completed run produced.
type Result struct {
	PackSha string
	Refs    []packwriter.Ref
	HeadRef string
}

// IngestResult is stage1's output plus everything stage2 needs from the
// dump itself, returned by Ingest for callers (such as cmd/svngraph) that
// only need the branch-rev graph and not a finished pack.
type IngestResult struct {
	SVNUUID        string
	RevProps       func(rev uint32) map[string]string
	BranchRevs     []stage1.BranchRev
	UnbranchedRevs []stage1.UnbranchedRev
}

// ingestState carries the object-store handles Run needs to keep alive
// past Ingest's return, to feed stage2 and the pack finalizer.
type ingestState struct {
	store  *objstore.Store
	writer *objstore.Writer
}

// Run executes one full conversion: dump -> stage1 -> stage2 -> pack.
func Run(opts Options) (Result, error) {
	if opts.Sink == nil {
		opts.Sink = progress.NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	userMapName, userMap, err := loadUserMap(opts.UserMapPath)
	if err != nil {
		return Result{}, err
	}
	opts.Logger.WithField("user_map", userMapName).Debug("user map loaded")

	meta, err := metamaker.New(userMap,
		orDefault(opts.Cfg.UserFallbackTemplate, DefaultUserFallbackTemplate),
		orDefault(opts.Cfg.CommitMsgTemplate, DefaultCommitMsgTemplate),
		orDefault(opts.Cfg.TagMsgTemplate, DefaultTagMsgTemplate))
	if err != nil {
		return Result{}, fmt.Errorf("convert: failed to build metadata templates: %w", err)
	}

	ingested, st, err := ingest(opts)
	if err != nil {
		return Result{}, err
	}

	opts.Sink.Report("synthesizing commits and merges")
	stage2Out, stage2Err := stage2.Run(stage2.Input{
		Cfg:            opts.Cfg,
		SVNUUID:        ingested.SVNUUID,
		RevProps:       ingested.RevProps,
		BranchRevs:     ingested.BranchRevs,
		UnbranchedRevs: ingested.UnbranchedRevs,
	}, meta, st.writer, opts.Sink)

	opts.Sink.Report("finalizing object writes")
	finalStore, err := st.writer.Finish()
	if err != nil {
		st.store.Close()
		return Result{}, fmt.Errorf("convert: failed writing objects: %w", err)
	}
	defer finalStore.Close()

	if stage2Err != nil {
		return Result{}, fmt.Errorf("convert: failed synthesizing commits: %w", stage2Err)
	}

	opts.Sink.Report("writing pack")
	packSha, err := packwriter.Write(opts.DestDir, finalStore, stage2Out.Refs, stage2Out.HeadRef)
	if err != nil {
		return Result{}, fmt.Errorf("convert: failed writing pack: %w", err)
	}

	if opts.GitRepack {
		opts.Sink.Report("repacking")
		if err := runGitRepack(opts.DestDir); err != nil {
			return Result{}, fmt.Errorf("convert: git repack failed: %w", err)
		}
	}

	return Result{PackSha: packSha, Refs: stage2Out.Refs, HeadRef: stage2Out.HeadRef}, nil
}

// Ingest runs only the dump-reading and stage1 projection steps, discarding
// the backing object store once done: it's what callers that only want the
// branch-rev graph (cmd/svngraph) need, without paying for stage2 or a pack.
func Ingest(opts Options) (IngestResult, error) {
	if opts.Sink == nil {
		opts.Sink = progress.NopSink{}
	}
	ingested, st, err := ingest(opts)
	if err != nil {
		return IngestResult{}, err
	}
	if _, err := st.writer.Finish(); err != nil {
		st.store.Close()
		return IngestResult{}, fmt.Errorf("convert: failed writing objects: %w", err)
	}
	st.store.Close()
	return ingested, nil
}

// ingest opens the dump source and object store, drives stage1 to
// completion, and returns its result plus the live store/writer handles
// for the caller to finish with as it sees fit.
func ingest(opts Options) (IngestResult, *ingestState, error) {
	var src *dumpsource.Source
	var err error
	if opts.RemoteURL != "" {
		src, err = dumpsource.OpenRemote(opts.RemoteURL)
		if err != nil {
			return IngestResult{}, nil, fmt.Errorf("convert: failed to open remote dump source %q: %w", opts.RemoteURL, err)
		}
	} else {
		src, err = dumpsource.Open(opts.DumpPath)
		if err != nil {
			return IngestResult{}, nil, fmt.Errorf("convert: failed to open dump source %q: %w", opts.DumpPath, err)
		}
	}
	defer src.Close()

	tmpFile, err := os.CreateTemp("", "svn2git-objstore-*.tmp")
	if err != nil {
		return IngestResult{}, nil, fmt.Errorf("convert: failed to allocate temp object store: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	store, err := objstore.Open(tmpPath, opts.ObjCacheBytes)
	if err != nil {
		return IngestResult{}, nil, fmt.Errorf("convert: failed to open temp object store: %w", err)
	}
	writer := objstore.NewWriter(store, writerWorkers, writerMaxQueue)

	specs := branchSpecs(opts.Cfg)
	treeStore := svntree.WriterStore{W: writer}
	gitStore := treebuilder.WriterStore{W: writer}
	engine, err := stage1.New(opts.Cfg, specs, treeStore, gitStore)
	if err != nil {
		writer.Finish()
		store.Close()
		return IngestResult{}, nil, fmt.Errorf("convert: invalid branch configuration: %w", err)
	}

	svnUUID, revProps, err := driveDump(src, engine, opts.Sink)
	if err != nil {
		writer.Finish()
		store.Close()
		return IngestResult{}, nil, fmt.Errorf("convert: failed reading dump: %w", err)
	}

	return IngestResult{
		SVNUUID:        svnUUID,
		RevProps:       func(rev uint32) map[string]string { return revProps[rev] },
		BranchRevs:     engine.BranchRevs,
		UnbranchedRevs: engine.UnbranchedRevs,
	}, &ingestState{store: store, writer: writer}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func loadUserMap(path string) (string, *usermap.UserMap, error) {
	if path == "" {
		return "(none)", usermap.New(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("convert: failed to open user map %q: %w", path, err)
	}
	defer f.Close()
	um, err := usermap.Parse(f)
	if err != nil {
		return "", nil, fmt.Errorf("convert: failed to parse user map %q: %w", path, err)
	}
	return path, um, nil
}

// branchSpecs turns a ConvParams' head/branches/tags globs into the
// classifier.BranchSpec list stage1 classifies every touched path against.
func branchSpecs(cfg *config.ConvParams) []classifier.BranchSpec {
	specs := []classifier.BranchSpec{{Pattern: cfg.Head, IsTag: false, Key: cfg.Head}}
	for _, p := range cfg.Branches {
		specs = append(specs, classifier.BranchSpec{Pattern: p, IsTag: false, Key: p})
	}
	for _, p := range cfg.Tags {
		specs = append(specs, classifier.BranchSpec{Pattern: p, IsTag: true, Key: p})
	}
	return specs
}

// driveDump reads every record off src, batching node records by revision
// and handing each revision's batch to engine.ProcessRevision in order. It
// returns the dump's UUID record (if any) and every revision's raw
// properties, keyed by revision number, for stage2's RevProps lookups.
func driveDump(src *dumpsource.Source, engine *stage1.Engine, sink progress.Sink) (string, map[uint32]map[string]string, error) {
	reader, err := svndump.NewReader(src.Stream())
	if err != nil {
		return "", nil, err
	}

	revProps := make(map[uint32]map[string]string)
	var svnUUID string
	var curRev uint32
	var curNodes []stage1.NodeInput
	haveRev := false
	havePrevRev := false
	var prevRev uint32

	flush := func() error {
		if !haveRev {
			return nil
		}
		sink.Report(fmt.Sprintf("revision %d", curRev))
		if _, err := engine.ProcessRevision(curRev, curNodes); err != nil {
			return fmt.Errorf("revision %d: %w", curRev, err)
		}
		curNodes = nil
		return nil
	}

	for {
		rec, err := reader.Next()
		if err != nil {
			return svnUUID, revProps, err
		}
		if rec == nil {
			break
		}

		switch {
		case rec.UUID != "":
			svnUUID = rec.UUID

		case rec.Rev != nil:
			if err := flush(); err != nil {
				return svnUUID, revProps, err
			}
			if havePrevRev && rec.Rev.RevNo <= prevRev {
				return svnUUID, revProps, fmt.Errorf("non monotonic increasing SVN revision numbers: %d after %d", rec.Rev.RevNo, prevRev)
			}
			curRev = rec.Rev.RevNo
			revProps[curRev] = rec.Rev.Properties
			haveRev = true
			prevRev, havePrevRev = curRev, true

		case rec.Node != nil:
			var text []byte
			if rec.Node.HasText {
				text = make([]byte, reader.RemainingTextLen())
				if err := reader.ReadText(text); err != nil {
					return svnUUID, revProps, err
				}
			}
			if err := reader.SkipText(); err != nil {
				return svnUUID, revProps, err
			}
			curNodes = append(curNodes, stage1.NodeInput{Record: rec.Node, Text: text})
		}
	}

	if err := flush(); err != nil {
		return svnUUID, revProps, err
	}
	return svnUUID, revProps, nil
}

func runGitRepack(repoDir string) error {
	cmd := exec.Command("git", "-C", repoDir, "repack", "-ad")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
