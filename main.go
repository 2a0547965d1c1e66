package main

// svn2git converts an SVN repository (a dump file, a compressed dump file,
// a live repository directory dumped on the fly via "svnadmin dump", or a
// remote repository dumped via "svnrdump") into a bare Git repository: a
// single pack file plus the refs a clone needs, with no working copy ever
// materialized.
//
// Design:
// main() parses flags, loads the TOML conversion-parameters file, builds a
// logger and progress sink, then calls convert.Run to drive the whole
// pipeline: dumpsource -> svndump -> stage1 -> stage2 -> packwriter.

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/rcowham/svn2git/config"
	"github.com/rcowham/svn2git/convert"
	"github.com/rcowham/svn2git/internal/version"
	"github.com/rcowham/svn2git/progress"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

func main() {
	var (
		src = kingpin.Flag(
			"src",
			"SVN dump file (optionally gzip/bzip2/xz/zstd/lz4 compressed), or a repository directory to dump live via svnadmin. Ignored if --remote-svn is set.",
		).String()
		remoteSVN = kingpin.Flag(
			"remote-svn",
			"URL of a remote SVN repository to dump live via svnrdump, instead of --src.",
		).String()
		dest = kingpin.Flag(
			"dest",
			"Destination bare Git repository directory to receive the pack and refs.",
		).Required().String()
		convParamsFile = kingpin.Flag(
			"conv-params",
			"TOML conversion parameters file (branches, tags, renames, merge options, ...).",
		).String()
		userMapFile = kingpin.Flag(
			"user-map",
			"User map file translating SVN usernames to Git author identities.",
		).String()
		objCacheSize = kingpin.Flag(
			"obj-cache-size",
			"Byte budget for the object store's decompressed-body cache.",
		).Default("268435456").Int()
		gitRepack = kingpin.Flag(
			"git-repack",
			"Run 'git repack -ad' against dest once the pack is written.",
		).Bool()
		stderrLogLevel = kingpin.Flag(
			"stderr-log-level",
			"Log level for stderr output (trace, debug, info, warn, error).",
		).Default("info").String()
		logFile = kingpin.Flag(
			"log-file",
			"Additional log file to write to, alongside stderr.",
		).String()
		fileLogLevel = kingpin.Flag(
			"file-log-level",
			"Log level for --log-file output.",
		).Default("debug").String()
		noProgress = kingpin.Flag(
			"no-progress",
			"Disable the terminal progress spinner.",
		).Bool()
		debug = kingpin.Flag(
			"debug",
			"Shorthand for --stderr-log-level=debug.",
		).Bool()
		cpuProfile = kingpin.Flag(
			"cpuprofile",
			"Write a CPU profile to this directory.",
		).String()
		memProfile = kingpin.Flag(
			"memprofile",
			"Write a memory profile to this directory.",
		).String()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("svn2git")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Converts an SVN repository dump into a bare Git repository.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	if *src == "" && *remoteSVN == "" {
		fmt.Fprintln(os.Stderr, "one of --src or --remote-svn is required")
		os.Exit(2)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(*stderrLogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --stderr-log-level %q: %v\n", *stderrLogLevel, err)
		os.Exit(2)
	}
	logger.SetLevel(level)
	if *debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Errorf("failed to open log file %q: %v", *logFile, err)
			os.Exit(1)
		}
		defer f.Close()
		fileLevel, err := logrus.ParseLevel(*fileLogLevel)
		if err != nil {
			logger.Errorf("invalid --file-log-level %q: %v", *fileLogLevel, err)
			os.Exit(2)
		}
		logger.AddHook(newFileHook(f, fileLevel))
	}

	if *cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuProfile)).Stop()
	} else if *memProfile != "" {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(*memProfile)).Stop()
	}

	var cfg *config.ConvParams
	if *convParamsFile != "" {
		cfg, err = config.LoadFile(*convParamsFile)
	} else {
		cfg, err = config.Unmarshal(nil)
	}
	if err != nil {
		logger.Errorf("error loading conversion parameters: %v", err)
		os.Exit(2)
	}

	var sink progress.Sink = progress.NopSink{}
	var term *progress.Terminal
	if !*noProgress {
		term = progress.NewTerminal(os.Stderr, 200*time.Millisecond)
		sink = term
	}

	startTime := time.Now()
	logger.Infof("%s", version.Print("svn2git"))
	logger.Infof("starting %s: src=%s remote=%s dest=%s", startTime.Format(time.RFC3339), *src, *remoteSVN, *dest)

	result, err := convert.Run(convert.Options{
		Cfg:           cfg,
		DumpPath:      *src,
		RemoteURL:     *remoteSVN,
		DestDir:       *dest,
		UserMapPath:   *userMapFile,
		ObjCacheBytes: *objCacheSize,
		GitRepack:     *gitRepack,
		Logger:        logger,
		Sink:          sink,
	})
	if term != nil {
		term.Close()
	}
	if err != nil {
		logger.Errorf("conversion failed: %v", err)
		os.Exit(1)
	}

	logger.Infof("wrote pack %s with %d refs, HEAD -> %s, in %s",
		result.PackSha, len(result.Refs), result.HeadRef, time.Since(startTime))
}
