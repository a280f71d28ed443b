// Package driver runs the one-shot build pipeline that turns an artifact
// file into a queryable position index, with an optional disk cache for the
// finished index.
package driver

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strconv"

	"soldef/internal/artifact"
	"soldef/internal/index"
)

// Digest is a SHA-256 content digest used as the cache key.
type Digest [sha256.Size]byte

// BuildOptions configures a build.
type BuildOptions struct {
	// NoCache bypasses the disk cache entirely.
	NoCache bool
	// Cache is consulted when NoCache is false. A nil cache behaves like
	// NoCache.
	Cache *DiskCache
}

// BuildResult is a fully constructed, sealed index plus its provenance.
type BuildResult struct {
	Root      *artifact.Root
	Index     *index.PositionIndex
	Stats     artifact.LoadStats
	Digest    Digest
	FromCache bool
}

// Build loads an artifact and constructs its position index. Construction
// is single-threaded and runs to completion before any query: the returned
// index is sealed. When a cache is given, a hit on the artifact's content
// digest skips the walk.
func Build(artifactPath string, opts BuildOptions) (*BuildResult, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", artifactPath, err)
	}
	digest := Digest(sha256.Sum256(data))

	root, stats, err := artifact.Decode(data)
	if err != nil {
		return nil, err
	}
	if stats.Total() > 0 {
		fmt.Fprintf(os.Stderr, "driver: artifact %s: dropped %d incomplete records (sources=%d diagnostics=%d build_infos=%d)\n",
			artifactPath, stats.Total(), stats.SourcesDropped, stats.DiagnosticsDropped, stats.BuildInfosDropped)
	}

	if !opts.NoCache && opts.Cache != nil {
		var payload IndexPayload
		ok, err := opts.Cache.Get(digest, &payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "driver: index cache read failed: %v\n", err)
		} else if ok {
			if ix, ok := payload.restore(); ok {
				return &BuildResult{Root: root, Index: ix, Stats: stats, Digest: digest, FromCache: true}, nil
			}
		}
	}

	ix := buildIndex(root)

	if !opts.NoCache && opts.Cache != nil {
		if err := opts.Cache.Put(digest, payloadFromIndex(ix)); err != nil {
			fmt.Fprintf(os.Stderr, "driver: index cache write failed: %v\n", err)
		}
	}

	return &BuildResult{Root: root, Index: ix, Stats: stats, Digest: digest}, nil
}

// buildIndex walks every compiled file's AST and seals the index.
func buildIndex(root *artifact.Root) *index.PositionIndex {
	ix := index.New()

	for _, info := range root.BuildInfos {
		for rawID, path := range info.SourceIDToPath {
			fileID, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				continue
			}
			ix.SetFilePath(fileID, path)
		}
	}

	walker := index.NewWalker(ix)
	for _, files := range root.Sources {
		for _, file := range files {
			walker.Walk(file.AST)
		}
	}

	ix.Finalize()
	return ix
}
