package driver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"soldef/internal/index"
)

// SourceStatus is the on-disk state of one mapped source file.
type SourceStatus struct {
	FileID  int64
	Path    string
	Exists  bool
	Size    int64
	Digest  string
	Entries int
}

// VerifySources checks every file in the index's id to path table against
// the filesystem: existence, size, and content digest. Files are checked in
// parallel; results come back ordered by file id.
func VerifySources(ctx context.Context, ix *index.PositionIndex, jobs int) ([]SourceStatus, error) {
	table := ix.FileTable()
	if len(table) == 0 {
		return nil, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Slots are unique per goroutine, no mutex needed.
	results := make([]SourceStatus, len(table))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(table)))

	for i, row := range table {
		i, row := i, row
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			status := SourceStatus{
				FileID:  row.FileID,
				Path:    row.Path,
				Entries: len(ix.Entries(row.FileID)),
			}
			// #nosec G304 -- path comes from the loaded artifact's file table
			content, err := os.ReadFile(row.Path)
			if err == nil {
				sum := sha256.Sum256(content)
				status.Exists = true
				status.Size = int64(len(content))
				status.Digest = hex.EncodeToString(sum[:])
			}
			results[i] = status
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
