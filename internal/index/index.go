package index

import (
	"sort"
)

// PositionIndex aggregates index entries per file and answers containment
// queries by byte offset. It is filled through Add, sealed once through
// Finalize, and read-only afterward; queries on a sealed index need no
// external synchronization.
type PositionIndex struct {
	fileEntries  map[int64][]*Entry
	maxEnd       map[int64][]uint32
	byID         map[int64]*Entry
	fileIDToPath map[int64]string
	finalized    bool
}

// New returns an empty PositionIndex.
func New() *PositionIndex {
	return &PositionIndex{
		fileEntries:  make(map[int64][]*Entry),
		maxEnd:       make(map[int64][]uint32),
		byID:         make(map[int64]*Entry),
		fileIDToPath: make(map[int64]string),
	}
}

// Add appends an entry to its file bucket and registers it under its node
// id. Node ids are not checked for uniqueness: a later duplicate silently
// overwrites the id mapping, so callers must guarantee per-artifact
// uniqueness.
func (x *PositionIndex) Add(entry Entry) {
	e := &entry
	x.fileEntries[e.FileID] = append(x.fileEntries[e.FileID], e)
	x.byID[e.NodeID] = e
	x.finalized = false
}

// SetFilePath records the on-disk path for a file id.
func (x *PositionIndex) SetFilePath(fileID int64, path string) {
	x.fileIDToPath[fileID] = path
}

// FilePath returns the on-disk path for a file id.
func (x *PositionIndex) FilePath(fileID int64) (string, bool) {
	path, ok := x.fileIDToPath[fileID]
	return path, ok
}

// FileMapping is one row of the file id to path table.
type FileMapping struct {
	FileID int64
	Path   string
}

// FileTable returns the id to path table ordered by file id, so that every
// iteration over it is deterministic.
func (x *PositionIndex) FileTable() []FileMapping {
	table := make([]FileMapping, 0, len(x.fileIDToPath))
	for id, path := range x.fileIDToPath {
		table = append(table, FileMapping{FileID: id, Path: path})
	}
	sort.Slice(table, func(i, j int) bool { return table[i].FileID < table[j].FileID })
	return table
}

// Finalize sorts every file bucket by (start ascending, depth descending)
// and precomputes the running maximum end offset per bucket, enabling
// O(log n + k) containment queries. It must run after the last Add and
// before the first query; re-running it is wasteful but harmless.
func (x *PositionIndex) Finalize() {
	if x.finalized {
		return
	}
	for fileID, entries := range x.fileEntries {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].StartByte != entries[j].StartByte {
				return entries[i].StartByte < entries[j].StartByte
			}
			return entries[i].Depth > entries[j].Depth
		})
		maxEnd := make([]uint32, len(entries))
		var running uint32
		for i, e := range entries {
			if e.EndByte > running {
				running = e.EndByte
			}
			maxEnd[i] = running
		}
		x.maxEnd[fileID] = maxEnd
	}
	x.finalized = true
}

// FindContaining returns every entry of the file whose half-open byte range
// contains offset, deepest first. Candidates start at the last entry whose
// start is <= offset; the backward scan stops as soon as the running max
// end proves no earlier entry can reach the offset.
func (x *PositionIndex) FindContaining(fileID int64, offset uint32) []*Entry {
	entries, ok := x.fileEntries[fileID]
	if !ok || len(entries) == 0 {
		return nil
	}
	hi := sort.Search(len(entries), func(i int) bool { return entries[i].StartByte > offset })
	maxEnd := x.maxEnd[fileID]

	var containing []*Entry
	for i := hi - 1; i >= 0; i-- {
		if len(maxEnd) == len(entries) && maxEnd[i] <= offset {
			break
		}
		if entries[i].Contains(offset) {
			containing = append(containing, entries[i])
		}
	}
	sort.SliceStable(containing, func(i, j int) bool {
		return containing[i].Depth > containing[j].Depth
	})
	return containing
}

// FindInnermost returns the deepest entry containing offset, or nil.
func (x *PositionIndex) FindInnermost(fileID int64, offset uint32) *Entry {
	containing := x.FindContaining(fileID, offset)
	if len(containing) == 0 {
		return nil
	}
	return containing[0]
}

// NodeByID returns the entry registered under a node id.
func (x *PositionIndex) NodeByID(id int64) (*Entry, bool) {
	e, ok := x.byID[id]
	return e, ok
}

// Entries returns the sealed entry sequence of one file.
func (x *PositionIndex) Entries(fileID int64) []*Entry {
	return x.fileEntries[fileID]
}

// Files returns the ids of all files with at least one entry, ascending.
func (x *PositionIndex) Files() []int64 {
	ids := make([]int64, 0, len(x.fileEntries))
	for id := range x.fileEntries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the total number of entries across all files.
func (x *PositionIndex) Len() int {
	total := 0
	for _, entries := range x.fileEntries {
		total += len(entries)
	}
	return total
}
