package fileset

import (
	"github.com/pkg/errors"
	"go.flashmap.dev/core/record"
)

// State of a File.
type State int

const (
	// Unfinalized Files have records attached, but are not yet resolved.
	Unfinalized State = iota
	// Live Files exist, and have resolved names and content.
	Live
	// Deleted Files were un-named by a tombstone, and have no content.
	Deleted
	// Discarded Files are orphans having no resolvable name.
	Discarded
)

func (s State) String() string {
	switch s {
	case Unfinalized:
		return "unfinalized"
	case Live:
		return "live"
	case Deleted:
		return "deleted"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// File is the reconstructed state of one inode. A File never owns records:
// it holds IDs into the record.Log of its FileSet.
type File struct {
	Inode uint32
	// Data records of the inode, ordered on descending version.
	DataIDs []record.ID
	// Dirent records naming the inode, in ingestion order.
	DirentIDs []record.ID

	// State is set exactly once, by finalization.
	State State
	// Name, Parent, and Version of the Dirent the File resolved to. For a
	// Deleted File, these are of the tombstone.
	Name    string
	Parent  uint32
	Version uint32
	// NameID is the resolved Dirent record.
	NameID record.ID
	// Size of the file, as declared by its most recent write.
	Size uint32
	// Valid extents supplying live content, in order of their first logical byte.
	Valid []record.ID
	// Segments partition [0, Size) into runs of bytes having the same extent.
	Segments []Segment
	// Err is a reconstruction error of a Live File whose content could not be
	// resolved. Such a File has no Valid extents or Segments.
	Err error
}

// IsRoot returns true if the File is the filesystem root.
func (f *File) IsRoot() bool { return f.Inode == record.RootInode }

// ExtentAt returns the extent supplying file byte |offset|.
func (f *File) ExtentAt(offset uint32) (record.ID, bool) {
	if ind, ok := segmentAt(f.Segments, offset); ok {
		return f.Segments[ind].Extent, true
	}
	return 0, false
}

// SegmentsIn returns the Segments of the File overlapping file bytes [begin, end).
func (f *File) SegmentsIn(begin, end uint32) []Segment {
	if begin >= end {
		return nil
	}
	var i, _ = segmentAt(f.Segments, begin)
	var j = i
	for ; j != len(f.Segments) && f.Segments[j].Begin < end; j++ {
	}
	return f.Segments[i:j]
}

// mostRecentData returns the Data record of the File having the greatest version.
func (f *File) mostRecentData() (record.ID, bool) {
	if len(f.DataIDs) == 0 {
		return 0, false
	}
	return f.DataIDs[0], true // Ordered on descending version.
}

// finalize resolves the File's name and, if live, its content. A returned
// error is a reconstruction error of this File alone.
func (f *File) finalize(log *record.Log, tombstones tombstoneIndex) error {
	if f.State != Unfinalized {
		panic("file is already finalized")
	}
	if f.IsRoot() {
		f.State = Live
		return nil
	}

	if !f.resolveName(log, tombstones) {
		f.State = Discarded
		return nil
	} else if f.State == Deleted {
		return nil
	}
	f.State = Live

	if id, ok := f.mostRecentData(); ok {
		f.Size = log.Data(id).FileSize
	}
	var segments, err = cover(log, f.DataIDs, f.Size)
	if err != nil {
		f.Err = errors.WithMessagef(err, "inode %d", f.Inode)
		return f.Err
	}
	f.Segments = segments
	f.Valid = validExtents(log, segments)

	return nil
}

// resolveName picks the most recent Dirent of the File, and then a more
// recent tombstone of that name, if one exists. It returns false if the File
// has no Dirent.
func (f *File) resolveName(log *record.Log, tombstones tombstoneIndex) bool {
	var best *record.Dirent

	for _, id := range f.DirentIDs {
		// Ties are won by the first Dirent encountered.
		if d := log.Dirent(id); d.Version > f.Version {
			best, f.NameID, f.Version = d, id, d.Version
		}
	}
	if best == nil {
		return false
	}
	f.Name, f.Parent = best.Name, best.ParentInode

	if id, ok := tombstones[best.Name]; ok {
		if d := log.Dirent(id); d.Version > f.Version {
			f.NameID, f.Name, f.Parent, f.Version = id, d.Name, d.ParentInode, d.Version
			f.State = Deleted
		}
	}
	return true
}

// tombstoneIndex maps a name to its most recent tombstone.
type tombstoneIndex map[string]record.ID

func (idx tombstoneIndex) add(log *record.Log, id record.ID) {
	var d = log.Dirent(id)

	if prior, ok := idx[d.Name]; !ok || d.Version > log.Dirent(prior).Version {
		idx[d.Name] = id
	}
}
