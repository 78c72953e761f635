package fileset

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.flashmap.dev/core/metrics"
	"go.flashmap.dev/core/record"
	"golang.org/x/sync/errgroup"
)

// Options of a FileSet Build.
type Options struct {
	// Strict aborts Build on the first File having a reconstruction hole.
	// Otherwise, the error is attached to the File and Build continues.
	Strict bool `long:"strict" env:"STRICT" description:"Abort on the first file whose content has an uncovered byte"`
	// Parallelism is the number of Files finalized concurrently.
	// Values less than two finalize serially.
	Parallelism int `long:"parallelism" env:"PARALLELISM" default:"1" description:"Number of files to finalize concurrently"`
}

// FileSet is the reconstructed collection of Files of a record.Log, keyed on inode.
type FileSet struct {
	log       *record.Log
	files     []*File
	index     map[uint32]int
	discarded []uint32
}

// Build reconstructs the FileSet of |rl|. The filesystem root is always
// present. Other Files appear in order of their first record, with Data
// records taken in descending version order.
func Build(rl *record.Log, opts Options) (*FileSet, error) {
	var fs = &FileSet{
		log:   rl,
		index: make(map[uint32]int),
	}
	var tombstones = make(tombstoneIndex)

	fs.fileOf(record.RootInode)

	// Phase one: attach records to Files.
	for _, id := range rl.Ordered() {
		var rec = rl.Get(id)

		switch rec.Kind() {
		case record.KindData:
			var f = fs.fileOf(rec.Data.Inode)
			f.DataIDs = append(f.DataIDs, id)
		case record.KindDirent:
			if rec.Dirent.IsTombstone() {
				tombstones.add(rl, id)
			} else {
				var f = fs.fileOf(rec.Dirent.Inode)
				f.DirentIDs = append(f.DirentIDs, id)
			}
		case record.KindFreeSpace:
			// Not used by reconstruction.
		default:
			panic("unexpected record kind")
		}
	}

	// Phase two: finalize all Files.
	if err := fs.finalizeAll(tombstones, opts); err != nil {
		return nil, err
	}
	fs.compact()

	return fs, nil
}

// Files returns all Files of the set, in order of their first record.
func (fs *FileSet) Files() []*File { return fs.files }

// Len is the number of Files in the set.
func (fs *FileSet) Len() int { return len(fs.files) }

// Lookup returns the File of |inode|.
func (fs *FileSet) Lookup(inode uint32) (*File, bool) {
	if ind, ok := fs.index[inode]; ok {
		return fs.files[ind], true
	}
	return nil, false
}

// Discarded returns the inodes of orphan Files excluded from the set.
func (fs *FileSet) Discarded() []uint32 { return fs.discarded }

// Failed returns Files having a reconstruction error.
func (fs *FileSet) Failed() []*File {
	var out []*File
	for _, f := range fs.files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Log returns the record.Log of the FileSet.
func (fs *FileSet) Log() *record.Log { return fs.log }

// Extent returns the Data record of |id|.
func (fs *FileSet) Extent(id record.ID) *record.Data { return fs.log.Data(id) }

func (fs *FileSet) fileOf(inode uint32) *File {
	if ind, ok := fs.index[inode]; ok {
		return fs.files[ind]
	}
	var f = &File{Inode: inode}
	fs.index[inode] = len(fs.files)
	fs.files = append(fs.files, f)
	return f
}

// finalizeAll finalizes each File. Files are independent once attached, and
// each is finalized by exactly one goroutine.
func (fs *FileSet) finalizeAll(tombstones tombstoneIndex, opts Options) error {
	var finalize = func(f *File) error {
		var err = f.finalize(fs.log, tombstones)
		if err == nil {
			return nil
		}
		metrics.ReconstructionHolesTotal.Inc()

		if opts.Strict {
			return errors.WithMessage(err, "strict reconstruction")
		}
		log.WithFields(log.Fields{
			"inode": f.Inode,
			"name":  f.Name,
			"err":   err,
		}).Warn("file has a reconstruction hole")
		return nil
	}

	if opts.Parallelism < 2 {
		for _, f := range fs.files {
			if err := finalize(f); err != nil {
				return err
			}
		}
		return nil
	}

	var group errgroup.Group
	group.SetLimit(opts.Parallelism)

	for _, f := range fs.files {
		f := f
		group.Go(func() error { return finalize(f) })
	}
	return group.Wait()
}

// compact removes Discarded Files from the set, and tallies finalized states.
func (fs *FileSet) compact() {
	var kept = fs.files[:0]
	var counts = make(map[State]int)

	for _, f := range fs.files {
		counts[f.State]++

		if f.State == Discarded {
			fs.discarded = append(fs.discarded, f.Inode)
			log.WithField("inode", f.Inode).Debug("discarding orphan file")
			continue
		}
		kept = append(kept, f)

		switch {
		case f.IsRoot():
			metrics.FilesFinalizedTotal.WithLabelValues(metrics.Root).Inc()
		case f.State == Deleted:
			metrics.FilesFinalizedTotal.WithLabelValues(metrics.Deleted).Inc()
		default:
			metrics.FilesFinalizedTotal.WithLabelValues(metrics.Live).Inc()
			metrics.LiveBytesTotal.Add(float64(f.Size))
		}
	}
	metrics.FilesFinalizedTotal.WithLabelValues(metrics.Discarded).Add(float64(len(fs.discarded)))

	fs.files = kept
	fs.index = make(map[uint32]int, len(kept))
	for i, f := range kept {
		fs.index[f.Inode] = i
	}

	log.WithFields(log.Fields{
		"records":   fs.log.Len(),
		"files":     len(fs.files),
		"live":      counts[Live],
		"deleted":   counts[Deleted],
		"discarded": counts[Discarded],
		"failed":    len(fs.Failed()),
	}).Info("reconstructed file set")
}
