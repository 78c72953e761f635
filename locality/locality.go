// Package locality derives flash-locality metrics of reconstructed files from
// the physical placement of their live extents.
//
// Metrics compare the flash pages a file's live content actually occupies
// against the pages it would occupy had it been written in the fewest
// maximal writes, and model the cost of reading it sequentially: both in
// whole, and one logical (host) page at a time through a one-slot read
// buffer which retains the last flash page read.
package locality

import (
	"github.com/pkg/errors"
	"go.flashmap.dev/core/fileset"
	"go.flashmap.dev/core/geometry"
	"go.flashmap.dev/core/record"
)

// ErrNotAnalyzable is returned when metrics are requested of a File having
// no resolved live content: the root, a deleted File, or a File which failed
// reconstruction.
var ErrNotAnalyzable = errors.New("file has no analyzable content")

// Params are the filesystem constants locality metrics are computed under.
type Params struct {
	MaxPayload      uint64 `long:"max-payload" env:"MAX_PAYLOAD" default:"4096" description:"Maximum data payload of a single write, in bytes" json:"max_payload" yaml:"max_payload"`
	WriteOverhead   uint64 `long:"write-overhead" env:"WRITE_OVERHEAD" default:"68" description:"Metadata bytes stored on flash with each write" json:"write_overhead" yaml:"write_overhead"`
	LogicalPageSize uint64 `long:"logical-page-size" env:"LOGICAL_PAGE_SIZE" default:"4096" description:"Size of a logical (host) page read, in bytes" json:"logical_page_size" yaml:"logical_page_size"`
}

// DefaultParams returns Params of a JFFS2 partition read by a Linux host.
func DefaultParams() Params {
	return Params{
		MaxPayload:      4096,
		WriteOverhead:   68,
		LogicalPageSize: 4096,
	}
}

// Validate returns an error if the Params are not usable.
func (p Params) Validate() error {
	if p.MaxPayload == 0 {
		return errors.New("expected MaxPayload > 0")
	} else if p.LogicalPageSize == 0 {
		return errors.New("expected LogicalPageSize > 0")
	}
	return nil
}

// Metrics of a single File.
type Metrics struct {
	// ConcernedPages are the distinct flash pages holding the File's valid
	// extents, in order of first appearance.
	ConcernedPages []uint64 `json:"concerned_pages" yaml:"concerned_pages"`
	// WalkPages are the flash pages read when reading the File sequentially.
	// A page may appear more than once, but never twice in a row.
	WalkPages []uint64 `json:"walk_pages" yaml:"walk_pages"`
	// TheoreticalPages is the minimum number of pages the File could occupy.
	TheoreticalPages uint64 `json:"theoretical_pages" yaml:"theoretical_pages"`
	// Fragmentation is len(ConcernedPages) / TheoreticalPages.
	Fragmentation float64 `json:"fragmentation" yaml:"fragmentation"`
	// Contiguous is the fraction of WalkPages transitions which are not to
	// the physically next page.
	Contiguous float64 `json:"contiguous" yaml:"contiguous"`
	// SequentialReadCost is len(WalkPages).
	SequentialReadCost int `json:"sequential_read_cost" yaml:"sequential_read_cost"`
	// LogicalPageCosts is the flash page read cost of each logical page.
	LogicalPageCosts []int `json:"logical_page_costs" yaml:"logical_page_costs"`
}

// Analyze computes the Metrics of live File |f| of FileSet |fs|.
func Analyze(fs *fileset.FileSet, f *fileset.File, g geometry.Geometry, p Params) (Metrics, error) {
	if err := g.Validate(); err != nil {
		return Metrics{}, err
	} else if err = p.Validate(); err != nil {
		return Metrics{}, err
	} else if err = analyzable(f); err != nil {
		return Metrics{}, err
	}

	var m = Metrics{
		ConcernedPages:   ConcernedPages(fs, f, g),
		WalkPages:        WalkPages(fs, f, g),
		TheoreticalPages: TheoreticalPages(uint64(f.Size), g, p),
		LogicalPageCosts: LogicalPageCosts(fs, f, g, p),
	}
	m.Fragmentation = FragmentationFactor(len(m.ConcernedPages), m.TheoreticalPages)
	m.Contiguous = ContiguousFactor(m.WalkPages)
	m.SequentialReadCost = len(m.WalkPages)

	return m, nil
}

func analyzable(f *fileset.File) error {
	switch {
	case f.IsRoot():
		return errors.WithMessage(ErrNotAnalyzable, "root directory")
	case f.State != fileset.Live:
		return errors.WithMessagef(ErrNotAnalyzable, "inode %d is %s", f.Inode, f.State)
	case f.Err != nil:
		return errors.WithMessagef(ErrNotAnalyzable, "inode %d: %s", f.Inode, f.Err)
	}
	return nil
}

// ExtentPages returns the flash pages spanned by the Data extent.
func ExtentPages(d *record.Data, g geometry.Geometry) []uint64 {
	return g.PagesSpanned(d.FlashOffset, uint64(d.FlashSize))
}

// ConcernedPages returns the distinct flash pages holding valid extents of
// |f|, in order of first appearance.
func ConcernedPages(fs *fileset.FileSet, f *fileset.File, g geometry.Geometry) []uint64 {
	var out []uint64
	var seen = make(map[uint64]struct{})

	for _, id := range f.Valid {
		for _, page := range ExtentPages(fs.Extent(id), g) {
			if _, ok := seen[page]; !ok {
				seen[page] = struct{}{}
				out = append(out, page)
			}
		}
	}
	return out
}

// WalkPages returns the flash pages read when reading all of |f| in logical order.
func WalkPages(fs *fileset.FileSet, f *fileset.File, g geometry.Geometry) []uint64 {
	return walk(fs, f, g, 0, f.Size)
}

// walk returns the flash pages read when reading bytes [begin, end) of |f|
// in logical order. Each time the extent supplying the next byte changes,
// all pages of that extent are read, excepting a page equal to the page
// read just before it.
func walk(fs *fileset.FileSet, f *fileset.File, g geometry.Geometry, begin, end uint32) []uint64 {
	var out []uint64
	var prev record.ID = -1

	for _, seg := range f.SegmentsIn(begin, end) {
		if seg.Extent == prev {
			continue
		}
		for _, page := range ExtentPages(fs.Extent(seg.Extent), g) {
			if len(out) == 0 || out[len(out)-1] != page {
				out = append(out, page)
			}
		}
		prev = seg.Extent
	}
	return out
}

// TheoreticalPages returns the number of flash pages a file of |size| bytes
// occupies if written in the fewest, maximal writes, each of which also
// stores WriteOverhead bytes of metadata.
func TheoreticalPages(size uint64, g geometry.Geometry, p Params) uint64 {
	var writes = ceilDiv(size, p.MaxPayload)
	return ceilDiv(size+writes*p.WriteOverhead, g.PageSize)
}

// FragmentationFactor is the ratio of |concerned| pages to |theoretical|
// pages. It's zero for an empty file.
func FragmentationFactor(concerned int, theoretical uint64) float64 {
	if theoretical == 0 {
		return 0
	}
	return float64(concerned) / float64(theoretical)
}

// ContiguousFactor is the fraction of transitions between consecutive
// |pages| which don't step to the physically next page. It's zero if there
// are no transitions.
func ContiguousFactor(pages []uint64) float64 {
	if len(pages) < 2 {
		return 0
	}
	var jumps int
	for i := 1; i != len(pages); i++ {
		if pages[i] != pages[i-1]+1 {
			jumps++
		}
	}
	return float64(jumps) / float64(len(pages)-1)
}

// LogicalPages is the number of logical pages of a file of |size| bytes.
func LogicalPages(size uint64, p Params) uint64 { return ceilDiv(size, p.LogicalPageSize) }

// LogicalPageReads returns the flash pages read when reading logical page
// |index| of |f|, or nil if the page is beyond the file's size.
func LogicalPageReads(fs *fileset.FileSet, f *fileset.File, g geometry.Geometry, p Params, index uint64) []uint64 {
	var begin = index * p.LogicalPageSize
	if begin >= uint64(f.Size) {
		return nil
	}
	var end = min(begin+p.LogicalPageSize, uint64(f.Size))
	return walk(fs, f, g, uint32(begin), uint32(end))
}

// LogicalPageCosts returns the read cost of each logical page of |f|, read in
// order: the number of flash pages it reads, less one if its first flash page
// is the last flash page read by the logical page before it.
func LogicalPageCosts(fs *fileset.FileSet, f *fileset.File, g geometry.Geometry, p Params) []int {
	var n = LogicalPages(uint64(f.Size), p)
	var out = make([]int, 0, n)
	var last uint64
	var haveLast bool

	for i := uint64(0); i != n; i++ {
		var pages = LogicalPageReads(fs, f, g, p, i)
		var cost = len(pages)

		if cost == 0 {
			out = append(out, 0)
			continue
		}
		if haveLast && pages[0] == last {
			cost--
		}
		last, haveLast = pages[len(pages)-1], true
		out = append(out, cost)
	}
	return out
}

func ceilDiv(a, b uint64) uint64 {
	if a == 0 {
		return 0
	}
	return (a-1)/b + 1
}
