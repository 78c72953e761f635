package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"go.flashmap.dev/core/fileset"
	"go.flashmap.dev/core/geometry"
)

// Banner describes the run a report was produced by.
type Banner struct {
	Input    string
	Mode     string
	Geometry geometry.Geometry
}

// WriteBanner writes the run configuration block which heads text reports.
func WriteBanner(w io.Writer, b Banner) error {
	var input = "Parsing " + b.Input
	if b.Input == "-" {
		input = "Parsing stdin"
	}
	var _, err = fmt.Fprintf(w, `/************************************/
 flashmap configuration:
 - %s
 - %s mode
 - Flash page size: %d
 - Pages per block: %d
 - Partition offset: %d
/************************************/
`, input, b.Mode, b.Geometry.PageSize, b.Geometry.PagesPerBlock, b.Geometry.PartitionOffset)

	return err
}

// WriteFileMap writes a text block for each file of |snap|:
//
//	F: "name" [DELETED], size: 100 B, ino: 5, pino: 1
//	  Valid extents: 2
//	  Concerned flash pages (3): 3 4 7
//	  ...
func WriteFileMap(w io.Writer, snap *Snapshot) error {
	var bw = bufio.NewWriter(w)

	for i := range snap.Files {
		var f = &snap.Files[i]

		if f.IsRoot() {
			fmt.Fprintln(bw, `F: "/"`)
			continue
		}
		var deleted string
		if f.State == fileset.Deleted.String() {
			deleted = " [DELETED]"
		}
		fmt.Fprintf(bw, "F: %q%s, size: %s, ino: %d, pino: %d\n",
			f.Name, deleted, humanize.IBytes(uint64(f.Size)), f.Inode, f.Parent)

		if f.Error != "" {
			fmt.Fprintf(bw, "  Error: %s\n", f.Error)
		}
		if f.Metrics == nil {
			continue
		}
		var m = f.Metrics

		fmt.Fprintf(bw, "  Valid extents: %d\n", len(f.Extents))
		fmt.Fprintf(bw, "  Concerned flash pages (%d): %s\n", len(m.ConcernedPages), joinInts(m.ConcernedPages))
		fmt.Fprintf(bw, "  Theoretical flash pages: %d\n", m.TheoreticalPages)
		fmt.Fprintf(bw, "  Fragmentation factor: %.3f\n", m.Fragmentation)
		fmt.Fprintf(bw, "  Contiguous factor: %.3f\n", m.Contiguous)
		fmt.Fprintf(bw, "  Sequential read cost: %d\n", m.SequentialReadCost)
		fmt.Fprintf(bw, "  Logical page read costs: %s\n", joinInts(m.LogicalPageCosts))
	}
	if len(snap.Discarded) != 0 {
		fmt.Fprintf(bw, "Discarded orphan inodes (%d): %s\n", len(snap.Discarded), joinInts(snap.Discarded))
	}
	return bw.Flush()
}

func joinInts[T ~int | ~uint32 | ~uint64](s []T) string {
	var parts = make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}
