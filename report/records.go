package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.flashmap.dev/core/geometry"
	"go.flashmap.dev/core/record"
)

// WriteRecords writes a line of each record of |rl|, in ordered sequence,
// with flash offsets rendered as Addresses of Geometry |g|.
func WriteRecords(w io.Writer, rl *record.Log, g geometry.Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}
	var bw = bufio.NewWriter(w)

	for _, id := range rl.Ordered() {
		if _, err := fmt.Fprintln(bw, FormatRecord(rl.Get(id), g)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FormatRecord renders |r| under valid Geometry |g|. Node ranges are
// inclusive of their last flash byte:
//
//	Free space <start> -> <end>
//	Data node <first> -> <last> <inode>v<version>(@<begin>-><last>) c:<dsize>-><csize> f:<isize>
//	Dirent node <first> -> <last> "<name>"v<version> p:<parent>
func FormatRecord(r record.Record, g geometry.Geometry) string {
	var b strings.Builder

	switch r.Kind() {
	case record.KindFreeSpace:
		fmt.Fprintf(&b, "Free space %s -> %s", g.Address(r.FreeSpace.Start), g.Address(r.FreeSpace.End))
	case record.KindData:
		var d = r.Data
		fmt.Fprintf(&b, "Data node %s -> %s %dv%d",
			g.Address(d.FlashOffset), g.Address(d.FlashOffset+uint64(d.FlashSize)-1), d.Inode, d.Version)

		if d.DataSize == 0 {
			b.WriteString("(no data)")
		} else {
			fmt.Fprintf(&b, "(@%d->%d)", d.Offset, d.End()-1)
		}
		fmt.Fprintf(&b, " c:%d->%d f:%d", d.DataSize, d.CompressedSize, d.FileSize)
	case record.KindDirent:
		var d = r.Dirent
		fmt.Fprintf(&b, "Dirent node %s -> %s \"%s\"v%d p:%d", g.Address(d.FlashOffset),
			g.Address(d.FlashOffset+uint64(d.FlashSize)-1), d.Name, d.Version, d.ParentInode)
	default:
		b.WriteString("Invalid record")
	}
	return b.String()
}
