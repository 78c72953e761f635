package report

import (
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// WriteTable writes a human-readable table of the files of |snap|.
func WriteTable(w io.Writer, snap *Snapshot) {
	var table = tablewriter.NewWriter(w)
	table.Header("Inode", "Name", "State", "Size", "Extents", "Pages", "Fragmentation", "Contiguous", "Read Cost")

	for i := range snap.Files {
		var f = &snap.Files[i]
		if f.IsRoot() {
			continue
		}
		var row = []string{
			strconv.FormatUint(uint64(f.Inode), 10),
			f.Name,
			f.State,
			humanize.IBytes(uint64(f.Size)),
			humanize.Comma(int64(len(f.Extents))),
			"", "", "", "",
		}
		if m := f.Metrics; m != nil {
			row[5] = strconv.Itoa(len(m.ConcernedPages)) + "/" + strconv.FormatUint(m.TheoreticalPages, 10)
			row[6] = humanize.FtoaWithDigits(m.Fragmentation, 3)
			row[7] = humanize.FtoaWithDigits(m.Contiguous, 3)
			row[8] = humanize.Comma(int64(m.SequentialReadCost))
		} else if f.Error != "" {
			row[2] = f.State + " (hole)"
		}
		table.Append(row)
	}
	table.Render()
}
