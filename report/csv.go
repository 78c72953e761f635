package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// CSVHeader is the header row written by WriteCSV.
var CSVHeader = []string{
	"inode",
	"name",
	"parent",
	"version",
	"state",
	"size",
	"valid_extents",
	"concerned_pages",
	"theoretical_pages",
	"fragmentation",
	"contiguous",
	"sequential_read_cost",
	"logical_page_costs",
	"error",
}

// WriteCSV writes a header and then a row of each file of |snap|. Metric
// columns are empty for Files without Metrics, and logical page costs are
// separated by spaces.
func WriteCSV(w io.Writer, snap *Snapshot) error {
	var cw = csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for i := range snap.Files {
		var f = &snap.Files[i]
		var row = []string{
			strconv.FormatUint(uint64(f.Inode), 10),
			f.Name,
			strconv.FormatUint(uint64(f.Parent), 10),
			strconv.FormatUint(uint64(f.Version), 10),
			f.State,
			strconv.FormatUint(uint64(f.Size), 10),
			strconv.Itoa(len(f.Extents)),
			"", "", "", "", "", "",
			f.Error,
		}
		if m := f.Metrics; m != nil {
			row[7] = strconv.Itoa(len(m.ConcernedPages))
			row[8] = strconv.FormatUint(m.TheoreticalPages, 10)
			row[9] = strconv.FormatFloat(m.Fragmentation, 'f', -1, 64)
			row[10] = strconv.FormatFloat(m.Contiguous, 'f', -1, 64)
			row[11] = strconv.Itoa(m.SequentialReadCost)
			row[12] = joinInts(m.LogicalPageCosts)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
