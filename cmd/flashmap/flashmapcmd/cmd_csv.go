package flashmapcmd

import (
	"go.flashmap.dev/core/report"
)

type cmdCSV struct{}

func init() {
	CommandRegistry.AddCommand("", "csv", "Write file locality metrics as CSV", `
Reconstruct the files of the dump, and write a CSV row of each file
with its locality metrics. Metric columns are empty for deleted files,
and for files which could not be analyzed. Logical page read costs are
separated by spaces.

Example:

flashmap csv --input dump.txt > files.csv
`, &cmdCSV{})
}

func (cmd *cmdCSV) Execute([]string) error {
	startup()

	var snap, err = buildSnapshot()
	if err != nil {
		return err
	}
	if err = report.WriteCSV(stdout, snap); err != nil {
		return err
	}
	return finish()
}
