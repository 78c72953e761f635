package flashmapcmd

import (
	"fmt"

	"go.flashmap.dev/core/report"
)

type cmdFiles struct {
	Format string `long:"format" short:"o" choice:"text" choice:"table" choice:"json" choice:"yaml" default:"text" description:"Output format"`
	Banner bool   `long:"banner" description:"Write a configuration banner ahead of text output"`
}

func init() {
	CommandRegistry.AddCommand("", "files", "Reconstruct files and report their flash locality", `
Reconstruct the files of the dump and report each of them. Live files
are reported with their valid extents and flash locality metrics:

  - Concerned flash pages hold at least one byte of a valid extent.
  - Theoretical flash pages would hold the file if it were written sequentially.
  - Fragmentation factor is the ratio of concerned to theoretical pages.
  - Contiguous factor is the fraction of consecutive page reads which are
    sequential in flash.
  - Sequential read cost is the number of flash page reads required to read
    the file from beginning to end.

Deleted files are reported without metrics, as are live files having a
content hole. Orphaned inodes are listed last.

Examples:

# Report files of a dump in text format:
flashmap files --input dump.txt --banner

# Report files as a table, using 4KiB flash pages:
flashmap files --input dump.txt --format table --geometry.page-size=4096

# Report files as YAML:
flashmap files --input dump.txt.zst --format yaml
`, &cmdFiles{})
}

func (cmd *cmdFiles) Execute([]string) error {
	startup()

	var snap, err = buildSnapshot()
	if err != nil {
		return err
	}

	switch cmd.Format {
	case "text":
		if cmd.Banner {
			if err = writeBanner("Filemap"); err != nil {
				return err
			}
		}
		err = report.WriteFileMap(stdout, snap)
	case "table":
		report.WriteTable(stdout, snap)
	case "json":
		err = report.WriteJSON(stdout, snap)
	case "yaml":
		err = report.WriteYAML(stdout, snap)
	default:
		err = fmt.Errorf("unknown format %q", cmd.Format)
	}
	if err != nil {
		return err
	}
	return finish()
}
