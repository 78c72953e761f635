package flashmapcmd

import (
	"go.flashmap.dev/core/report"
)

type cmdRecords struct {
	Banner bool `long:"banner" description:"Write a configuration banner ahead of records"`
}

func init() {
	CommandRegistry.AddCommand("", "records", "List parsed records in ordered sequence", `
List each record of the dump, after de-duplication, in ordered sequence:
dirents first, then data nodes by descending version, and then free space.
Flash offsets are rendered as "@<offset>|<byte> [<page>;<block>|<page-in-block>]".

Examples:

# List records of a dump read from stdin:
jffs2dump -c /dev/mtd3 | flashmap records --banner

# List records of a compressed dump, from a partition at offset 7864320:
flashmap records --input dump.txt.gz --geometry.partition-offset=7864320
`, &cmdRecords{})
}

func (cmd *cmdRecords) Execute([]string) error {
	startup()

	var rl, err = readLog()
	if err != nil {
		return err
	}
	if cmd.Banner {
		if err = writeBanner("Records"); err != nil {
			return err
		}
	}
	if err = report.WriteRecords(stdout, rl, baseCfg.Geometry.Geometry()); err != nil {
		return err
	}
	return finish()
}
