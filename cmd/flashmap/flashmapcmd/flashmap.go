// Package flashmapcmd implements the sub-commands of the flashmap binary.
package flashmapcmd

import (
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.flashmap.dev/core/dump"
	"go.flashmap.dev/core/fileset"
	"go.flashmap.dev/core/geometry"
	"go.flashmap.dev/core/locality"
	mbp "go.flashmap.dev/core/mainboilerplate"
	"go.flashmap.dev/core/record"
	"go.flashmap.dev/core/report"
)

const iniFilename = "flashmap.ini"

// GeometryConfig configures the flash Geometry of the dumped partition.
type GeometryConfig struct {
	PageSize        uint64 `long:"page-size" env:"PAGE_SIZE" default:"2048" description:"Size of a flash page, in bytes"`
	PagesPerBlock   uint64 `long:"pages-per-block" env:"PAGES_PER_BLOCK" default:"64" description:"Number of flash pages of an erase block"`
	PartitionOffset uint64 `long:"partition-offset" env:"PARTITION_OFFSET" default:"0" description:"Byte offset of the partition on its device, added to every offset of the dump"`
}

// Geometry returns the configured Geometry.
func (cfg GeometryConfig) Geometry() geometry.Geometry {
	return geometry.Geometry{
		PageSize:        cfg.PageSize,
		PagesPerBlock:   cfg.PagesPerBlock,
		PartitionOffset: cfg.PartitionOffset,
	}
}

var (
	baseCfg = new(struct {
		Input   string `long:"input" short:"i" env:"INPUT" default:"-" description:"Path of the jffs2dump listing to read, which may be compressed. Use '-' for stdin"`
		Lenient bool   `long:"lenient" env:"LENIENT" description:"Skip dump lines which are not recognized, rather than failing"`

		Geometry       GeometryConfig    `group:"Geometry" namespace:"geometry" env-namespace:"GEOMETRY"`
		Reconstruction fileset.Options   `group:"Reconstruction"`
		Locality       locality.Params   `group:"Locality" namespace:"locality" env-namespace:"LOCALITY"`
		Log            mbp.LogConfig     `group:"Logging" namespace:"log" env-namespace:"LOG"`
		Metrics        mbp.MetricsConfig `group:"Metrics" namespace:"metrics" env-namespace:"METRICS"`
	})

	// CommandRegistry holds the sub-commands of flashmap.
	CommandRegistry = mbp.NewCommandRegistry()

	// Filesystem from which dumps are read, and to which snapshots are written.
	fs afero.Fs = afero.NewOsFs()
	// Writer of reports.
	stdout io.Writer = os.Stdout
)

// Execute parses configuration and runs the selected sub-command.
func Execute() {
	var parser = flags.NewParser(baseCfg, flags.Default)

	parser.LongDescription = `flashmap reconstructs the files of a JFFS2 partition from a
jffs2dump listing of its nodes, and reports the flash locality of each file.

See --help pages of each sub-command for documentation and usage examples.
Optionally configure flashmap with a '` + iniFilename + `' file in the current working directory,
or with '~/.config/flashmap/` + iniFilename + `'. Use the 'print-config' sub-command to inspect
the tool's current configuration.
`
	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.Must(CommandRegistry.AddCommands("", parser.Command), "could not add subcommand")
	mbp.MustParseConfig(parser, iniFilename)
}

func startup() {
	mbp.InitLog(baseCfg.Log)
	mbp.Must(baseCfg.Geometry.Geometry().Validate(), "invalid geometry")
	mbp.Must(baseCfg.Locality.Validate(), "invalid locality parameters")
}

func finish() error {
	return mbp.WriteMetrics(baseCfg.Metrics, prometheus.DefaultGatherer)
}

// readLog parses the configured input into a new record.Log.
func readLog() (*record.Log, error) {
	var parser = dump.Parser{
		PartitionOffset: baseCfg.Geometry.PartitionOffset,
		Lenient:         baseCfg.Lenient,
	}
	var rl = record.NewLog()

	if _, err := parser.ParseFile(fs, baseCfg.Input, rl); err != nil {
		return nil, err
	}
	return rl, nil
}

// buildSnapshot parses the configured input, reconstructs its FileSet, and
// analyzes each of its live Files.
func buildSnapshot() (*report.Snapshot, error) {
	var rl, err = readLog()
	if err != nil {
		return nil, err
	}
	fileSet, err := fileset.Build(rl, baseCfg.Reconstruction)
	if err != nil {
		return nil, err
	}
	return report.NewSnapshot(fileSet, baseCfg.Geometry.Geometry(), baseCfg.Locality)
}

func writeBanner(mode string) error {
	return report.WriteBanner(stdout, report.Banner{
		Input:    baseCfg.Input,
		Mode:     mode,
		Geometry: baseCfg.Geometry.Geometry(),
	})
}
