package flashmapcmd

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3" // Registers the "sqlite3" driver.
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.flashmap.dev/core/report"
)

type cmdExport struct {
	Out    string `long:"out" description:"Path of a snapshot file to write. Format is JSON or YAML by extension, optionally compressed (eg, snap.json.gz)"`
	SQLite string `long:"sqlite" description:"Path of a SQLite database to export to. Tables are created if required, and prior rows are replaced"`
}

func init() {
	CommandRegistry.AddCommand("", "export", "Export a snapshot of reconstructed files", `
Reconstruct the files of the dump, and export a snapshot of the files and
their locality metrics to a snapshot file, a SQLite database, or both.

Examples:

# Export a compressed YAML snapshot:
flashmap export --input dump.txt --out snapshot.yaml.gz

# Export to a SQLite database for querying:
flashmap export --input dump.txt --sqlite flashmap.db
sqlite3 flashmap.db 'SELECT name, fragmentation FROM files ORDER BY fragmentation DESC;'
`, &cmdExport{})
}

func (cmd *cmdExport) Execute([]string) error {
	startup()

	if cmd.Out == "" && cmd.SQLite == "" {
		return errors.New("expected at least one of --out or --sqlite")
	}
	var snap, err = buildSnapshot()
	if err != nil {
		return err
	}

	if cmd.Out != "" {
		if err = report.SaveSnapshot(fs, cmd.Out, snap); err != nil {
			return err
		}
		log.WithField("path", cmd.Out).Info("wrote snapshot")
	}
	if cmd.SQLite != "" {
		var db *sql.DB
		if db, err = sql.Open("sqlite3", cmd.SQLite); err != nil {
			return errors.WithMessage(err, "opening database")
		}
		defer db.Close()

		if err = report.ExportSQL(context.Background(), db, snap); err != nil {
			return err
		}
	}
	return finish()
}
