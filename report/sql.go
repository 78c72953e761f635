package report

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SQLSchema creates the tables written by ExportSQL:
//
//	files          One row per File, with its Metrics if it has them.
//	valid_extents  The valid extents of each File, in logical order.
//	logical_pages  The read cost of each logical page of each File.
var SQLSchema = []string{
	`CREATE TABLE IF NOT EXISTS files (
		inode                INTEGER PRIMARY KEY NOT NULL,
		name                 TEXT    NOT NULL,
		parent               INTEGER NOT NULL,
		version              INTEGER NOT NULL,
		state                TEXT    NOT NULL,
		size                 INTEGER NOT NULL,
		concerned_pages      INTEGER,
		theoretical_pages    INTEGER,
		fragmentation        REAL,
		contiguous           REAL,
		sequential_read_cost INTEGER,
		error                TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS valid_extents (
		inode        INTEGER NOT NULL,
		ordinal      INTEGER NOT NULL,
		version      INTEGER NOT NULL,
		file_offset  INTEGER NOT NULL,
		data_size    INTEGER NOT NULL,
		flash_offset INTEGER NOT NULL,
		flash_size   INTEGER NOT NULL,
		PRIMARY KEY (inode, ordinal)
	);`,
	`CREATE TABLE IF NOT EXISTS logical_pages (
		inode INTEGER NOT NULL,
		page  INTEGER NOT NULL,
		cost  INTEGER NOT NULL,
		PRIMARY KEY (inode, page)
	);`,
}

// ExportSQL writes |snap| to |db| in a single transaction, creating tables
// of SQLSchema as required and replacing any rows of a prior export.
func ExportSQL(ctx context.Context, db *sql.DB, snap *Snapshot) (err error) {
	var txn *sql.Tx
	if txn, err = db.BeginTx(ctx, nil); err != nil {
		return errors.WithMessage(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = txn.Rollback()
		}
	}()

	for _, stmt := range SQLSchema {
		if _, err = txn.ExecContext(ctx, stmt); err != nil {
			return errors.WithMessage(err, "creating schema")
		}
	}
	for _, table := range []string{"files", "valid_extents", "logical_pages"} {
		if _, err = txn.ExecContext(ctx, "DELETE FROM "+table+";"); err != nil {
			return errors.WithMessagef(err, "clearing %s", table)
		}
	}

	var insertFile, insertExtent, insertPage *sql.Stmt
	if insertFile, err = txn.PrepareContext(ctx, `INSERT INTO files
		(inode, name, parent, version, state, size, concerned_pages, theoretical_pages,
		 fragmentation, contiguous, sequential_read_cost, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`); err != nil {
		return errors.WithMessage(err, "preparing files insert")
	} else if insertExtent, err = txn.PrepareContext(ctx, `INSERT INTO valid_extents
		(inode, ordinal, version, file_offset, data_size, flash_offset, flash_size)
		VALUES (?, ?, ?, ?, ?, ?, ?);`); err != nil {
		return errors.WithMessage(err, "preparing valid_extents insert")
	} else if insertPage, err = txn.PrepareContext(ctx,
		`INSERT INTO logical_pages (inode, page, cost) VALUES (?, ?, ?);`); err != nil {
		return errors.WithMessage(err, "preparing logical_pages insert")
	}

	for i := range snap.Files {
		var f = &snap.Files[i]
		var concerned, theoretical, fragmentation, contiguous, readCost, fileErr interface{}

		if m := f.Metrics; m != nil {
			concerned, theoretical = len(m.ConcernedPages), int64(m.TheoreticalPages)
			fragmentation, contiguous, readCost = m.Fragmentation, m.Contiguous, m.SequentialReadCost
		}
		if f.Error != "" {
			fileErr = f.Error
		}

		if _, err = insertFile.ExecContext(ctx, f.Inode, f.Name, f.Parent, f.Version, f.State, f.Size,
			concerned, theoretical, fragmentation, contiguous, readCost, fileErr); err != nil {
			return errors.WithMessagef(err, "inserting inode %d", f.Inode)
		}
		for ord, e := range f.Extents {
			if _, err = insertExtent.ExecContext(ctx, f.Inode, ord, e.Version, e.Offset,
				e.DataSize, int64(e.FlashOffset), e.FlashSize); err != nil {
				return errors.WithMessagef(err, "inserting extent of inode %d", f.Inode)
			}
		}
		if f.Metrics == nil {
			continue
		}
		for page, cost := range f.Metrics.LogicalPageCosts {
			if _, err = insertPage.ExecContext(ctx, f.Inode, page, cost); err != nil {
				return errors.WithMessagef(err, "inserting logical page of inode %d", f.Inode)
			}
		}
	}

	if err = txn.Commit(); err != nil {
		return errors.WithMessage(err, "committing export")
	}
	log.WithFields(log.Fields{
		"files": len(snap.Files),
	}).Info("exported snapshot to database")

	return nil
}
