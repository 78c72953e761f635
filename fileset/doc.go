// Package fileset reconstructs the current state of every file of a flash
// partition from the records of its log.
//
// Reconstruction happens in two phases. Build first walks the version-ordered
// records of a record.Log and attaches each Data and Dirent record to the File
// of its inode. Only then are Files finalized, as deciding whether one File was
// deleted requires the tombstones of the entire log.
//
// Finalizing a File resolves its current name from its most recent Dirent,
// checks for a later tombstone of that name, and for live Files resolves which
// Data extent currently supplies each byte of content. A Data extent shadows
// every lower-versioned extent on the bytes they share. The result is a
// Segment map partitioning the file's bytes, and the ordered set of "valid"
// extents which still hold live content.
//
// Files with content or naming activity but no resolvable name are orphans:
// they're discarded from the FileSet, and their inodes are reported by
// FileSet.Discarded.
package fileset

import "github.com/pkg/errors"

// ErrHole is returned when a byte of a live file is not covered by any extent.
// It indicates log corruption or an extraction bug.
var ErrHole = errors.New("no extent covers file offset")
