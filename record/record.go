// Package record models the metadata records which survive in the log of a
// JFFS2-style flash partition, and the run-scoped Log which owns them.
//
// A Record is one of three variants: a FreeSpace extent, a Data extent (one
// write into an inode's content), or a Dirent (one naming of an inode under a
// parent directory). Records are immutable once ingested. Every other
// component refers to a Record through its stable ID within the Log.
package record

import (
	"fmt"
)

// Kind enumerates the variants of a Record.
type Kind int

const (
	// KindInvalid is the Kind of a Record having zero, or more than one, variant set.
	KindInvalid Kind = iota
	// KindFreeSpace is an unallocated flash region.
	KindFreeSpace
	// KindData is a write of file content.
	KindData
	// KindDirent is a naming record, or a tombstone if its Inode is zero.
	KindDirent
)

func (k Kind) String() string {
	switch k {
	case KindFreeSpace:
		return "free_space"
	case KindData:
		return "data"
	case KindDirent:
		return "dirent"
	default:
		return "invalid"
	}
}

// RootInode is the reserved inode of the filesystem root directory.
const RootInode uint32 = 1

// TombstoneInode is the inode of a Dirent which un-names a file.
const TombstoneInode uint32 = 0

// FreeSpace is an unallocated region [Start, End) of the flash.
type FreeSpace struct {
	Start uint64 `json:"start" yaml:"start"`
	End   uint64 `json:"end" yaml:"end"`
}

// Validate returns an error if the FreeSpace is not well-formed.
func (m *FreeSpace) Validate() error {
	if m.Start > m.End {
		return NewValidationError("expected Start <= End (have %d, %d)", m.Start, m.End)
	}
	return nil
}

// Data is a single write of DataSize bytes into file |Inode| at byte range
// [Offset, Offset+DataSize), stored at [FlashOffset, FlashOffset+FlashSize).
// FileSize is the total size of the file as declared by this write.
type Data struct {
	FlashOffset    uint64 `json:"flash_offset" yaml:"flash_offset"`
	FlashSize      uint32 `json:"flash_size" yaml:"flash_size"`
	Inode          uint32 `json:"inode" yaml:"inode"`
	Version        uint32 `json:"version" yaml:"version"`
	FileSize       uint32 `json:"file_size" yaml:"file_size"`
	CompressedSize uint32 `json:"compressed_size" yaml:"compressed_size"`
	DataSize       uint32 `json:"data_size" yaml:"data_size"`
	Offset         uint32 `json:"offset" yaml:"offset"`
}

// Validate returns an error if the Data is not well-formed.
func (m *Data) Validate() error {
	if m.FlashSize == 0 {
		return NewValidationError("expected FlashSize > 0")
	} else if end := uint64(m.Offset) + uint64(m.DataSize); end > 1<<32-1 {
		return NewValidationError("data range overflows (offset %d, size %d)", m.Offset, m.DataSize)
	}
	return nil
}

// End is the exclusive end of the file byte range written by the Data.
func (m *Data) End() uint32 { return m.Offset + m.DataSize }

// Covers returns true if file byte |offset| falls within the Data's range.
func (m *Data) Covers(offset uint32) bool {
	return offset >= m.Offset && offset < m.End()
}

// Dirent names |Inode| as |Name| under directory |ParentInode|, as of |Version|.
// A Dirent having Inode zero is a tombstone: |Name| no longer refers to anything.
type Dirent struct {
	FlashOffset uint64 `json:"flash_offset" yaml:"flash_offset"`
	FlashSize   uint32 `json:"flash_size" yaml:"flash_size"`
	Inode       uint32 `json:"inode" yaml:"inode"`
	Version     uint32 `json:"version" yaml:"version"`
	ParentInode uint32 `json:"parent_inode" yaml:"parent_inode"`
	Name        string `json:"name" yaml:"name"`
}

// Validate returns an error if the Dirent is not well-formed.
func (m *Dirent) Validate() error {
	if m.FlashSize == 0 {
		return NewValidationError("expected FlashSize > 0")
	} else if m.Name == "" {
		return NewValidationError("expected non-empty Name")
	}
	return nil
}

// IsTombstone returns true if the Dirent un-names its Name.
func (m *Dirent) IsTombstone() bool { return m.Inode == TombstoneInode }

// Record is a tagged union of the record variants. Exactly one field is set.
type Record struct {
	FreeSpace *FreeSpace `json:"free_space,omitempty" yaml:"free_space,omitempty"`
	Data      *Data      `json:"data,omitempty" yaml:"data,omitempty"`
	Dirent    *Dirent    `json:"dirent,omitempty" yaml:"dirent,omitempty"`
}

// Kind returns the variant of the Record.
func (r Record) Kind() Kind {
	var kind, n = KindInvalid, 0

	if r.FreeSpace != nil {
		kind, n = KindFreeSpace, n+1
	}
	if r.Data != nil {
		kind, n = KindData, n+1
	}
	if r.Dirent != nil {
		kind, n = KindDirent, n+1
	}
	if n != 1 {
		return KindInvalid
	}
	return kind
}

// Validate returns an error if the Record is not well-formed.
func (r Record) Validate() error {
	switch r.Kind() {
	case KindFreeSpace:
		return ExtendContext(r.FreeSpace.Validate(), "FreeSpace")
	case KindData:
		return ExtendContext(r.Data.Validate(), "Data")
	case KindDirent:
		return ExtendContext(r.Dirent.Validate(), "Dirent")
	default:
		return NewValidationError("expected exactly one of FreeSpace, Data, or Dirent")
	}
}

// Version returns the write-sequence version of a Data or Dirent Record,
// and zero for FreeSpace.
func (r Record) Version() uint32 {
	switch r.Kind() {
	case KindData:
		return r.Data.Version
	case KindDirent:
		return r.Dirent.Version
	default:
		return 0
	}
}

func (r Record) String() string {
	switch r.Kind() {
	case KindFreeSpace:
		return fmt.Sprintf("free[%d, %d)", r.FreeSpace.Start, r.FreeSpace.End)
	case KindData:
		return fmt.Sprintf("data(%dv%d [%d, %d) f:%d)",
			r.Data.Inode, r.Data.Version, r.Data.Offset, r.Data.End(), r.Data.FileSize)
	case KindDirent:
		return fmt.Sprintf("dirent(%dv%d %q p:%d)",
			r.Dirent.Inode, r.Dirent.Version, r.Dirent.Name, r.Dirent.ParentInode)
	default:
		return "invalid"
	}
}
