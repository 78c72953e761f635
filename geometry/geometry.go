// Package geometry converts flash byte offsets into page and erase-block
// coordinates under a fixed partition Geometry.
//
// A Geometry is supplied once, at startup, and is then passed by value into
// every address computation. There is no package-level default: asking for an
// Address without a valid Geometry is a configuration error, returned as
// ErrGeometryUnset, rather than a recoverable data-quality condition.
package geometry

import (
	"errors"
	"fmt"
)

// ErrGeometryUnset is returned when an Address is requested without a valid Geometry.
var ErrGeometryUnset = errors.New("flash geometry is not configured")

// Geometry describes the physical layout of a flash partition.
type Geometry struct {
	// PageSize is the size of a flash page, in bytes.
	PageSize uint64 `yaml:"page_size" json:"page_size"`
	// PagesPerBlock is the number of pages in an erase block.
	PagesPerBlock uint64 `yaml:"pages_per_block" json:"pages_per_block"`
	// PartitionOffset is the byte offset of the partition on the device.
	// Extractors which report partition-relative offsets add it to each one.
	PartitionOffset uint64 `yaml:"partition_offset" json:"partition_offset"`
}

// Validate returns an error if the Geometry is not usable.
func (g Geometry) Validate() error {
	if g.PageSize == 0 {
		return fmt.Errorf("%w: expected PageSize > 0", ErrGeometryUnset)
	} else if g.PagesPerBlock == 0 {
		return fmt.Errorf("%w: expected PagesPerBlock > 0", ErrGeometryUnset)
	}
	return nil
}

// BlockSize is the size of an erase block, in bytes.
func (g Geometry) BlockSize() uint64 { return g.PageSize * g.PagesPerBlock }

// PageOf returns the index of the flash page holding |offset|.
func (g Geometry) PageOf(offset uint64) uint64 { return offset / g.PageSize }

// PagesSpanned returns the ordered indices of flash pages holding any byte
// of [offset, offset+size). A zero |size| spans no pages.
func (g Geometry) PagesSpanned(offset, size uint64) []uint64 {
	if size == 0 {
		return nil
	}
	var first, last = offset / g.PageSize, (offset + size - 1) / g.PageSize
	var out = make([]uint64, 0, last-first+1)

	for p := first; p <= last; p++ {
		out = append(out, p)
	}
	return out
}

// Address is a flash byte offset bound to the Geometry it is interpreted under.
type Address struct {
	Offset uint64
	geo    Geometry
}

// NewAddress returns the Address of |offset| under Geometry |g|, which must be
// non-nil and valid.
func NewAddress(g *Geometry, offset uint64) (Address, error) {
	if g == nil {
		return Address{}, ErrGeometryUnset
	} else if err := g.Validate(); err != nil {
		return Address{}, err
	}
	return Address{Offset: offset, geo: *g}, nil
}

// Address returns the Address of |offset| under the Geometry, which must
// already have been validated.
func (g Geometry) Address(offset uint64) Address {
	if g.Validate() != nil {
		panic(ErrGeometryUnset)
	}
	return Address{Offset: offset, geo: g}
}

// Page is the index of the flash page containing the Address.
func (a Address) Page() uint64 { return a.Offset / a.geo.PageSize }

// Block is the index of the erase block containing the Address.
func (a Address) Block() uint64 { return a.Page() / a.geo.PagesPerBlock }

// PageInBlock is the index of the Address's page within its erase block.
func (a Address) PageInBlock() uint64 { return a.Page() % a.geo.PagesPerBlock }

// ByteInPage is the byte offset of the Address within its page.
func (a Address) ByteInPage() uint64 { return a.Offset % a.geo.PageSize }

// IsPageStart returns true if the Address is the first byte of a page.
func (a Address) IsPageStart() bool { return a.ByteInPage() == 0 }

// IsBlockStart returns true if the Address is the first byte of an erase block.
func (a Address) IsBlockStart() bool { return a.Offset%a.geo.BlockSize() == 0 }

// String renders the Address as "@offset|byteInPage [page;block|pageInBlock]".
func (a Address) String() string {
	return fmt.Sprintf("@%d|%d [%d;%d|%d]",
		a.Offset, a.ByteInPage(), a.Page(), a.Block(), a.PageInBlock())
}
