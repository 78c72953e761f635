package geometry

import (
	"errors"
	"testing"

	gc "gopkg.in/check.v1"
)

type GeometrySuite struct{}

func (s *GeometrySuite) TestAddressCoordinates(c *gc.C) {
	var g = Geometry{PageSize: 2048, PagesPerBlock: 64}

	var cases = []struct {
		offset                           uint64
		page, block, pageInBlock, inPage uint64
		pageStart, blockStart            bool
	}{
		{0, 0, 0, 0, 0, true, true},
		{1, 0, 0, 0, 1, false, false},
		{2047, 0, 0, 0, 2047, false, false},
		{2048, 1, 0, 1, 0, true, false},
		{4196, 2, 0, 2, 100, false, false},
		{64 * 2048, 64, 1, 0, 0, true, true},
		{64*2048 + 3*2048 + 7, 67, 1, 3, 7, false, false},
	}
	for _, tc := range cases {
		var a, err = NewAddress(&g, tc.offset)
		c.Assert(err, gc.IsNil)

		c.Check(a.Page(), gc.Equals, tc.page)
		c.Check(a.Block(), gc.Equals, tc.block)
		c.Check(a.PageInBlock(), gc.Equals, tc.pageInBlock)
		c.Check(a.ByteInPage(), gc.Equals, tc.inPage)
		c.Check(a.IsPageStart(), gc.Equals, tc.pageStart)
		c.Check(a.IsBlockStart(), gc.Equals, tc.blockStart)
	}
}

func (s *GeometrySuite) TestAddressRequiresGeometry(c *gc.C) {
	var _, err = NewAddress(nil, 1234)
	c.Check(err, gc.Equals, ErrGeometryUnset)

	_, err = NewAddress(&Geometry{PageSize: 2048}, 1234)
	c.Check(errors.Is(err, ErrGeometryUnset), gc.Equals, true)
	c.Check(err, gc.ErrorMatches, `flash geometry is not configured: expected PagesPerBlock > 0`)

	_, err = NewAddress(&Geometry{PagesPerBlock: 64}, 1234)
	c.Check(err, gc.ErrorMatches, `.*expected PageSize > 0`)

	c.Check(func() { Geometry{}.Address(1) }, gc.PanicMatches, `flash geometry is not configured`)
}

func (s *GeometrySuite) TestPagesSpanned(c *gc.C) {
	var g = Geometry{PageSize: 2048, PagesPerBlock: 64}

	c.Check(g.PagesSpanned(2048, 168), gc.DeepEquals, []uint64{1})
	c.Check(g.PagesSpanned(2000, 100), gc.DeepEquals, []uint64{0, 1})
	c.Check(g.PagesSpanned(2048, 2048), gc.DeepEquals, []uint64{1})
	c.Check(g.PagesSpanned(2048, 2049), gc.DeepEquals, []uint64{1, 2})
	c.Check(g.PagesSpanned(0, 3*2048+1), gc.DeepEquals, []uint64{0, 1, 2, 3})
	c.Check(g.PagesSpanned(4096, 0), gc.IsNil)
}

func (s *GeometrySuite) TestString(c *gc.C) {
	var g = Geometry{PageSize: 2048, PagesPerBlock: 64, PartitionOffset: 7864320}
	c.Check(g.Address(64*2048+3*2048+7).String(), gc.Equals, "@137223|7 [67;1|3]")
	c.Check(g.BlockSize(), gc.Equals, uint64(131072))
}

var _ = gc.Suite(&GeometrySuite{})

func Test(t *testing.T) { gc.TestingT(t) }
