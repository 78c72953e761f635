package fileset

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.flashmap.dev/core/record"
)

func TestDeletedFileAdoptsTombstone(t *testing.T) {
	var fs = mustBuild(t, Options{},
		dirent(5, 3, 1, "a"),
		data(5, 2, 2048, 0, 10, 10),
		dirent(0, 7, 1, "a"),
	)
	var f, ok = fs.Lookup(5)
	require.True(t, ok)

	require.Equal(t, Deleted, f.State)
	require.Equal(t, uint32(7), f.Version)
	require.Equal(t, record.ID(2), f.NameID)
	require.Equal(t, "a", f.Name)
	require.Equal(t, uint32(0), f.Size)
	require.Empty(t, f.Valid)
	require.Empty(t, f.Segments)
	require.NoError(t, f.Err)
}

func TestEarlierTombstoneDoesNotDelete(t *testing.T) {
	var fs = mustBuild(t, Options{},
		dirent(0, 2, 1, "a"), // Deletes a prior "a", not this one.
		dirent(5, 3, 1, "a"),
		data(5, 4, 2048, 0, 10, 10),
	)
	var f, _ = fs.Lookup(5)
	require.Equal(t, Live, f.State)
	require.Equal(t, uint32(3), f.Version)
	require.Equal(t, uint32(10), f.Size)
}

func TestMostRecentTombstoneIsAdopted(t *testing.T) {
	var fs = mustBuild(t, Options{},
		dirent(5, 3, 1, "a"),
		dirent(0, 9, 4, "a"),
		dirent(0, 6, 2, "a"),
		dirent(0, 8, 3, "b"),
	)
	var f, _ = fs.Lookup(5)
	require.Equal(t, Deleted, f.State)
	require.Equal(t, uint32(9), f.Version)
	require.Equal(t, uint32(4), f.Parent)
}

func TestRenameResolvesMostRecentName(t *testing.T) {
	var fs = mustBuild(t, Options{},
		dirent(5, 1, 1, "a"),
		dirent(5, 4, 12, "b"),
		dirent(5, 2, 1, "c"),
		dirent(0, 6, 1, "a"), // Tombstone of the old name.
		data(5, 3, 2048, 0, 10, 10),
	)
	var f, _ = fs.Lookup(5)
	require.Equal(t, Live, f.State)
	require.Equal(t, "b", f.Name)
	require.Equal(t, uint32(12), f.Parent)
	require.Equal(t, uint32(4), f.Version)
	require.Equal(t, record.ID(1), f.NameID)
}

func TestOrphanIsDiscarded(t *testing.T) {
	var fs = mustBuild(t, Options{},
		data(9, 1, 2048, 0, 10, 10),
		data(9, 2, 4096, 0, 10, 10),
		dirent(5, 3, 1, "a"),
	)
	var _, ok = fs.Lookup(9)
	require.False(t, ok)
	require.Equal(t, []uint32{9}, fs.Discarded())

	var inodes []uint32
	for _, f := range fs.Files() {
		inodes = append(inodes, f.Inode)
	}
	require.Equal(t, []uint32{1, 5}, inodes)
}

func TestRootIsAlwaysPresentAndUnresolved(t *testing.T) {
	var fs = mustBuild(t, Options{})
	require.Equal(t, 1, fs.Len())

	fs = mustBuild(t, Options{},
		data(1, 1, 0, 0, 0, 0),
		dirent(0, 2, 1, "gone"),
	)
	var root, ok = fs.Lookup(1)
	require.True(t, ok)
	require.True(t, root.IsRoot())
	require.Equal(t, Live, root.State)
	require.Equal(t, "", root.Name)
	require.Nil(t, root.Segments)
	require.Equal(t, 1, fs.Len()) // Tombstones never create Files.
}

func TestShadowedExtentsResolveToValidSet(t *testing.T) {
	var fs = mustBuild(t, Options{},
		dirent(7, 10, 1, "f"),
		data(7, 1, 2048, 0, 100, 100),
		data(7, 2, 4096, 50, 50, 100),
	)
	var f, _ = fs.Lookup(7)

	require.Equal(t, uint32(100), f.Size)
	require.Equal(t, []record.ID{1, 2}, f.Valid)
	require.Equal(t, []Segment{
		{Begin: 0, End: 50, Extent: 1},
		{Begin: 50, End: 100, Extent: 2},
	}, f.Segments)

	var id, ok = f.ExtentAt(49)
	require.True(t, ok)
	require.Equal(t, record.ID(1), id)
	id, _ = f.ExtentAt(50)
	require.Equal(t, record.ID(2), id)
	_, ok = f.ExtentAt(100)
	require.False(t, ok)
}

func TestValidExtentsFollowLogicalOrder(t *testing.T) {
	// The most recent write lands at the end of the file, but the valid
	// extents are ordered on their first logical byte.
	var fs = mustBuild(t, Options{},
		dirent(7, 1, 1, "f"),
		data(7, 5, 8192, 80, 20, 100),
		data(7, 2, 2048, 0, 60, 100),
		data(7, 3, 4096, 20, 70, 100),
		data(7, 4, 6144, 0, 10, 100),
	)
	var f, _ = fs.Lookup(7)

	require.Equal(t, []record.ID{4, 2, 3, 1}, f.Valid)
	require.Equal(t, []Segment{
		{Begin: 0, End: 10, Extent: 4},
		{Begin: 10, End: 20, Extent: 2},
		{Begin: 20, End: 80, Extent: 3},
		{Begin: 80, End: 100, Extent: 1},
	}, f.Segments)
}

func TestSizeIsDeclaredByMostRecentWrite(t *testing.T) {
	var fs = mustBuild(t, Options{},
		dirent(7, 1, 1, "f"),
		data(7, 2, 2048, 0, 100, 100),
		data(7, 3, 4096, 0, 0, 40), // Truncation: no data, smaller size.
		data(7, 1, 6144, 0, 200, 200),
	)
	var f, _ = fs.Lookup(7)

	require.Equal(t, uint32(40), f.Size)
	require.Equal(t, []record.ID{1}, f.Valid)
	require.Equal(t, []Segment{{Begin: 0, End: 40, Extent: 1}}, f.Segments)

	// A file having no data at all is empty.
	fs = mustBuild(t, Options{}, dirent(8, 1, 1, "dir"))
	f, _ = fs.Lookup(8)
	require.Equal(t, Live, f.State)
	require.Equal(t, uint32(0), f.Size)
	require.Empty(t, f.Valid)
}

func TestHoleIsAttachedToFileByDefault(t *testing.T) {
	var fs = mustBuild(t, Options{},
		dirent(7, 1, 1, "holey"),
		data(7, 2, 2048, 0, 40, 100),
		data(7, 3, 4096, 60, 40, 100),
		dirent(8, 4, 1, "fine"),
		data(8, 5, 6144, 0, 10, 10),
	)
	var f, _ = fs.Lookup(7)

	require.Equal(t, Live, f.State)
	require.True(t, errors.Is(f.Err, ErrHole))
	require.EqualError(t, f.Err,
		"inode 7: offset 40 (uncovered through 60, of size 100): no extent covers file offset")
	require.Nil(t, f.Segments)
	require.Nil(t, f.Valid)
	require.Equal(t, []*File{f}, fs.Failed())

	f, _ = fs.Lookup(8)
	require.NoError(t, f.Err)
	require.Equal(t, []record.ID{4}, f.Valid)
}

func TestHoleAbortsStrictBuild(t *testing.T) {
	for _, parallelism := range []int{1, 4} {
		var fs, err = Build(buildLog(t,
			dirent(7, 1, 1, "holey"),
			data(7, 2, 2048, 10, 90, 100),
		), Options{Strict: true, Parallelism: parallelism})

		require.Nil(t, fs)
		require.True(t, errors.Is(err, ErrHole))
		require.Regexp(t, "^strict reconstruction: inode 7: offset 0 ", err.Error())
	}
}

func TestBuildIsDeterministicAndParallelMatchesSerial(t *testing.T) {
	var rnd = rand.New(rand.NewSource(42))
	var fixtures = randomFixtures(rnd, 40, 12)

	var first = mustBuild(t, Options{}, fixtures...)
	var second = mustBuild(t, Options{}, fixtures...)
	var parallel = mustBuild(t, Options{Parallelism: 8}, fixtures...)

	require.Equal(t, first.Files(), second.Files())
	require.Equal(t, first.Files(), parallel.Files())
	require.Equal(t, first.Discarded(), parallel.Discarded())
}

func TestLiveContentIsCoveredExactlyOnce(t *testing.T) {
	var rnd = rand.New(rand.NewSource(7))
	var fixtures = randomFixtures(rnd, 25, 30)
	var fs = mustBuild(t, Options{}, fixtures...)
	var rl = fs.Log()

	for _, f := range fs.Files() {
		if f.State != Live || f.IsRoot() {
			continue
		}
		require.NoError(t, f.Err)

		// Segments partition [0, Size) with no gaps or overlaps.
		var next uint32
		for _, seg := range f.Segments {
			require.Equal(t, next, seg.Begin)
			require.Less(t, seg.Begin, seg.End)
			next = seg.End
		}
		require.Equal(t, f.Size, next)

		// Each byte maps to the first covering extent in version order.
		for i := uint32(0); i != f.Size; i++ {
			var expect record.ID = -1
			for _, id := range f.DataIDs {
				if rl.Data(id).Covers(i) {
					expect = id
					break
				}
			}
			var id, ok = f.ExtentAt(i)
			require.True(t, ok)
			require.Equal(t, expect, id)
		}

		// The size is declared by the maximum-version write.
		var maxVersion uint32
		for _, id := range f.DataIDs {
			if d := rl.Data(id); d.Version > maxVersion {
				maxVersion = d.Version
				require.Equal(t, d.FileSize, f.Size)
			}
		}
	}
}

func TestFinalizeTwicePanics(t *testing.T) {
	var fs = mustBuild(t, Options{}, dirent(5, 1, 1, "a"))
	var f, _ = fs.Lookup(5)

	require.PanicsWithValue(t, "file is already finalized", func() {
		_ = f.finalize(fs.Log(), tombstoneIndex{})
	})
}

// randomFixtures builds well-formed records of |files| files, each having a
// first write covering its full size followed by |writes| random overwrites.
// A few files are orphaned, and a few deleted.
func randomFixtures(rnd *rand.Rand, files, writes int) []record.Record {
	var out []record.Record
	var version uint32
	var next = func() uint32 { version++; return version }

	for i := 0; i != files; i++ {
		var inode = uint32(i + 2)
		var size = uint32(rnd.Intn(10000) + 1)

		if i%9 != 4 {
			out = append(out, dirent(inode, next(), 1, "file-"+string(rune('a'+i%26))+string(rune('a'+i/26))))
		}
		out = append(out, data(inode, next(), uint64(rnd.Intn(1<<20)), 0, size, size))

		for w := 0; w != writes; w++ {
			var offset = uint32(rnd.Intn(int(size)))
			var length = uint32(rnd.Intn(int(size-offset)) + 1)
			out = append(out, data(inode, next(), uint64(rnd.Intn(1<<20)), offset, length, size))
		}
		if i%7 == 3 {
			out = append(out, dirent(0, next(), 1, "file-"+string(rune('a'+i%26))+string(rune('a'+i/26))))
		}
	}
	rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func mustBuild(t *testing.T, opts Options, records ...record.Record) *FileSet {
	var fs, err = Build(buildLog(t, records...), opts)
	require.NoError(t, err)
	return fs
}

func buildLog(t *testing.T, records ...record.Record) *record.Log {
	var rl = record.NewLog()
	for _, r := range records {
		var _, _, err = rl.Append(r)
		require.NoError(t, err)
	}
	return rl
}

func data(inode, version uint32, flashOffset uint64, offset, size, fileSize uint32) record.Record {
	return record.Record{Data: &record.Data{
		FlashOffset:    flashOffset,
		FlashSize:      size + 68,
		Inode:          inode,
		Version:        version,
		FileSize:       fileSize,
		CompressedSize: size,
		DataSize:       size,
		Offset:         offset,
	}}
}

func dirent(inode, version, parent uint32, name string) record.Record {
	return record.Record{Dirent: &record.Dirent{
		FlashOffset: uint64(version) * 64,
		FlashSize:   uint32(40 + len(name)),
		Inode:       inode,
		Version:     version,
		ParentInode: parent,
		Name:        name,
	}}
}
