package record

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.flashmap.dev/core/metrics"
)

func TestRecordKindAndValidationCases(t *testing.T) {
	var cases = []struct {
		r      Record
		kind   Kind
		expect string
	}{
		{Record{FreeSpace: &FreeSpace{Start: 10, End: 20}}, KindFreeSpace, ""},
		{Record{FreeSpace: &FreeSpace{Start: 20, End: 10}}, KindFreeSpace,
			"FreeSpace: expected Start <= End (have 20, 10)"},
		{Record{Data: &Data{FlashSize: 68, Inode: 2, Version: 1}}, KindData, ""},
		{Record{Data: &Data{Inode: 2, Version: 1}}, KindData,
			"Data: expected FlashSize > 0"},
		{Record{Data: &Data{FlashSize: 68, Offset: 1 << 31, DataSize: 1 << 31}}, KindData,
			"Data: data range overflows (offset 2147483648, size 2147483648)"},
		{Record{Dirent: &Dirent{FlashSize: 44, Inode: 2, Name: "a"}}, KindDirent, ""},
		{Record{Dirent: &Dirent{FlashSize: 44, Inode: 2}}, KindDirent,
			"Dirent: expected non-empty Name"},
		{Record{}, KindInvalid, "expected exactly one of FreeSpace, Data, or Dirent"},
		{Record{Data: &Data{FlashSize: 1}, Dirent: &Dirent{FlashSize: 1, Name: "a"}}, KindInvalid,
			"expected exactly one of FreeSpace, Data, or Dirent"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.kind, tc.r.Kind())

		if tc.expect == "" {
			require.NoError(t, tc.r.Validate())
		} else {
			require.EqualError(t, tc.r.Validate(), tc.expect)
		}
	}
}

func TestDataCoverage(t *testing.T) {
	var d = Data{Offset: 50, DataSize: 50}

	require.Equal(t, uint32(100), d.End())
	require.False(t, d.Covers(49))
	require.True(t, d.Covers(50))
	require.True(t, d.Covers(99))
	require.False(t, d.Covers(100))

	// A zero-length write covers nothing.
	d = Data{Offset: 50}
	require.False(t, d.Covers(50))
}

func TestLogAppendDropsDuplicates(t *testing.T) {
	var l = NewLog()
	var dupsBefore = testutil.ToFloat64(metrics.DuplicateRecordsTotal.WithLabelValues("data"))

	var id, ok, err = l.Append(dataRec(7, 1, 2048))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ID(0), id)

	_, ok, err = l.Append(Record{Dirent: &Dirent{FlashSize: 44, Inode: 7, Version: 1, Name: "a"}})
	require.NoError(t, err)
	require.True(t, ok) // Same inode & version, but a different Kind.

	// A second Data record with the same inode and version is dropped,
	// and the first one is kept.
	id, ok, err = l.Append(dataRec(7, 1, 9999))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, ID(0), id)
	require.Equal(t, uint64(2048), l.Data(0).FlashOffset)

	// Free space is never de-duplicated.
	for i := 0; i != 2; i++ {
		_, ok, err = l.Append(Record{FreeSpace: &FreeSpace{Start: 1, End: 2}})
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.Equal(t, 4, l.Len())
	require.Equal(t, 1, l.Duplicates())
	require.Equal(t, dupsBefore+1,
		testutil.ToFloat64(metrics.DuplicateRecordsTotal.WithLabelValues("data")))

	// Invalid records are rejected.
	_, _, err = l.Append(Record{})
	require.Error(t, err)
	require.IsType(t, &ValidationError{}, err)
	require.Equal(t, 4, l.Len())
}

func TestLogAccessorsPanicOnKindMismatch(t *testing.T) {
	var l = NewLog()
	_, _, _ = l.Append(Record{FreeSpace: &FreeSpace{}})

	require.PanicsWithValue(t, "record is not Data", func() { l.Data(0) })
	require.PanicsWithValue(t, "record is not a Dirent", func() { l.Dirent(0) })
}

func TestOrderedSortsDataSlotsOnly(t *testing.T) {
	var l = NewLog()
	var fixtures = []Record{
		dataRec(2, 3, 0),
		{FreeSpace: &FreeSpace{Start: 0, End: 1}},
		dataRec(2, 9, 0),
		{Dirent: &Dirent{FlashSize: 44, Inode: 2, Version: 4, Name: "x"}},
		dataRec(3, 5, 0),
		dataRec(4, 9, 0), // Ties with ID 2, and keeps its relative order.
		dataRec(3, 1, 0),
	}
	for _, r := range fixtures {
		var _, _, err = l.Append(r)
		require.NoError(t, err)
	}

	require.Equal(t, []ID{2, 1, 5, 3, 4, 0, 6}, l.Ordered())

	// Ordering is idempotent and doesn't disturb the Log.
	require.Equal(t, l.Ordered(), l.Ordered())
	require.Equal(t, uint32(3), l.Data(0).Version)
}

func TestOrderedPreservesKindsAndCount(t *testing.T) {
	var l = NewLog()
	for i := uint32(1); i != 50; i++ {
		var r = dataRec(i%5+2, (i*37)%101, uint64(i)*2048)
		if i%7 == 0 {
			r = Record{Dirent: &Dirent{FlashSize: 44, Inode: i, Version: i + 1000, Name: "n"}}
		}
		var _, _, err = l.Append(r)
		require.NoError(t, err)
	}
	var ordered = l.Ordered()
	require.Len(t, ordered, l.Len())

	var seen = make(map[ID]bool)
	var last = ^uint32(0)

	for slot, id := range ordered {
		require.False(t, seen[id])
		seen[id] = true

		// Each slot holds a record of the same Kind as originally.
		require.Equal(t, l.Get(ID(slot)).Kind(), l.Get(id).Kind())

		if d := l.Get(id).Data; d != nil {
			require.LessOrEqual(t, d.Version, last)
			last = d.Version
		} else {
			require.Equal(t, ID(slot), id)
		}
	}
}

func dataRec(inode, version uint32, flashOffset uint64) Record {
	return Record{Data: &Data{
		FlashOffset: flashOffset,
		FlashSize:   168,
		Inode:       inode,
		Version:     version,
		FileSize:    100,
		DataSize:    100,
	}}
}
