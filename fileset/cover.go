package fileset

import (
	"sort"

	"github.com/pkg/errors"
	"go.flashmap.dev/core/record"
)

// Segment is a run [Begin, End) of file bytes whose live content is supplied
// by Data record Extent.
type Segment struct {
	Begin  uint32    `json:"begin" yaml:"begin"`
	End    uint32    `json:"end" yaml:"end"`
	Extent record.ID `json:"extent" yaml:"extent"`
}

// span is a byte range [begin, end) not yet covered by any extent.
type span struct{ begin, end uint32 }

// cover maps each byte of [0, size) to the first Data record of |ids| which
// covers it, where |ids| is ordered on descending version. It returns Segments
// ordered on Begin which together partition [0, size), or an ErrHole if any
// byte is left uncovered.
//
// Rather than consult each byte, cover sweeps the extents while tracking the
// ordered gaps of bytes not yet claimed. Each extent claims its overlap with
// the remaining gaps, and the sweep stops once no gaps remain.
func cover(log *record.Log, ids []record.ID, size uint32) ([]Segment, error) {
	var gaps []span
	var out []Segment

	if size != 0 {
		gaps = append(gaps, span{0, size})
	}

	for _, id := range ids {
		if len(gaps) == 0 {
			break
		}
		var d = log.Data(id)
		var begin, end = d.Offset, d.End()

		if begin == end {
			continue // Carries no content (eg, a truncation).
		}
		// Find the first gap which ends after |begin|, and one past the last
		// gap which starts before |end|.
		var i = sort.Search(len(gaps), func(i int) bool { return gaps[i].end > begin })
		var j = i
		for ; j != len(gaps) && gaps[j].begin < end; j++ {
		}
		if i == j {
			continue // Fully shadowed by more recent extents.
		}

		var rest []span
		if gaps[i].begin < begin {
			rest = append(rest, span{gaps[i].begin, begin})
		}
		for k := i; k != j; k++ {
			out = append(out, Segment{
				Begin:  max(gaps[k].begin, begin),
				End:    min(gaps[k].end, end),
				Extent: id,
			})
		}
		if gaps[j-1].end > end {
			rest = append(rest, span{end, gaps[j-1].end})
		}
		// Splice |rest| into the range [i, j).
		gaps = append(gaps[:i], append(rest, gaps[j:]...)...)
	}

	if len(gaps) != 0 {
		return nil, errors.WithMessagef(ErrHole, "offset %d (uncovered through %d, of size %d)",
			gaps[0].begin, gaps[0].end, size)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Begin < out[j].Begin })
	return out, nil
}

// validExtents returns the distinct extents of ordered |segments|, in order
// of first appearance. Extents are the same if they share an inode and version.
func validExtents(log *record.Log, segments []Segment) []record.ID {
	type key struct{ inode, version uint32 }

	var out []record.ID
	var seen = make(map[key]struct{}, len(segments))

	for _, seg := range segments {
		var d = log.Data(seg.Extent)
		var k = key{d.Inode, d.Version}

		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, seg.Extent)
		}
	}
	return out
}

// segmentAt returns the index of the Segment of |segments| covering |offset|.
func segmentAt(segments []Segment, offset uint32) (int, bool) {
	var ind = sort.Search(len(segments), func(i int) bool {
		return segments[i].End > offset
	})
	return ind, ind != len(segments) && segments[ind].Begin <= offset
}
