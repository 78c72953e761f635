package record

import (
	"sort"

	log "github.com/sirupsen/logrus"
	"go.flashmap.dev/core/metrics"
)

// ID identifies a Record within its Log. IDs are assigned in ingestion order
// and are stable for the lifetime of the Log.
type ID int

// Log is the run-scoped arena of all ingested Records. Records are owned by
// the Log and never mutated once appended; consumers hold IDs into it.
type Log struct {
	records    []Record
	seen       map[dedupKey]ID
	duplicates int
}

// dedupKey identifies Data and Dirent records which are producer duplicates.
type dedupKey struct {
	kind    Kind
	inode   uint32
	version uint32
}

// NewLog returns a new, empty Log.
func NewLog() *Log {
	return &Log{seen: make(map[dedupKey]ID)}
}

// Append ingests Record |r|, returning its ID and true. A Data or Dirent
// Record sharing its Kind, Inode, and Version with an earlier Record is a
// duplicate: it's dropped, and the ID of the earlier Record is returned with
// false. An invalid Record is rejected with a ValidationError.
func (l *Log) Append(r Record) (ID, bool, error) {
	if err := r.Validate(); err != nil {
		return 0, false, err
	}
	var kind = r.Kind()

	if kind == KindData || kind == KindDirent {
		var key = dedupKey{kind: kind}
		if kind == KindData {
			key.inode, key.version = r.Data.Inode, r.Data.Version
		} else {
			key.inode, key.version = r.Dirent.Inode, r.Dirent.Version
		}

		if prior, ok := l.seen[key]; ok {
			l.duplicates++
			metrics.DuplicateRecordsTotal.WithLabelValues(kind.String()).Inc()

			log.WithFields(log.Fields{
				"kind":    kind,
				"inode":   key.inode,
				"version": key.version,
				"prior":   prior,
			}).Debug("dropping duplicate record")

			return prior, false, nil
		}
		l.seen[key] = ID(len(l.records))
	}

	l.records = append(l.records, r)
	metrics.RecordsIngestedTotal.WithLabelValues(kind.String()).Inc()

	return ID(len(l.records) - 1), true, nil
}

// Len is the number of Records in the Log.
func (l *Log) Len() int { return len(l.records) }

// Duplicates is the number of duplicate Records dropped by Append.
func (l *Log) Duplicates() int { return l.duplicates }

// Get returns the Record of |id|.
func (l *Log) Get(id ID) Record { return l.records[id] }

// Data returns the Data of Record |id|, which must be of KindData.
func (l *Log) Data(id ID) *Data {
	if d := l.records[id].Data; d != nil {
		return d
	}
	panic("record is not Data")
}

// Dirent returns the Dirent of Record |id|, which must be of KindDirent.
func (l *Log) Dirent(id ID) *Dirent {
	if d := l.records[id].Dirent; d != nil {
		return d
	}
	panic("record is not a Dirent")
}

// Ordered returns every ID of the Log, in ingestion order except that the
// slots held by Data records are re-filled with Data records ordered on
// descending Version. The sort is stable: Data records sharing a Version keep
// their ingestion order. Non-Data records keep their original slots.
//
// Consumers rely on Ordered to find, for each inode, its most recent write
// first among its Data records.
func (l *Log) Ordered() []ID {
	var out = make([]ID, len(l.records))
	var slots, data []ID

	for i := range l.records {
		out[i] = ID(i)

		if l.records[i].Data != nil {
			slots = append(slots, ID(i))
			data = append(data, ID(i))
		}
	}
	sort.SliceStable(data, func(i, j int) bool {
		return l.records[data[i]].Data.Version > l.records[data[j]].Data.Version
	})
	for i, slot := range slots {
		out[slot] = data[i]
	}
	return out
}
