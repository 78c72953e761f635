// Package dump extracts typed records from the textual node listing of a
// JFFS2 image, as produced by `jffs2dump -c`.
//
// Each line of a listing describes one free-space extent or one node:
//
//	Empty space found at 0x00001000 to 0x00002000
//	         Inode      node at 0x00000044, totlen 0x00000098, #ino     5, version     2, isize   100, csize    80, dsize   100, offset     0
//	         Dirent     node at 0x00000000, totlen 0x00000044, #pino     1, version     1, #ino     5, nsize     5, name hello
//
// Lines beginning with '#' (comments) or 'W' (extractor warnings) are skipped,
// as are blank lines. Offsets of a listing are relative to the start of the
// partition, and are shifted by the Geometry's PartitionOffset as they're read.
package dump

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.flashmap.dev/core/metrics"
	"go.flashmap.dev/core/record"
)

// Line prefixes of each listing entry.
const (
	freeSpacePrefix = "Empty space"
	dataPrefix      = "         Inode"
	direntPrefix    = "         Dirent"
)

var (
	freeSpaceRe = regexp.MustCompile(`0x([0-9a-f]*) to 0x([0-9a-f]*)`)
	nodeRe      = regexp.MustCompile(`node at 0x([0-9a-f]*).*totlen 0x([0-9a-f]*).*#ino[ ]*([0-9]*)`)
	versionRe   = regexp.MustCompile(`version[ ]*([0-9]*)`)
	dataRe      = regexp.MustCompile(`isize[ ]*([0-9]*).*csize[ ]*([0-9]*).*dsize[ ]*([0-9]*).*offset[ ]*([0-9]*)`)
	direntRe    = regexp.MustCompile(`#pino[ ]*([0-9]*).*nsize[ ]*([0-9]*).*name (.*)$`)
)

// maxLineSize bounds the length of a single listing line.
const maxLineSize = 1 << 16

// Parser extracts records from a listing.
type Parser struct {
	// PartitionOffset is added to every flash offset of the listing.
	PartitionOffset uint64
	// Lenient Parsers skip lines they don't recognize, rather than failing.
	Lenient bool
}

// Stats of a completed Parse.
type Stats struct {
	Lines        int // Total lines read.
	Skipped      int // Comment, warning, and blank lines.
	Unrecognized int // Lines skipped by a Lenient Parser.
	Records      int // Records appended to the Log.
	Duplicates   int // Records dropped by the Log as duplicates.
}

// Parse reads all lines of |r|, appending a record of each to |rl|. An error
// names the offending line number.
func (p Parser) Parse(r io.Reader, rl *record.Log) (Stats, error) {
	var stats Stats
	var scanner = bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		stats.Lines++
		var line = strings.TrimRight(scanner.Text(), "\r")

		if len(strings.TrimSpace(line)) == 0 || line[0] == '#' || line[0] == 'W' {
			stats.Skipped++
			metrics.DumpLinesTotal.WithLabelValues(metrics.Skipped).Inc()
			continue
		}

		var rec, err = p.ParseLine(line)
		if errors.Is(err, ErrUnrecognized) && p.Lenient {
			stats.Unrecognized++
			metrics.DumpLinesTotal.WithLabelValues(metrics.Unrecognized).Inc()

			log.WithFields(log.Fields{
				"line": stats.Lines,
				"text": line,
			}).Warn("skipping unrecognized dump line")
			continue
		} else if err != nil {
			return stats, errors.WithMessagef(err, "line %d", stats.Lines)
		}
		metrics.DumpLinesTotal.WithLabelValues(metrics.Parsed).Inc()

		if _, ok, err := rl.Append(rec); err != nil {
			return stats, errors.WithMessagef(err, "line %d", stats.Lines)
		} else if ok {
			stats.Records++
		} else {
			stats.Duplicates++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, errors.WithMessagef(err, "reading line %d", stats.Lines+1)
	}

	log.WithFields(log.Fields{
		"lines":        stats.Lines,
		"skipped":      stats.Skipped,
		"unrecognized": stats.Unrecognized,
		"records":      stats.Records,
		"duplicates":   stats.Duplicates,
	}).Info("parsed dump")

	return stats, nil
}

// ErrUnrecognized is returned for a line which describes no known entry.
var ErrUnrecognized = errors.New("unrecognized dump line")

// ParseLine returns the record described by a single listing |line|.
func (p Parser) ParseLine(line string) (record.Record, error) {
	switch {
	case strings.HasPrefix(line, freeSpacePrefix):
		var fs, err = p.parseFreeSpace(line)
		return record.Record{FreeSpace: fs}, err
	case strings.HasPrefix(line, dataPrefix):
		var d, err = p.parseData(line)
		return record.Record{Data: d}, err
	case strings.HasPrefix(line, direntPrefix):
		var d, err = p.parseDirent(line)
		return record.Record{Dirent: d}, err
	default:
		return record.Record{}, errors.WithMessagef(ErrUnrecognized, "%q", line)
	}
}

func (p Parser) parseFreeSpace(line string) (*record.FreeSpace, error) {
	var m = freeSpaceRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.New("expected free space range '0x<start> to 0x<end>'")
	}
	var fs = new(record.FreeSpace)
	var err error

	if fs.Start, err = parseHex(m[1], "start"); err != nil {
		return nil, err
	} else if fs.End, err = parseHex(m[2], "end"); err != nil {
		return nil, err
	}
	fs.Start += p.PartitionOffset
	fs.End += p.PartitionOffset

	return fs, nil
}

// node holds the fields common to Data and Dirent lines.
type node struct {
	flashOffset uint64
	flashSize   uint32
	inode       uint32
	version     uint32
}

func (p Parser) parseNode(line string) (node, error) {
	var n node
	var m = nodeRe.FindStringSubmatch(line)
	if m == nil {
		return n, errors.New("expected node 'node at 0x<offset>, totlen 0x<length>, #ino <inode>'")
	}
	var v = versionRe.FindStringSubmatch(line)
	if v == nil {
		return n, errors.New("expected node 'version <version>'")
	}

	var totlen uint64
	var err error

	if n.flashOffset, err = parseHex(m[1], "node offset"); err != nil {
		return n, err
	} else if totlen, err = parseHex(m[2], "totlen"); err != nil {
		return n, err
	} else if totlen > 1<<32-1 {
		return n, errors.Errorf("totlen 0x%x overflows", totlen)
	} else if n.inode, err = parseDec(m[3], "#ino"); err != nil {
		return n, err
	} else if n.version, err = parseDec(v[1], "version"); err != nil {
		return n, err
	}
	n.flashOffset += p.PartitionOffset
	n.flashSize = uint32(totlen)

	return n, nil
}

func (p Parser) parseData(line string) (*record.Data, error) {
	var n, err = p.parseNode(line)
	if err != nil {
		return nil, err
	}
	var m = dataRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.New("expected data node 'isize <n>, csize <n>, dsize <n>, offset <n>'")
	}
	var d = &record.Data{
		FlashOffset: n.flashOffset,
		FlashSize:   n.flashSize,
		Inode:       n.inode,
		Version:     n.version,
	}
	if d.FileSize, err = parseDec(m[1], "isize"); err != nil {
		return nil, err
	} else if d.CompressedSize, err = parseDec(m[2], "csize"); err != nil {
		return nil, err
	} else if d.DataSize, err = parseDec(m[3], "dsize"); err != nil {
		return nil, err
	} else if d.Offset, err = parseDec(m[4], "offset"); err != nil {
		return nil, err
	}
	return d, nil
}

func (p Parser) parseDirent(line string) (*record.Dirent, error) {
	var n, err = p.parseNode(line)
	if err != nil {
		return nil, err
	}
	var m = direntRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.New("expected dirent node '#pino <inode>, nsize <n>, name <name>'")
	}
	var d = &record.Dirent{
		FlashOffset: n.flashOffset,
		FlashSize:   n.flashSize,
		Inode:       n.inode,
		Version:     n.version,
		Name:        m[3],
	}
	if d.ParentInode, err = parseDec(m[1], "#pino"); err != nil {
		return nil, err
	}
	return d, nil
}

func parseHex(s, field string) (uint64, error) {
	var v, err = strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, errors.Errorf("malformed %s (%q)", field, s)
	}
	return v, nil
}

func parseDec(s, field string) (uint32, error) {
	var v, err = strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Errorf("malformed %s (%q)", field, s)
	}
	return uint32(v), nil
}
