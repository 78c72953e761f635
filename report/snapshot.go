// Package report renders reconstructed FileSets and their locality metrics:
// as human-readable listings and tables, as CSV, as JSON or YAML snapshots,
// and as rows of a SQL database.
package report

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.flashmap.dev/core/codecs"
	"go.flashmap.dev/core/fileset"
	"go.flashmap.dev/core/geometry"
	"go.flashmap.dev/core/locality"
	"go.flashmap.dev/core/record"
	"gopkg.in/yaml.v2"
)

// Snapshot is a serializable view of a reconstructed FileSet, with the
// locality Metrics of each of its live Files.
type Snapshot struct {
	Geometry   geometry.Geometry `json:"geometry" yaml:"geometry"`
	Params     locality.Params   `json:"params" yaml:"params"`
	Records    int               `json:"records" yaml:"records"`
	Duplicates int               `json:"duplicates" yaml:"duplicates"`
	Files      []FileEntry       `json:"files" yaml:"files"`
	Discarded  []uint32          `json:"discarded,omitempty" yaml:"discarded,omitempty"`
}

// FileEntry is the Snapshot of a single File.
type FileEntry struct {
	Inode   uint32 `json:"inode" yaml:"inode"`
	Name    string `json:"name" yaml:"name"`
	Parent  uint32 `json:"parent" yaml:"parent"`
	Version uint32 `json:"version" yaml:"version"`
	State   string `json:"state" yaml:"state"`
	Size    uint32 `json:"size" yaml:"size"`
	// Extents are the valid extents of the File, in order of their first logical byte.
	Extents []Extent `json:"extents,omitempty" yaml:"extents,omitempty"`
	// Metrics are present for live Files other than the root.
	Metrics *locality.Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	// Error is a reconstruction error of the File.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Extent is a valid extent of a File.
type Extent struct {
	Version     uint32 `json:"version" yaml:"version"`
	Offset      uint32 `json:"offset" yaml:"offset"`
	DataSize    uint32 `json:"data_size" yaml:"data_size"`
	FlashOffset uint64 `json:"flash_offset" yaml:"flash_offset"`
	FlashSize   uint32 `json:"flash_size" yaml:"flash_size"`
}

// IsRoot returns true if the FileEntry is of the filesystem root.
func (e *FileEntry) IsRoot() bool { return e.Inode == record.RootInode }

// NewSnapshot builds the Snapshot of |fs|, analyzing each live File under
// Geometry |g| and Params |p|.
func NewSnapshot(fs *fileset.FileSet, g geometry.Geometry, p locality.Params) (*Snapshot, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	} else if err = p.Validate(); err != nil {
		return nil, err
	}
	var snap = &Snapshot{
		Geometry:   g,
		Params:     p,
		Records:    fs.Log().Len(),
		Duplicates: fs.Log().Duplicates(),
		Discarded:  fs.Discarded(),
	}

	for _, f := range fs.Files() {
		var entry = FileEntry{
			Inode:   f.Inode,
			Name:    f.Name,
			Parent:  f.Parent,
			Version: f.Version,
			State:   f.State.String(),
			Size:    f.Size,
		}
		for _, id := range f.Valid {
			var d = fs.Extent(id)
			entry.Extents = append(entry.Extents, Extent{
				Version:     d.Version,
				Offset:      d.Offset,
				DataSize:    d.DataSize,
				FlashOffset: d.FlashOffset,
				FlashSize:   d.FlashSize,
			})
		}

		if f.Err != nil {
			entry.Error = f.Err.Error()
		} else if !f.IsRoot() && f.State == fileset.Live {
			var m, err = locality.Analyze(fs, f, g, p)
			if err != nil {
				return nil, errors.WithMessagef(err, "analyzing inode %d", f.Inode)
			}
			entry.Metrics = &m
		}
		snap.Files = append(snap.Files, entry)
	}
	return snap, nil
}

// Format of a serialized Snapshot.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFromPath returns the Format implied by |path|, ignoring any
// compression extension. Paths which aren't ".yaml" or ".yml" are JSON.
func FormatFromPath(path string) Format {
	if codecs.FromPath(path) != codecs.NONE {
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// WriteJSON writes the indented JSON encoding of |snap| to |w|.
func WriteJSON(w io.Writer, snap *Snapshot) error {
	var enc = json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.WithMessage(enc.Encode(snap), "encoding snapshot to json")
}

// WriteYAML writes the YAML encoding of |snap| to |w|.
func WriteYAML(w io.Writer, snap *Snapshot) error {
	var b, err = yaml.Marshal(snap)
	if err != nil {
		return errors.WithMessage(err, "encoding snapshot to yaml")
	}
	_, err = w.Write(b)
	return err
}

// ReadSnapshot decodes a Snapshot of Format |format| from |r|.
func ReadSnapshot(r io.Reader, format Format) (*Snapshot, error) {
	var snap = new(Snapshot)
	var err error

	switch format {
	case YAML:
		var b []byte
		if b, err = io.ReadAll(r); err == nil {
			err = yaml.UnmarshalStrict(b, snap)
		}
	case JSON:
		err = json.NewDecoder(r).Decode(snap)
	default:
		err = errors.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "decoding snapshot")
	}
	return snap, nil
}

// SaveSnapshot writes |snap| to |path| of |fs|, in the Format and Codec
// implied by the path's extensions.
func SaveSnapshot(fs afero.Fs, path string, snap *Snapshot) (err error) {
	var f afero.File
	if f, err = fs.Create(path); err != nil {
		return errors.WithMessage(err, "creating snapshot")
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = errors.WithMessage(closeErr, "closing snapshot")
		}
	}()

	var enc codecs.Compressor
	if enc, err = codecs.NewCodecWriter(f, codecs.FromPath(path)); err != nil {
		return err
	}
	if FormatFromPath(path) == YAML {
		err = WriteYAML(enc, snap)
	} else {
		err = WriteJSON(enc, snap)
	}
	if err != nil {
		return err
	}
	return errors.WithMessage(enc.Close(), "flushing snapshot")
}

// LoadSnapshot reads a Snapshot written by SaveSnapshot.
func LoadSnapshot(fs afero.Fs, path string) (*Snapshot, error) {
	var f, err = fs.Open(path)
	if err != nil {
		return nil, errors.WithMessage(err, "opening snapshot")
	}
	defer f.Close()

	dec, err := codecs.NewCodecReader(f, codecs.FromPath(path))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return ReadSnapshot(dec, FormatFromPath(path))
}
