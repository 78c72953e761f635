// Package codecs reads and writes dump and report streams under the
// compression Codec implied by their file extension.
package codecs

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Codec is a compression codec of a stream.
type Codec int32

const (
	INVALID Codec = iota
	NONE
	GZIP
	SNAPPY
	ZSTANDARD
)

var codecNames = map[Codec]string{
	INVALID:   "INVALID",
	NONE:      "NONE",
	GZIP:      "GZIP",
	SNAPPY:    "SNAPPY",
	ZSTANDARD: "ZSTANDARD",
}

func (c Codec) String() string {
	if name, ok := codecNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Codec(%d)", int32(c))
}

// Validate returns an error if the Codec is not well-formed.
func (c Codec) Validate() error {
	if _, ok := codecNames[c]; !ok || c == INVALID {
		return errors.Errorf("invalid codec (%s)", c)
	}
	return nil
}

// Parse returns the Codec of case-insensitive |name|.
func Parse(name string) (Codec, error) {
	for c, n := range codecNames {
		if c != INVALID && strings.EqualFold(n, name) {
			return c, nil
		}
	}
	var names []string
	for c, n := range codecNames {
		if c != INVALID {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return INVALID, errors.Errorf("%q is not a valid codec (options are %q)", name, names)
}

// FromExtension matches a file extension to its corresponding Codec.
// Unrecognized extensions, and files without one, are uncompressed.
func FromExtension(ext string) Codec {
	switch strings.ToLower(ext) {
	case ".gz", ".gzip":
		return GZIP
	case ".zst", ".zstandard":
		return ZSTANDARD
	case ".sz", ".snappy":
		return SNAPPY
	default:
		return NONE
	}
}

// FromPath returns the Codec implied by the extension of |path|.
func FromPath(path string) Codec { return FromExtension(filepath.Ext(path)) }

// ToExtension returns the file extension of the Codec.
func (c Codec) ToExtension() string {
	switch c {
	case NONE:
		return ""
	case GZIP:
		return ".gz"
	case ZSTANDARD:
		return ".zst"
	case SNAPPY:
		return ".sz"
	default:
		panic("invalid Codec")
	}
}

// UnmarshalFlag parses a Codec command-line flag.
func (c *Codec) UnmarshalFlag(value string) error {
	var parsed, err = Parse(value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalFlag renders the Codec as a command-line flag.
func (c Codec) MarshalFlag() (string, error) { return c.String(), nil }

func (c Codec) MarshalYAML() (interface{}, error) { return c.String(), nil }

func (c *Codec) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string

	if err := unmarshal(&str); err != nil {
		return err
	}
	return c.UnmarshalFlag(str)
}

// Decompressor is a ReadCloser where Close closes and releases Decompressor
// state, but does not Close or affect the underlying Reader.
type Decompressor io.ReadCloser

// Compressor is a WriteCloser where Close closes and releases Compressor
// state, potentially flushing final content to the underlying Writer,
// but does not Close or otherwise affect the underlying Writer.
type Compressor io.WriteCloser

// NewCodecReader returns a Decompressor of the Reader encoded with Codec.
func NewCodecReader(r io.Reader, codec Codec) (Decompressor, error) {
	switch codec {
	case NONE:
		return io.NopCloser(r), nil
	case GZIP:
		return gzip.NewReader(r)
	case SNAPPY:
		return io.NopCloser(snappy.NewReader(r)), nil
	case ZSTANDARD:
		return zstdNewReader(r)
	default:
		return nil, fmt.Errorf("unsupported codec %s", codec)
	}
}

// NewCodecWriter returns a Compressor wrapping the Writer encoding with Codec.
func NewCodecWriter(w io.Writer, codec Codec) (Compressor, error) {
	switch codec {
	case NONE:
		return nopWriteCloser{w}, nil
	case GZIP:
		return gzip.NewWriter(w), nil
	case SNAPPY:
		return snappy.NewBufferedWriter(w), nil
	case ZSTANDARD:
		return zstdNewWriter(w)
	default:
		return nil, fmt.Errorf("unsupported codec %s", codec)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Available returns true if streams of the Codec can be read and written by
// this build. ZSTANDARD is excluded from builds tagged "nozstd".
func Available(c Codec) bool {
	if c == ZSTANDARD {
		return zstdEnabled
	}
	return c.Validate() == nil
}

var (
	zstdEnabled   bool
	zstdNewReader = func(io.Reader) (io.ReadCloser, error) {
		return nil, fmt.Errorf("ZSTANDARD was not enabled at compile time")
	}
	zstdNewWriter = func(io.Writer) (io.WriteCloser, error) {
		return nil, fmt.Errorf("ZSTANDARD was not enabled at compile time")
	}
)
