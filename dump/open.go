package dump

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.flashmap.dev/core/codecs"
	"go.flashmap.dev/core/record"
)

// Stdin is the listing read when a path of "-" is opened.
var Stdin io.Reader = os.Stdin

// Open returns a reader of the decompressed listing at |path| of |fs|, with a
// Codec chosen by the path's extension. A |path| of "-" reads Stdin, uncompressed.
func Open(fs afero.Fs, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(Stdin), nil
	}
	var f, err = fs.Open(path)
	if err != nil {
		return nil, errors.WithMessage(err, "opening dump")
	}

	var codec = codecs.FromPath(path)
	dec, err := codecs.NewCodecReader(f, codec)
	if err != nil {
		_ = f.Close()
		return nil, errors.WithMessagef(err, "reading %s dump", codec)
	}
	return &listing{Decompressor: dec, file: f}, nil
}

// ParseFile opens and parses the listing at |path| of |fs| into |rl|.
func (p Parser) ParseFile(fs afero.Fs, path string, rl *record.Log) (Stats, error) {
	var r, err = Open(fs, path)
	if err != nil {
		return Stats{}, err
	}
	stats, err := p.Parse(r, rl)

	if closeErr := r.Close(); err == nil && closeErr != nil {
		err = errors.WithMessage(closeErr, "closing dump")
	}
	if err != nil {
		return stats, errors.WithMessage(err, path)
	}
	return stats, nil
}

// listing closes both its Decompressor and the underlying file.
type listing struct {
	codecs.Decompressor
	file afero.File
}

func (l *listing) Close() error {
	var err = l.Decompressor.Close()
	if fileErr := l.file.Close(); err == nil {
		err = fileErr
	}
	return err
}
